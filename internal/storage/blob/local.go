package blob

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/landgraph/landcrawler/internal/land"
)

// LocalArchive stores raw page HTML under a base directory, mirroring the
// GCS object layout.
type LocalArchive struct {
	baseDir string
}

// NewLocalArchive constructs a LocalArchive, creating the base directory
// when missing.
func NewLocalArchive(baseDir string) (*LocalArchive, error) {
	if strings.TrimSpace(baseDir) == "" {
		return nil, fmt.Errorf("base directory is required")
	}
	info, err := os.Stat(baseDir)
	switch {
	case os.IsNotExist(err):
		if mkErr := os.MkdirAll(baseDir, 0o750); mkErr != nil {
			return nil, fmt.Errorf("create base directory: %w", mkErr)
		}
	case err != nil:
		return nil, fmt.Errorf("stat base directory: %w", err)
	case !info.IsDir():
		return nil, fmt.Errorf("base directory path is not a directory")
	}
	return &LocalArchive{baseDir: baseDir}, nil
}

// Store implements land.ArchiveStore.
func (a *LocalArchive) Store(_ context.Context, landID int64, urlHash string, html []byte) error {
	path := filepath.Join(a.baseDir, objectPath(landID, urlHash))
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("create archive directory: %w", err)
	}
	if err := os.WriteFile(path, html, 0o640); err != nil {
		return fmt.Errorf("write archive file: %w", err)
	}
	return nil
}

// Load implements land.ArchiveStore.
func (a *LocalArchive) Load(_ context.Context, landID int64, urlHash string) ([]byte, error) {
	path := filepath.Join(a.baseDir, objectPath(landID, urlHash))
	data, err := os.ReadFile(path) // #nosec G304 -- path is derived from a hex hash
	if os.IsNotExist(err) {
		return nil, land.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("read archive file: %w", err)
	}
	return data, nil
}
