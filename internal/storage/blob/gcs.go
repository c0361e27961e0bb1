// Package blob provides raw-HTML archive implementations backed by Google
// Cloud Storage, the local filesystem, or nothing at all.
package blob

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"

	"cloud.google.com/go/storage"

	"github.com/landgraph/landcrawler/internal/land"
)

// GCSArchive stores raw page HTML in a GCS bucket, one object per
// (land, url hash) pair.
type GCSArchive struct {
	client *storage.Client
	bucket string
}

// NewGCSArchive constructs a GCSArchive.
func NewGCSArchive(client *storage.Client, bucket string) (*GCSArchive, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	return &GCSArchive{client: client, bucket: bucket}, nil
}

// Store implements land.ArchiveStore.
func (a *GCSArchive) Store(ctx context.Context, landID int64, urlHash string, html []byte) error {
	writer := a.client.Bucket(a.bucket).Object(objectPath(landID, urlHash)).NewWriter(ctx)
	writer.ContentType = "text/html; charset=utf-8"
	if _, err := writer.Write(html); err != nil {
		if closeErr := writer.Close(); closeErr != nil {
			return fmt.Errorf("write archive object: %w (close writer: %v)", err, closeErr)
		}
		return fmt.Errorf("write archive object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("close archive writer: %w", err)
	}
	return nil
}

// Load implements land.ArchiveStore.
func (a *GCSArchive) Load(ctx context.Context, landID int64, urlHash string) ([]byte, error) {
	reader, err := a.client.Bucket(a.bucket).Object(objectPath(landID, urlHash)).NewReader(ctx)
	if errors.Is(err, storage.ErrObjectNotExist) {
		return nil, land.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("open archive object: %w", err)
	}
	defer reader.Close()

	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, fmt.Errorf("read archive object: %w", err)
	}
	return buf.Bytes(), nil
}

func objectPath(landID int64, urlHash string) string {
	return fmt.Sprintf("lands/%d/%s.html", landID, urlHash)
}
