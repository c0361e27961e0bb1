package fetch

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// TestDownloaderFetchesWithinLimit covers the happy path.
func TestDownloaderFetchesWithinLimit(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader("test-agent", time.Second, 1024)
	body, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(body))
}

// TestDownloaderRejectsOversizedBody asserts the ceiling holds even when the
// server omits Content-Length.
func TestDownloaderRejectsOversizedBody(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("x", 64)))
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader("test-agent", time.Second, 16)
	_, err := d.Download(context.Background(), srv.URL)
	require.ErrorContains(t, err, "exceeds limit")
}

// TestDownloaderDefaultsCeiling asserts a zero ceiling falls back to the
// default instead of rejecting everything.
func TestDownloaderDefaultsCeiling(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte("image-bytes"))
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader("test-agent", time.Second, 0)
	body, err := d.Download(context.Background(), srv.URL)
	require.NoError(t, err)
	require.Equal(t, "image-bytes", string(body))
}

// TestDownloaderRejectsNon200 covers the status gate.
func TestDownloaderRejectsNon200(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	t.Cleanup(srv.Close)

	d := NewDownloader("test-agent", time.Second, 1024)
	_, err := d.Download(context.Background(), srv.URL)
	require.ErrorContains(t, err, "status 404")
}
