package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"time"
)

// defaultAvailabilityURL is the Wayback Machine availability endpoint.
const defaultAvailabilityURL = "https://archive.org/wayback/available"

// snapshotPathRe matches the timestamp segment of a snapshot URL so it can
// be rewritten to the raw "id_" form, which serves the page without the
// archive toolbar markup.
var snapshotPathRe = regexp.MustCompile(`(/web/\d{14})/`)

type availabilityResponse struct {
	ArchivedSnapshots struct {
		Closest struct {
			Available bool   `json:"available"`
			URL       string `json:"url"`
			Status    string `json:"status"`
		} `json:"closest"`
	} `json:"archived_snapshots"`
}

// waybackClient resolves and fetches the closest archived snapshot of a URL.
type waybackClient struct {
	availabilityURL string
	userAgent       string
	lookupClient    *http.Client
	snapshotClient  *http.Client
}

func newWaybackClient(userAgent string, lookupTimeout, snapshotTimeout time.Duration) *waybackClient {
	return &waybackClient{
		availabilityURL: defaultAvailabilityURL,
		userAgent:       userAgent,
		lookupClient:    &http.Client{Timeout: lookupTimeout},
		snapshotClient:  &http.Client{Timeout: snapshotTimeout},
	}
}

// fetchSnapshot looks up the closest available snapshot for rawURL and
// retrieves its HTML. The reported status is the snapshot's original status
// code, not the archive server's.
func (w *waybackClient) fetchSnapshot(ctx context.Context, rawURL string) (Result, error) {
	lookupURL := w.availabilityURL + "?url=" + url.QueryEscape(rawURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, lookupURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build availability request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.lookupClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("availability lookup: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("availability lookup status %d", resp.StatusCode)
	}

	var avail availabilityResponse
	if err := json.NewDecoder(resp.Body).Decode(&avail); err != nil {
		return Result{}, fmt.Errorf("decode availability response: %w", err)
	}

	closest := avail.ArchivedSnapshots.Closest
	if !closest.Available || closest.URL == "" {
		return Result{}, fmt.Errorf("no snapshot available for %s", rawURL)
	}

	snapshotURL := rawSnapshotURL(closest.URL)
	originalStatus, err := strconv.Atoi(closest.Status)
	if err != nil {
		originalStatus = http.StatusOK
	}

	return w.getSnapshot(ctx, snapshotURL, originalStatus)
}

func (w *waybackClient) getSnapshot(ctx context.Context, snapshotURL string, originalStatus int) (Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, snapshotURL, nil)
	if err != nil {
		return Result{}, fmt.Errorf("build snapshot request: %w", err)
	}
	req.Header.Set("User-Agent", w.userAgent)

	resp, err := w.snapshotClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("snapshot fetch: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Result{}, fmt.Errorf("snapshot fetch status %d", resp.StatusCode)
	}
	if !isHTML(resp.Header.Get("Content-Type")) {
		return Result{}, fmt.Errorf("snapshot is not html")
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return Result{}, fmt.Errorf("read snapshot body: %w", err)
	}

	return Result{
		HTML:        string(body),
		Status:      originalStatus,
		FinalURL:    snapshotURL,
		UsedArchive: true,
	}, nil
}

// rawSnapshotURL rewrites a snapshot URL to the id_ form.
func rawSnapshotURL(snapshotURL string) string {
	return snapshotPathRe.ReplaceAllString(snapshotURL, "${1}id_/")
}
