package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Fetcher pulls the sheet payload from the remote source endpoint.
// One best-effort GET per call: no retries, no backoff. Retry policy
// belongs to the caller.
type Fetcher struct {
	url        string
	httpClient *http.Client
}

// NewFetcher creates a fetcher for the given endpoint
func NewFetcher(url string, timeout time.Duration) *Fetcher {
	return &Fetcher{
		url: url,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Fetch performs the GET and validates the decoded payload
func (f *Fetcher) Fetch(ctx context.Context) (*Payload, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.url, nil)
	if err != nil {
		return nil, &IngestError{Reason: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, &IngestError{Reason: "fetch source", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &IngestError{Reason: fmt.Sprintf("source returned status %d", resp.StatusCode)}
	}

	var payload Payload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, &IngestError{Reason: "decode payload", Err: err}
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &payload, nil
}
