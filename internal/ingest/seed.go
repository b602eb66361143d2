package ingest

import (
	"context"
	"os"

	"gopkg.in/yaml.v3"
)

// SeedLoader reads the sheet payload from a local YAML file instead
// of the network, so a fresh deployment can bootstrap offline. The
// file carries the same shape as the remote payload and is held to
// the same validation.
type SeedLoader struct {
	path string
}

// NewSeedLoader creates a loader for the given seed file
func NewSeedLoader(path string) *SeedLoader {
	return &SeedLoader{path: path}
}

// Fetch reads and validates the seed file
func (l *SeedLoader) Fetch(ctx context.Context) (*Payload, error) {
	data, err := os.ReadFile(l.path)
	if err != nil {
		return nil, &IngestError{Reason: "read seed file", Err: err}
	}

	var payload Payload
	if err := yaml.Unmarshal(data, &payload); err != nil {
		return nil, &IngestError{Reason: "parse seed file", Err: err}
	}

	if err := payload.Validate(); err != nil {
		return nil, err
	}

	return &payload, nil
}
