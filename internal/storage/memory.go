package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/practicehub/sheet-engine/internal/models"
)

// MemoryStore is an in-process snapshot store used in tests and for
// ephemeral runs. It round-trips through JSON so it exercises the
// same encoding path as the durable backends.
type MemoryStore struct {
	mu   sync.RWMutex
	data []byte
}

// NewMemoryStore creates an empty in-memory snapshot store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load decodes the stored snapshot
func (s *MemoryStore) Load(ctx context.Context) (*models.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.data) == 0 {
		return nil, ErrNoSnapshot
	}

	var snap models.Snapshot
	if err := json.Unmarshal(s.data, &snap); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot: %w", err)
	}

	return &snap, nil
}

// Save encodes and stores the snapshot
func (s *MemoryStore) Save(ctx context.Context, snap *models.Snapshot) error {
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("failed to encode snapshot: %w", err)
	}

	s.mu.Lock()
	s.data = data
	s.mu.Unlock()
	return nil
}

// Ping always succeeds
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}

// Close is a no-op
func (s *MemoryStore) Close() error {
	return nil
}
