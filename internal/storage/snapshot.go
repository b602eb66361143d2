package storage

import (
	"context"
	"errors"

	"github.com/practicehub/sheet-engine/internal/models"
)

// ErrNoSnapshot is returned by Load when no snapshot has ever been
// persisted under the configured key.
var ErrNoSnapshot = errors.New("no snapshot stored")

// SnapshotStore persists the full sheet state as one durable blob.
// Save overwrites the previous snapshot wholesale; there is no
// incremental update path.
type SnapshotStore interface {
	Load(ctx context.Context) (*models.Snapshot, error)
	Save(ctx context.Context, snap *models.Snapshot) error
	Ping(ctx context.Context) error
	Close() error
}
