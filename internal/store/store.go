// ABOUTME: Snapshot storage interface for the client's durable local cache
// ABOUTME: Each tier is persisted as one opaque blob under a string key

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested snapshot does not exist
var ErrNotFound = errors.New("not found")

// ErrClosed is returned when the store has been closed
var ErrClosed = errors.New("store closed")

// SnapshotKeyAlwaysOn is the key under which the always-on cache tier is persisted.
const SnapshotKeyAlwaysOn = "always_on"

// SnapshotInfo describes a stored snapshot without its payload.
type SnapshotInfo struct {
	Key       string
	Size      int
	UpdatedAt time.Time
}

// Store persists serialized cache snapshots.
type Store interface {
	// LoadSnapshot returns the blob stored under key, or ErrNotFound.
	LoadSnapshot(ctx context.Context, key string) ([]byte, error)

	// SaveSnapshot creates or replaces the blob stored under key.
	SaveSnapshot(ctx context.Context, key string, blob []byte) error

	// DeleteSnapshot removes key. Deleting a missing key is not an error.
	DeleteSnapshot(ctx context.Context, key string) error

	// ListSnapshots returns metadata for every stored snapshot, ordered by key.
	ListSnapshots(ctx context.Context) ([]SnapshotInfo, error)

	Close() error
}
