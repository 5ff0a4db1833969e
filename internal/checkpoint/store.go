// Package checkpoint provides durable per-thread conversation storage.
//
// The executor reads a thread before a turn and writes it back after;
// the Store owns persistence exclusively. Two backends exist: an
// in-memory map with optional JSON snapshots (single-process, local
// dev, tests) and PostgreSQL (durable deployments).
package checkpoint

import (
	"context"

	"github.com/chatcore/chatcore/pkg/models"
)

// Store is the checkpoint contract the executor depends on.
type Store interface {
	// Load returns the thread for the given id. Unknown ids yield a
	// fresh empty thread, not an error: threads are created on first
	// reference.
	Load(ctx context.Context, threadID string) (*models.Thread, error)

	// Save atomically replaces the stored thread.
	Save(ctx context.Context, thread *models.Thread) error

	// Ping checks that the backing storage is reachable.
	Ping(ctx context.Context) error

	// Close releases all resources held by the store.
	Close() error
}
