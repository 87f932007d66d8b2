// Package persistence provides archive snapshot stores.
//
// The active memory store is an owned in-memory arena; an ArchiveStore is
// where the lifecycle manager snapshots memories on archival and before
// hard deletion, so audit and restore survive process restarts.
package persistence

import (
	"context"
	"time"

	"github.com/memlens/memlens-go/pkg/memory"
)

// ArchivedMemory is one snapshot held by an archive store.
type ArchivedMemory struct {
	// Memory is the full record at snapshot time.
	Memory *memory.Memory

	// ArchivedAt is when the snapshot was taken.
	ArchivedAt time.Time

	// Reason records why the memory was archived or deleted.
	Reason string
}

// ArchiveStore persists memory snapshots for audit and restore.
//
// All backends (SQLite, PostgreSQL, OceanBase) must implement this
// interface. Save is an upsert: a later snapshot of the same memory
// replaces the earlier one.
type ArchiveStore interface {
	// Save upserts a snapshot.
	Save(ctx context.Context, rec *ArchivedMemory) error

	// Get retrieves a snapshot by memory id.
	Get(ctx context.Context, id string) (*ArchivedMemory, error)

	// List returns snapshots ordered by archival time descending, with
	// limit/offset pagination. A limit of 0 means no limit.
	List(ctx context.Context, limit, offset int) ([]*ArchivedMemory, error)

	// Delete removes a snapshot by memory id.
	Delete(ctx context.Context, id string) error

	// Close closes the store and releases resources.
	Close() error
}
