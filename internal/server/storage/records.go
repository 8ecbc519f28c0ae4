package storage

import (
	"context"
	"encoding/json"
	"time"
)

// Record is the server copy of a client record.
//
// Fields holds the record's own JSON object without the envelope fields
// (id, createdAt, updatedAt). ModifiedAt is the server clock at the last
// write and drives incremental pulls; UpdatedAt is the client logical
// timestamp used for last-update-wins.
type Record struct {
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ModifiedAt time.Time
	Owner      string
	Type       string
	ID         string
	Fields     map[string]json.RawMessage
}

// ListQuery filters a record listing.
type ListQuery struct {
	Since  time.Time
	Owner  string
	Type   string
	Limit  int
	Offset int
}

//go:generate moq -out recordstorage_mock.go . RecordStorage

// RecordStorage defines persistence of server records.
// Records are addressed by (owner, type, id).
type RecordStorage interface {
	// Create stores a new record. If the record already exists the write is
	// treated as an update: an older incoming UpdatedAt yields *ConflictError.
	Create(ctx context.Context, rec *Record) (*Record, bool, error)

	// Update merges the top-level fields of rec into the stored copy.
	// A zero UpdatedAt means a partial update stamped with the server clock.
	// Returns ErrRecordNotFound or *ConflictError.
	Update(ctx context.Context, rec *Record) (*Record, error)

	// Get returns the record or ErrRecordNotFound.
	Get(ctx context.Context, owner, recordType, id string) (*Record, error)

	// List returns records modified after q.Since ordered by modification time.
	List(ctx context.Context, q ListQuery) ([]*Record, error)

	// Delete removes a record. Returns ErrRecordNotFound when it does not exist.
	Delete(ctx context.Context, owner, recordType, id string) error
}
