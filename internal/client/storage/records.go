package storage

import (
	"context"
	"time"

	"github.com/iudanet/gophsync/internal/models"
)

//go:generate moq -out recordstore_mock.go . RecordStore

// RecordStore is durable keyed storage for sync records on the client.
// Records are addressed by (id, type).
type RecordStore interface {
	// Get returns the record or ErrRecordNotFound.
	Get(ctx context.Context, id, recordType string) (*models.Record, error)

	// GetAll returns every record of a type.
	GetAll(ctx context.Context, recordType string) ([]*models.Record, error)

	// GetPending returns records of a type in state Pending or Failed.
	GetPending(ctx context.Context, recordType string) ([]*models.Record, error)

	// Save inserts or replaces a record.
	Save(ctx context.Context, record *models.Record) error

	// SaveAll inserts or replaces records in a single write.
	SaveAll(ctx context.Context, records []*models.Record) error

	// Delete removes a record. Deleting a missing record is not an error.
	Delete(ctx context.Context, id, recordType string) error

	// MarkSynced stores record as the version acknowledged by the server and
	// moves it to Synced. base is the UpdatedAt of the local copy the sync unit
	// started from (zero if there was none). When the stored copy no longer has
	// that UpdatedAt it keeps its pending changes, only SyncedAt advances, and
	// ErrVersionChanged is returned. A missing record is written.
	MarkSynced(ctx context.Context, record *models.Record, base time.Time) error

	// MarkFailed stores record as Failed, incrementing attempts, under the same
	// version check as MarkSynced. A changed stored copy is left untouched and
	// ErrVersionChanged is returned.
	MarkFailed(ctx context.Context, record *models.Record, base time.Time, cause error) error

	// SaveIfUnchanged stores record only while the stored copy still has
	// UpdatedAt base, or is missing. Otherwise ErrVersionChanged is returned.
	SaveIfUnchanged(ctx context.Context, record *models.Record, base time.Time) error

	// PendingCount returns the number of Pending and Failed records across all types.
	PendingCount(ctx context.Context) (int, error)

	// GetLastSyncTime returns the last successful sync time, zero if never synced.
	GetLastSyncTime(ctx context.Context) (time.Time, error)

	// SetLastSyncTime persists the last successful sync time.
	SetLastSyncTime(ctx context.Context, t time.Time) error

	// Clear removes all records and metadata.
	Clear(ctx context.Context) error
}
