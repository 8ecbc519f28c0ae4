package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

const recordColumns = `id, type, data, dirty_fields, state, attempts, sync_error,
	created_at, updated_at, synced_at, last_attempt_at`

const upsertQuery = `
	INSERT INTO records (` + recordColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (type, id) DO UPDATE SET
		data = excluded.data,
		dirty_fields = excluded.dirty_fields,
		state = excluded.state,
		attempts = excluded.attempts,
		sync_error = excluded.sync_error,
		created_at = excluded.created_at,
		updated_at = excluded.updated_at,
		synced_at = excluded.synced_at,
		last_attempt_at = excluded.last_attempt_at
`

const keyLastSyncTime = "last_sync_time"

// Save inserts or replaces a record
func (s *Storage) Save(ctx context.Context, record *models.Record) error {
	return s.SaveAll(ctx, []*models.Record{record})
}

// SaveAll upserts records in one transaction
func (s *Storage) SaveAll(ctx context.Context, records []*models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if len(records) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, upsertQuery)
	if err != nil {
		return fmt.Errorf("failed to prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, record := range records {
		if record == nil || record.ID == "" || record.Type == "" {
			return storage.ErrInvalidRecord
		}

		args, err := recordArgs(record)
		if err != nil {
			return err
		}
		if _, err := stmt.ExecContext(ctx, args...); err != nil {
			return fmt.Errorf("failed to save record %s: %w", record.Key(), err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// Get retrieves a record by id and type
func (s *Storage) Get(ctx context.Context, id, recordType string) (*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE type = ? AND id = ?`
	record, err := scanRecord(s.db.QueryRowContext(ctx, query, recordType, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return record, nil
}

// GetAll returns every record of a type
func (s *Storage) GetAll(ctx context.Context, recordType string) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE type = ? ORDER BY created_at, id`
	return s.query(ctx, query, recordType)
}

// GetPending returns Pending and Failed records of a type
func (s *Storage) GetPending(ctx context.Context, recordType string) ([]*models.Record, error) {
	query := `SELECT ` + recordColumns + ` FROM records WHERE type = ? AND state <> ? ORDER BY updated_at, id`
	return s.query(ctx, query, recordType, models.StateSynced.String())
}

// Delete removes a record; missing records are ignored
func (s *Storage) Delete(ctx context.Context, id, recordType string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	if _, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE type = ? AND id = ?`, recordType, id); err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

// MarkSynced stores record as Synced while the stored copy is still the base version.
// A newer stored copy stays pending and only records the acknowledgment.
func (s *Storage) MarkSynced(ctx context.Context, record *models.Record, base time.Time) error {
	return s.swap(ctx, record, base, true, func(r *models.Record) {
		r.MarkSynced(s.now())
	})
}

// MarkFailed stores record as Failed while the stored copy is still the base version
func (s *Storage) MarkFailed(ctx context.Context, record *models.Record, base time.Time, cause error) error {
	return s.swap(ctx, record, base, false, func(r *models.Record) {
		r.MarkFailed(cause, s.now())
	})
}

// SaveIfUnchanged stores record while the stored copy is still the base version or missing
func (s *Storage) SaveIfUnchanged(ctx context.Context, record *models.Record, base time.Time) error {
	return s.swap(ctx, record, base, false, nil)
}

// swap upserts record in one transaction if the stored copy is missing or
// still has UpdatedAt base. With ack set a changed copy gets synced_at advanced.
func (s *Storage) swap(ctx context.Context, record *models.Record, base time.Time, ack bool, apply func(*models.Record)) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if record == nil || record.ID == "" || record.Type == "" {
		return storage.ErrInvalidRecord
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck

	var updatedAt int64
	err = tx.QueryRowContext(ctx,
		`SELECT updated_at FROM records WHERE type = ? AND id = ?`, record.Type, record.ID,
	).Scan(&updatedAt)
	switch {
	case errors.Is(err, sql.ErrNoRows):
	case err != nil:
		return fmt.Errorf("failed to read record version: %w", err)
	case updatedAt != toNanos(base):
		if !ack {
			return storage.ErrVersionChanged
		}
		if _, err := tx.ExecContext(ctx,
			`UPDATE records SET synced_at = ? WHERE type = ? AND id = ?`,
			toNanos(s.now()), record.Type, record.ID,
		); err != nil {
			return fmt.Errorf("failed to update record: %w", err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit: %w", err)
		}
		return storage.ErrVersionChanged
	}

	if apply != nil {
		apply(record)
	}
	args, err := recordArgs(record)
	if err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, upsertQuery, args...); err != nil {
		return fmt.Errorf("failed to save record %s: %w", record.Key(), err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	return nil
}

// PendingCount counts Pending and Failed records across all types
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM records WHERE state <> ?`, models.StateSynced.String(),
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}
	return count, nil
}

// GetLastSyncTime returns zero time if no sync has been performed yet
func (s *Storage) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM metadata WHERE key = ?`, keyLastSyncTime).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	nanos, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("corrupted last sync time %q: %w", value, err)
	}
	return fromNanos(nanos), nil
}

// SetLastSyncTime persists the last sync time; zero removes it
func (s *Storage) SetLastSyncTime(ctx context.Context, t time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	var err error
	if t.IsZero() {
		_, err = s.db.ExecContext(ctx, `DELETE FROM metadata WHERE key = ?`, keyLastSyncTime)
	} else {
		_, err = s.db.ExecContext(ctx, `
			INSERT INTO metadata (key, value) VALUES (?, ?)
			ON CONFLICT (key) DO UPDATE SET value = excluded.value
		`, keyLastSyncTime, strconv.FormatInt(t.UnixNano(), 10))
	}
	if err != nil {
		return fmt.Errorf("failed to save last sync time: %w", err)
	}
	return nil
}

// Clear removes all records and metadata
func (s *Storage) Clear(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	for _, query := range []string{`DELETE FROM records`, `DELETE FROM metadata`} {
		if _, err := s.db.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to clear storage: %w", err)
		}
	}
	return nil
}

func (s *Storage) query(ctx context.Context, query string, args ...any) ([]*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	var records []*models.Record
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan record: %w", err)
		}
		records = append(records, record)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return records, nil
}

func recordArgs(record *models.Record) ([]any, error) {
	dirty, err := json.Marshal(record.DirtyFields)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal dirty fields: %w", err)
	}
	return []any{
		record.ID,
		record.Type,
		[]byte(record.Data),
		string(dirty),
		record.State.String(),
		record.Attempts,
		record.SyncError,
		toNanos(record.CreatedAt),
		toNanos(record.UpdatedAt),
		toNanos(record.SyncedAt),
		toNanos(record.LastAttemptAt),
	}, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(row scanner) (*models.Record, error) {
	var (
		record                                         models.Record
		data                                           []byte
		dirty, state                                   string
		createdAt, updatedAt, syncedAt, lastAttemptAt int64
	)

	err := row.Scan(
		&record.ID,
		&record.Type,
		&data,
		&dirty,
		&state,
		&record.Attempts,
		&record.SyncError,
		&createdAt,
		&updatedAt,
		&syncedAt,
		&lastAttemptAt,
	)
	if err != nil {
		return nil, err
	}

	if len(data) > 0 {
		record.Data = json.RawMessage(data)
	}
	if err := record.State.UnmarshalText([]byte(state)); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(dirty), &record.DirtyFields); err != nil {
		return nil, fmt.Errorf("failed to unmarshal dirty fields: %w", err)
	}
	if len(record.DirtyFields) == 0 {
		record.DirtyFields = nil
	}

	record.CreatedAt = fromNanos(createdAt)
	record.UpdatedAt = fromNanos(updatedAt)
	record.SyncedAt = fromNanos(syncedAt)
	record.LastAttemptAt = fromNanos(lastAttemptAt)

	return &record, nil
}

// toNanos maps zero time to 0; time.Time{}.UnixNano is out of int64 range.
func toNanos(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromNanos(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n).UTC()
}
