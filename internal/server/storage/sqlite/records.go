package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/iudanet/gophsync/internal/server/storage"
)

// Create stores a new record or, if it already exists, applies it as a full
// update under last-update-wins. The bool result reports a new record.
func (s *Storage) Create(ctx context.Context, rec *storage.Record) (*storage.Record, bool, error) {
	if err := validate(rec); err != nil {
		return nil, false, err
	}

	var (
		out     *storage.Record
		created bool
	)
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getRecord(ctx, tx, rec.Owner, rec.Type, rec.ID)
		if err != nil && !errors.Is(err, storage.ErrRecordNotFound) {
			return err
		}

		now := s.now()
		if existing == nil {
			out = cloneRecord(rec)
			if out.CreatedAt.IsZero() {
				out.CreatedAt = now
			}
			if out.UpdatedAt.IsZero() {
				out.UpdatedAt = now
			}
			out.ModifiedAt = now
			created = true
			return putRecord(ctx, tx, out)
		}

		// повторная отправка create после потерянного ответа
		if rec.UpdatedAt.Before(existing.UpdatedAt) {
			return &storage.ConflictError{Current: existing}
		}
		out = merge(existing, rec, now)
		return putRecord(ctx, tx, out)
	})
	if err != nil {
		return nil, false, err
	}
	return out, created, nil
}

// Update merges rec into the stored copy.
func (s *Storage) Update(ctx context.Context, rec *storage.Record) (*storage.Record, error) {
	if err := validate(rec); err != nil {
		return nil, err
	}

	var out *storage.Record
	err := s.inTx(ctx, func(tx *sql.Tx) error {
		existing, err := getRecord(ctx, tx, rec.Owner, rec.Type, rec.ID)
		if err != nil {
			return err
		}
		if !rec.UpdatedAt.IsZero() && rec.UpdatedAt.Before(existing.UpdatedAt) {
			return &storage.ConflictError{Current: existing}
		}
		out = merge(existing, rec, s.now())
		return putRecord(ctx, tx, out)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns a single record.
func (s *Storage) Get(ctx context.Context, owner, recordType, id string) (*storage.Record, error) {
	return getRecord(ctx, s.db, owner, recordType, id)
}

// List returns records of q.Type modified after q.Since.
func (s *Storage) List(ctx context.Context, q storage.ListQuery) ([]*storage.Record, error) {
	query := `
		SELECT owner, type, id, fields, created_at, updated_at, modified_at
		FROM records
		WHERE owner = ? AND type = ? AND modified_at > ?
		ORDER BY modified_at, id
		LIMIT ? OFFSET ?
	`

	limit := q.Limit
	if limit <= 0 {
		limit = -1 // без ограничения
	}

	rows, err := s.db.QueryContext(ctx, query, q.Owner, q.Type, toNanos(q.Since), limit, q.Offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer rows.Close()

	records := make([]*storage.Record, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}
	return records, nil
}

// Delete removes a record.
func (s *Storage) Delete(ctx context.Context, owner, recordType, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM records WHERE owner = ? AND type = ? AND id = ?`,
		owner, recordType, id,
	)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check deleted rows: %w", err)
	}
	if n == 0 {
		return storage.ErrRecordNotFound
	}
	return nil
}

func (s *Storage) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type scanner interface {
	Scan(dest ...any) error
}

func getRecord(ctx context.Context, q queryer, owner, recordType, id string) (*storage.Record, error) {
	row := q.QueryRowContext(ctx, `
		SELECT owner, type, id, fields, created_at, updated_at, modified_at
		FROM records
		WHERE owner = ? AND type = ? AND id = ?
	`, owner, recordType, id)

	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, storage.ErrRecordNotFound
	}
	return rec, err
}

func putRecord(ctx context.Context, tx *sql.Tx, rec *storage.Record) error {
	fields, err := json.Marshal(rec.Fields)
	if err != nil {
		return fmt.Errorf("failed to marshal fields: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO records (owner, type, id, fields, created_at, updated_at, modified_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (owner, type, id) DO UPDATE SET
			fields = excluded.fields,
			created_at = excluded.created_at,
			updated_at = excluded.updated_at,
			modified_at = excluded.modified_at
	`,
		rec.Owner, rec.Type, rec.ID, fields,
		toNanos(rec.CreatedAt), toNanos(rec.UpdatedAt), toNanos(rec.ModifiedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save record: %w", err)
	}
	return nil
}

func scanRecord(sc scanner) (*storage.Record, error) {
	var (
		rec                             storage.Record
		fields                          []byte
		createdAt, updatedAt, modified int64
	)
	if err := sc.Scan(&rec.Owner, &rec.Type, &rec.ID, &fields, &createdAt, &updatedAt, &modified); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan record: %w", err)
	}
	if err := json.Unmarshal(fields, &rec.Fields); err != nil {
		return nil, fmt.Errorf("failed to decode fields of %s/%s: %w", rec.Type, rec.ID, err)
	}
	rec.CreatedAt = fromNanos(createdAt)
	rec.UpdatedAt = fromNanos(updatedAt)
	rec.ModifiedAt = fromNanos(modified)
	return &rec, nil
}

// merge applies the incoming fields over the stored ones.
func merge(existing, incoming *storage.Record, now time.Time) *storage.Record {
	out := cloneRecord(existing)
	for name, value := range incoming.Fields {
		out.Fields[name] = value
	}
	if incoming.UpdatedAt.IsZero() {
		out.UpdatedAt = now
	} else {
		out.UpdatedAt = incoming.UpdatedAt
	}
	out.ModifiedAt = now
	return out
}

func cloneRecord(rec *storage.Record) *storage.Record {
	out := *rec
	out.Fields = make(map[string]json.RawMessage, len(rec.Fields))
	for name, value := range rec.Fields {
		out.Fields[name] = value
	}
	return &out
}

func validate(rec *storage.Record) error {
	if rec == nil || rec.Type == "" || rec.ID == "" {
		return storage.ErrInvalidRecord
	}
	return nil
}

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
