package boltdb

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/models"
)

// storedRecord is the on-disk form. With encryption enabled Data is moved into Sealed.
type storedRecord struct {
	*models.Record
	Sealed []byte `json:"sealed,omitempty"`
}

// Save stores or updates a record
func (s *Storage) Save(ctx context.Context, record *models.Record) error {
	return s.SaveAll(ctx, []*models.Record{record})
}

// SaveAll stores records in a single transaction
func (s *Storage) SaveAll(ctx context.Context, records []*models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if len(records) == 0 {
		return nil
	}

	// Сериализуем до открытия транзакции, чтобы не держать write lock на шифровании
	encoded := make([][]byte, len(records))
	for i, record := range records {
		if record == nil || record.ID == "" || record.Type == "" {
			return storage.ErrInvalidRecord
		}
		data, err := s.encode(record)
		if err != nil {
			return err
		}
		encoded[i] = data
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		for i, record := range records {
			bucket, err := typeBucket(tx, record.Type, true)
			if err != nil {
				return err
			}
			if err := bucket.Put([]byte(record.ID), encoded[i]); err != nil {
				return fmt.Errorf("failed to save record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}
	return nil
}

// Get retrieves a record by id and type
func (s *Storage) Get(ctx context.Context, id, recordType string) (*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var record *models.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, _ := typeBucket(tx, recordType, false)
		if bucket == nil {
			return storage.ErrRecordNotFound
		}

		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrRecordNotFound
		}

		var err error
		record, err = s.decode(id, recordType, data)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

// GetAll returns every record of a type
func (s *Storage) GetAll(ctx context.Context, recordType string) ([]*models.Record, error) {
	return s.filter(recordType, func(*models.Record) bool { return true })
}

// GetPending returns Pending and Failed records of a type
func (s *Storage) GetPending(ctx context.Context, recordType string) ([]*models.Record, error) {
	return s.filter(recordType, (*models.Record).IsPending)
}

// Delete removes a record; missing records are ignored
func (s *Storage) Delete(ctx context.Context, id, recordType string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, _ := typeBucket(tx, recordType, false)
		if bucket == nil {
			return nil
		}
		if err := bucket.Delete([]byte(id)); err != nil {
			return fmt.Errorf("failed to delete record: %w", err)
		}
		return nil
	})
}

// MarkSynced stores record as Synced while the stored copy is still the base version.
// A newer stored copy stays pending and only records the acknowledgment.
func (s *Storage) MarkSynced(ctx context.Context, record *models.Record, base time.Time) error {
	stale := false
	err := s.swap(record, func(stored *models.Record) *models.Record {
		now := s.now()
		if stored == nil || stored.UpdatedAt.Equal(base) {
			record.MarkSynced(now)
			return record
		}
		stale = true
		stored.SyncedAt = now
		return stored
	})
	if err != nil {
		return err
	}
	if stale {
		return storage.ErrVersionChanged
	}
	return nil
}

// MarkFailed stores record as Failed while the stored copy is still the base version
func (s *Storage) MarkFailed(ctx context.Context, record *models.Record, base time.Time, cause error) error {
	return s.putIfUnchanged(record, base, func(r *models.Record) {
		r.MarkFailed(cause, s.now())
	})
}

// SaveIfUnchanged stores record while the stored copy is still the base version or missing
func (s *Storage) SaveIfUnchanged(ctx context.Context, record *models.Record, base time.Time) error {
	return s.putIfUnchanged(record, base, nil)
}

func (s *Storage) putIfUnchanged(record *models.Record, base time.Time, apply func(*models.Record)) error {
	stale := false
	err := s.swap(record, func(stored *models.Record) *models.Record {
		if stored != nil && !stored.UpdatedAt.Equal(base) {
			stale = true
			return nil
		}
		if apply != nil {
			apply(record)
		}
		return record
	})
	if err != nil {
		return err
	}
	if stale {
		return storage.ErrVersionChanged
	}
	return nil
}

// PendingCount counts Pending and Failed records across all types.
// Only metadata is decoded, sealed payloads are not opened.
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		root := tx.Bucket(bucketRecords)
		if root == nil {
			return nil
		}
		return root.ForEachBucket(func(name []byte) error {
			return root.Bucket(name).ForEach(func(k, v []byte) error {
				var head struct {
					State models.SyncState `json:"state"`
				}
				if err := json.Unmarshal(v, &head); err != nil {
					return fmt.Errorf("failed to unmarshal record: %w", err)
				}
				if head.State != models.StateSynced {
					count++
				}
				return nil
			})
		})
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count pending records: %w", err)
	}
	return count, nil
}

// Clear removes all records and the last sync time.
// Encryption parameters are kept so the passphrase stays valid.
func (s *Storage) Clear(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketRecords); err != nil && !errors.Is(err, bbolt.ErrBucketNotFound) {
			return fmt.Errorf("failed to drop records: %w", err)
		}
		if _, err := tx.CreateBucket(bucketRecords); err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}
		if meta := tx.Bucket(bucketMetadata); meta != nil {
			if err := meta.Delete(keyLastSyncTime); err != nil {
				return fmt.Errorf("failed to clear last sync time: %w", err)
			}
		}
		return nil
	})
}

func (s *Storage) filter(recordType string, keep func(*models.Record) bool) ([]*models.Record, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var records []*models.Record
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket, _ := typeBucket(tx, recordType, false)
		if bucket == nil {
			// Нет bucket - возвращаем пустой список
			return nil
		}

		return bucket.ForEach(func(k, v []byte) error {
			record, err := s.decode(string(k), recordType, v)
			if err != nil {
				return err
			}
			if keep(record) {
				records = append(records, record)
			}
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s records: %w", recordType, err)
	}
	return records, nil
}

// swap reads the stored copy of record (nil if missing) and writes what fn
// returns in the same transaction. A nil result leaves the store untouched.
func (s *Storage) swap(record *models.Record, fn func(stored *models.Record) *models.Record) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if record == nil || record.ID == "" || record.Type == "" {
		return storage.ErrInvalidRecord
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := typeBucket(tx, record.Type, true)
		if err != nil {
			return err
		}

		var stored *models.Record
		if data := bucket.Get([]byte(record.ID)); data != nil {
			stored, err = s.decode(record.ID, record.Type, data)
			if err != nil {
				return err
			}
		}

		out := fn(stored)
		if out == nil {
			return nil
		}
		encoded, err := s.encode(out)
		if err != nil {
			return err
		}
		if err := bucket.Put([]byte(out.ID), encoded); err != nil {
			return fmt.Errorf("failed to save record: %w", err)
		}
		return nil
	})
}

func (s *Storage) encode(record *models.Record) ([]byte, error) {
	stored := storedRecord{Record: record}
	if s.cipher != nil && len(record.Data) > 0 {
		sealed, err := s.cipher.Seal(record.Data, []byte(record.Key()))
		if err != nil {
			return nil, fmt.Errorf("failed to seal record: %w", err)
		}
		plain := *record
		plain.Data = nil
		stored = storedRecord{Record: &plain, Sealed: sealed}
	}

	data, err := json.Marshal(stored)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal record: %w", err)
	}
	return data, nil
}

func (s *Storage) decode(id, recordType string, data []byte) (*models.Record, error) {
	stored := storedRecord{Record: &models.Record{}}
	if err := json.Unmarshal(data, &stored); err != nil {
		return nil, fmt.Errorf("failed to unmarshal record: %w", err)
	}

	record := stored.Record
	if string(record.Data) == "null" {
		record.Data = nil
	}
	if len(stored.Sealed) > 0 {
		if s.cipher == nil {
			return nil, storage.ErrEncrypted
		}
		plain, err := s.cipher.Open(stored.Sealed, []byte(recordType+"/"+id))
		if err != nil {
			return nil, err
		}
		record.Data = plain
	}
	return record, nil
}

// typeBucket returns the nested bucket of a record type.
func typeBucket(tx *bbolt.Tx, recordType string, create bool) (*bbolt.Bucket, error) {
	root := tx.Bucket(bucketRecords)
	if root == nil {
		return nil, fmt.Errorf("records bucket not found")
	}
	if !create {
		return root.Bucket([]byte(recordType)), nil
	}
	bucket, err := root.CreateBucketIfNotExists([]byte(recordType))
	if err != nil {
		return nil, fmt.Errorf("failed to create bucket %q: %w", recordType, err)
	}
	return bucket, nil
}
