package boltdb

import (
	"context"
	"encoding/binary"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
)

var (
	keyLastSyncTime = []byte("last_sync_time")
	keySalt         = []byte("salt")
	keyKeyCheck     = []byte("key_check")
)

// SetLastSyncTime saves the time of the last successful sync.
// A zero time removes the value.
func (s *Storage) SetLastSyncTime(ctx context.Context, t time.Time) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		if t.IsZero() {
			return bucket.Delete(keyLastSyncTime)
		}

		// Храним время как unix nanoseconds в big endian
		buf := make([]byte, 8)
		binary.BigEndian.PutUint64(buf, uint64(t.UnixNano()))

		if err := bucket.Put(keyLastSyncTime, buf); err != nil {
			return fmt.Errorf("failed to save last sync time: %w", err)
		}
		return nil
	})
}

// GetLastSyncTime retrieves the time of the last successful sync.
// Returns zero time if no sync has been performed yet.
func (s *Storage) GetLastSyncTime(ctx context.Context) (time.Time, error) {
	if s.db == nil {
		return time.Time{}, storage.ErrStorageClosed
	}

	var t time.Time
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}

		buf := bucket.Get(keyLastSyncTime)
		if buf == nil {
			// первая синхронизация
			return nil
		}
		if len(buf) != 8 {
			return fmt.Errorf("corrupted last sync time: %d bytes", len(buf))
		}

		t = time.Unix(0, int64(binary.BigEndian.Uint64(buf))).UTC()
		return nil
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to get last sync time: %w", err)
	}

	return t, nil
}

// encryptionParams returns the stored salt and key check, nil salt if encryption was never set up.
func (s *Storage) encryptionParams(ctx context.Context) ([]byte, string, error) {
	var (
		salt  []byte
		check string
	)
	err := s.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		if v := bucket.Get(keySalt); v != nil {
			salt = append([]byte(nil), v...)
		}
		check = string(bucket.Get(keyKeyCheck))
		return nil
	})
	if err != nil {
		return nil, "", fmt.Errorf("failed to read encryption params: %w", err)
	}
	return salt, check, nil
}

func (s *Storage) saveEncryptionParams(ctx context.Context, salt []byte, check string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketMetadata)
		if bucket == nil {
			return fmt.Errorf("metadata bucket not found")
		}
		if err := bucket.Put(keySalt, salt); err != nil {
			return fmt.Errorf("failed to save salt: %w", err)
		}
		if err := bucket.Put(keyKeyCheck, []byte(check)); err != nil {
			return fmt.Errorf("failed to save key check: %w", err)
		}
		return nil
	})
}
