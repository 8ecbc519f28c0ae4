// Package boltdb implements the client RecordStore on top of bbolt.
//
// Layout: a "records" bucket holds one nested bucket per record type, keyed
// by record id; a "metadata" bucket holds the last sync time and the
// encryption salt and key check when at-rest encryption is enabled.
package boltdb

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/gophsync/internal/client/storage"
	"github.com/iudanet/gophsync/internal/crypto"
)

var (
	// BoltDB bucket names
	bucketRecords  = []byte("records")
	bucketMetadata = []byte("metadata")
)

var _ storage.RecordStore = (*Storage)(nil)

// Storage represents BoltDB storage implementation for client
type Storage struct {
	db         *bbolt.DB
	cipher     *crypto.Cipher
	now        func() time.Time
	passphrase string
	timeout    time.Duration
}

// Option configures Storage.
type Option func(*Storage)

// WithPassphrase enables at-rest encryption of record payloads.
// The key is derived from passphrase and a salt stored in the metadata bucket.
func WithPassphrase(passphrase string) Option {
	return func(s *Storage) {
		s.passphrase = passphrase
	}
}

// WithClock overrides the time source used by MarkSynced and MarkFailed.
func WithClock(now func() time.Time) Option {
	return func(s *Storage) {
		s.now = now
	}
}

// WithOpenTimeout sets how long New waits for the file lock.
func WithOpenTimeout(d time.Duration) Option {
	return func(s *Storage) {
		s.timeout = d
	}
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string, opts ...Option) (*Storage, error) {
	s := &Storage{
		now:     time.Now,
		timeout: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	// Открываем BoltDB; timeout защищает от зависания на чужой блокировке файла
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: s.timeout})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}
	s.db = db

	// Инициализируем buckets
	if err := s.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	if s.passphrase != "" {
		if err := s.initCipher(ctx); err != nil {
			db.Close()
			return nil, err
		}
	}

	return s, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Encrypted reports whether record payloads are sealed at rest.
func (s *Storage) Encrypted() bool {
	return s.cipher != nil
}

// initBuckets создает необходимые buckets если они не существуют
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketRecords); err != nil {
			return fmt.Errorf("failed to create records bucket: %w", err)
		}
		if _, err := tx.CreateBucketIfNotExists(bucketMetadata); err != nil {
			return fmt.Errorf("failed to create metadata bucket: %w", err)
		}
		return nil
	})
}

// initCipher derives the storage key. The first open with a passphrase
// generates the salt and stores a key check; later opens verify it.
func (s *Storage) initCipher(ctx context.Context) error {
	salt, check, err := s.encryptionParams(ctx)
	if err != nil {
		return err
	}

	fresh := salt == nil
	if fresh {
		if salt, err = crypto.GenerateSalt(); err != nil {
			return err
		}
	}

	key, err := crypto.DeriveKey(s.passphrase, salt)
	if err != nil {
		return fmt.Errorf("failed to derive storage key: %w", err)
	}

	if fresh {
		if err := s.saveEncryptionParams(ctx, salt, crypto.KeyCheck(key)); err != nil {
			return err
		}
	} else if err := crypto.VerifyKey(key, check); err != nil {
		return err
	}

	c, err := crypto.NewCipher(key)
	if err != nil {
		return err
	}
	s.cipher = c
	return nil
}
