package storage

import "errors"

// Common client storage errors
var (
	// ErrRecordNotFound indicates that the record does not exist
	ErrRecordNotFound = errors.New("record not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")

	// ErrInvalidRecord indicates a record without id or type
	ErrInvalidRecord = errors.New("invalid record")

	// ErrVersionChanged indicates that the stored record was modified after the caller read it
	ErrVersionChanged = errors.New("stored record version changed")

	// ErrEncrypted indicates a sealed record read from a store opened without a passphrase
	ErrEncrypted = errors.New("record is encrypted: passphrase required")
)
