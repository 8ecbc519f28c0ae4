package crypto

import "errors"

var (
	// ErrInvalidKey indicates a key that is not 32 bytes long
	ErrInvalidKey = errors.New("encryption key must be 32 bytes")

	// ErrDecrypt indicates a ciphertext that fails authentication
	ErrDecrypt = errors.New("failed to decrypt: authentication failed or corrupted data")

	// ErrWrongPassphrase indicates that a derived key does not match the stored check value
	ErrWrongPassphrase = errors.New("wrong passphrase")
)
