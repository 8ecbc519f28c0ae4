package crypto

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
)

// KeyCheck returns a value that identifies key without revealing it.
// Stores persist it next to the salt to reject a wrong passphrase on open.
func KeyCheck(key []byte) string {
	h := sha256.New()
	h.Write([]byte("gophsync-key-check"))
	h.Write(key)
	return hex.EncodeToString(h.Sum(nil))
}

// VerifyKey compares key against a value produced by KeyCheck.
func VerifyKey(key []byte, check string) error {
	if subtle.ConstantTimeCompare([]byte(KeyCheck(key)), []byte(check)) != 1 {
		return ErrWrongPassphrase
	}
	return nil
}
