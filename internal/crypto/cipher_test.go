package crypto

import (
	"crypto/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewCipher(t *testing.T) {
	tests := []struct {
		name    string
		keyLen  int
		wantErr bool
	}{
		{name: "valid key", keyLen: 32},
		{name: "too short", keyLen: 16, wantErr: true},
		{name: "too long", keyLen: 64, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, err := NewCipher(make([]byte, tt.keyLen))
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidKey)
				assert.Nil(t, c)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, c)
		})
	}
}

func TestCipher_SealOpen(t *testing.T) {
	key := make([]byte, KeySize)
	_, _ = rand.Read(key)

	c, err := NewCipher(key)
	require.NoError(t, err)

	plaintext := []byte(`{"title":"buy milk"}`)
	sealed, err := c.Seal(plaintext, []byte("todo/a"))
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "buy milk")

	// nonce случайный, поэтому два шифротекста различаются
	sealed2, err := c.Seal(plaintext, []byte("todo/a"))
	require.NoError(t, err)
	assert.NotEqual(t, sealed, sealed2)

	opened, err := c.Open(sealed, []byte("todo/a"))
	require.NoError(t, err)
	assert.Equal(t, plaintext, opened)
}

func TestCipher_OpenFailures(t *testing.T) {
	key := make([]byte, KeySize)
	_, _ = rand.Read(key)
	c, err := NewCipher(key)
	require.NoError(t, err)

	sealed, err := c.Seal([]byte("secret"), []byte("todo/a"))
	require.NoError(t, err)

	t.Run("wrong additional data", func(t *testing.T) {
		_, err := c.Open(sealed, []byte("todo/b"))
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("tampered", func(t *testing.T) {
		tampered := append([]byte(nil), sealed...)
		tampered[len(tampered)-1] ^= 0xff
		_, err := c.Open(tampered, []byte("todo/a"))
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("too short", func(t *testing.T) {
		_, err := c.Open([]byte{1, 2, 3}, nil)
		assert.ErrorIs(t, err, ErrDecrypt)
	})

	t.Run("other key", func(t *testing.T) {
		other := make([]byte, KeySize)
		_, _ = rand.Read(other)
		c2, err := NewCipher(other)
		require.NoError(t, err)
		_, err = c2.Open(sealed, []byte("todo/a"))
		assert.ErrorIs(t, err, ErrDecrypt)
	})
}
