package ffs

import (
	"crypto/sha256"
	"fmt"
	"io"

	"golang.org/x/crypto/chacha20"
	"golang.org/x/crypto/hkdf"
)

const seedInfo = "ffs-go/v1/drbg"

type seededReader struct {
	cipher *chacha20.Cipher
}

// NewSeededReader returns a deterministic, cryptographically strong byte
// stream: the ChaCha20 keystream under a key derived from seed with
// HKDF-SHA256. Equal seeds give equal streams.
func NewSeededReader(seed []byte) (io.Reader, error) {
	if len(seed) == 0 {
		return nil, fmt.Errorf("%w: empty seed", ErrRandomSource)
	}
	key := make([]byte, chacha20.KeySize)
	defer ZeroizeBytes(key)
	if _, err := io.ReadFull(hkdf.New(sha256.New, seed, nil, []byte(seedInfo)), key); err != nil {
		return nil, fmt.Errorf("%w: derive key: %w", ErrRandomSource, err)
	}
	nonce := make([]byte, chacha20.NonceSize)
	c, err := chacha20.NewUnauthenticatedCipher(key, nonce)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRandomSource, err)
	}
	return &seededReader{cipher: c}, nil
}

func (r *seededReader) Read(p []byte) (int, error) {
	clear(p)
	r.cipher.XORKeyStream(p, p)
	return len(p), nil
}
