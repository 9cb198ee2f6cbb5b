package hashing

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/crypto/pbkdf2"

	"travinhgo-backend/internal/config"
)

const (
	keyLength     = 32 // 256-bit output
	minIterations = 10000
)

// Hasher derives storable hashes from raw OTP codes and session ids. The
// transform is deterministic: the salt is a fixed application-wide value
// injected from configuration, so a stored record can be looked up by the
// hash of the presented secret. The iteration count is the defense against
// offline guessing of the 6-digit code space.
type Hasher struct {
	salt       []byte
	iterations int
}

func NewHasher(cfg *config.Config) *Hasher {
	iterations := cfg.Hashing.Iterations
	if iterations < minIterations {
		iterations = minIterations
	}
	return &Hasher{
		salt:       []byte(cfg.Hashing.Salt),
		iterations: iterations,
	}
}

// Hash returns the PBKDF2-SHA256 digest of raw, base64-encoded. Empty input
// is valid and hashes deterministically.
func (h *Hasher) Hash(raw string) string {
	key := pbkdf2.Key([]byte(raw), h.salt, h.iterations, keyLength, sha256.New)
	return base64.RawURLEncoding.EncodeToString(key)
}

// Compare reports whether raw hashes to encoded, in constant time.
func (h *Hasher) Compare(raw, encoded string) bool {
	computed := h.Hash(raw)
	return subtle.ConstantTimeCompare([]byte(computed), []byte(encoded)) == 1
}
