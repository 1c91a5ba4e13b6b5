package cryptoutil

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"fmt"
	"io"
)

const (
	// SaltLength is the number of random bytes prepended to the password
	// before the first digest round.
	SaltLength = 32

	// DefaultIterations is the extra digest round count for newly created
	// accounts. Existing accounts keep the count they were hashed with.
	DefaultIterations = 10000
)

// SaltSource produces per-account salts.
type SaltSource interface {
	NewSalt() ([]byte, error)
}

// RandomSaltSource draws salts from crypto/rand.
type RandomSaltSource struct{}

func (RandomSaltSource) NewSalt() ([]byte, error) {
	salt := make([]byte, SaltLength)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return nil, fmt.Errorf("read salt: %w", err)
	}
	return salt, nil
}

// FixedSaltSource returns the same salt on every call. Tests only.
type FixedSaltSource struct {
	Salt []byte
}

func (s FixedSaltSource) NewSalt() ([]byte, error) {
	return append([]byte(nil), s.Salt...), nil
}

// HashPassword digests salt||password with SHA-256, then re-digests the
// result the given number of extra iterations. The iteration count is stored
// per account so it can be raised for new accounts without rehashing old
// ones.
func HashPassword(password string, salt []byte, iterations int) []byte {
	h := sha256.New()
	h.Write(salt)
	h.Write([]byte(password))
	sum := h.Sum(nil)
	for i := 0; i < iterations; i++ {
		next := sha256.Sum256(sum)
		sum = next[:]
	}
	return sum
}

// VerifyPassword reports whether the candidate password hashes to the stored
// digest. Comparison is constant time.
func VerifyPassword(password string, salt []byte, iterations int, hashed []byte) bool {
	candidate := HashPassword(password, salt, iterations)
	return subtle.ConstantTimeCompare(candidate, hashed) == 1
}
