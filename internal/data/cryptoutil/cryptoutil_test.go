package cryptoutil

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashPassword_Deterministic(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltLength)

	first := HashPassword("hunter2", salt, DefaultIterations)
	second := HashPassword("hunter2", salt, DefaultIterations)

	assert.Equal(t, first, second)
	assert.Len(t, first, 32)
}

func TestHashPassword_SaltChangesDigest(t *testing.T) {
	saltA := bytes.Repeat([]byte{0x01}, SaltLength)
	saltB := bytes.Repeat([]byte{0x02}, SaltLength)

	assert.NotEqual(t,
		HashPassword("hunter2", saltA, DefaultIterations),
		HashPassword("hunter2", saltB, DefaultIterations),
	)
}

func TestHashPassword_IterationCountChangesDigest(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltLength)

	assert.NotEqual(t,
		HashPassword("hunter2", salt, 10),
		HashPassword("hunter2", salt, 11),
	)
}

func TestHashPassword_ZeroIterationsIsSingleDigest(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltLength)

	// Zero extra iterations still digests salt||password once.
	sum := HashPassword("hunter2", salt, 0)
	assert.Len(t, sum, 32)
	assert.NotEqual(t, sum, HashPassword("hunter2", salt, 1))
}

func TestVerifyPassword(t *testing.T) {
	salt := bytes.Repeat([]byte{0x42}, SaltLength)
	hashed := HashPassword("correct horse", salt, DefaultIterations)

	tests := []struct {
		name       string
		password   string
		iterations int
		want       bool
	}{
		{name: "match", password: "correct horse", iterations: DefaultIterations, want: true},
		{name: "wrong password", password: "battery staple", iterations: DefaultIterations, want: false},
		{name: "wrong iteration count", password: "correct horse", iterations: DefaultIterations - 1, want: false},
		{name: "empty candidate", password: "", iterations: DefaultIterations, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, VerifyPassword(tt.password, salt, tt.iterations, hashed))
		})
	}
}

func TestRandomSaltSource(t *testing.T) {
	src := RandomSaltSource{}

	first, err := src.NewSalt()
	require.NoError(t, err)
	second, err := src.NewSalt()
	require.NoError(t, err)

	assert.Len(t, first, SaltLength)
	assert.Len(t, second, SaltLength)
	assert.NotEqual(t, first, second)
}

func TestFixedSaltSource_ReturnsCopy(t *testing.T) {
	src := FixedSaltSource{Salt: bytes.Repeat([]byte{0x07}, SaltLength)}

	salt, err := src.NewSalt()
	require.NoError(t, err)

	salt[0] = 0xFF
	again, err := src.NewSalt()
	require.NoError(t, err)
	assert.Equal(t, byte(0x07), again[0])
}
