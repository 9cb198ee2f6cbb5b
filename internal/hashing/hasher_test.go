package hashing

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"travinhgo-backend/internal/config"
)

func testConfig(salt string, iterations int) *config.Config {
	return &config.Config{
		Hashing: config.HashingConfig{Salt: salt, Iterations: iterations},
	}
}

func TestHashDeterministic(t *testing.T) {
	h := NewHasher(testConfig("salt-a", 10000))

	inputs := []string{"123456", "000000", "", "a-session-id", "+15551234567"}
	for _, in := range inputs {
		assert.Equal(t, h.Hash(in), h.Hash(in), "hash of %q must be stable", in)
	}
}

func TestHashDistinctInputs(t *testing.T) {
	h := NewHasher(testConfig("salt-a", 10000))

	seen := make(map[string]string)
	for _, in := range []string{"100000", "100001", "999999", "", "x", "X"} {
		out := h.Hash(in)
		prev, dup := seen[out]
		require.False(t, dup, "collision between %q and %q", in, prev)
		seen[out] = in
	}
}

func TestHashDependsOnSalt(t *testing.T) {
	a := NewHasher(testConfig("salt-a", 10000))
	b := NewHasher(testConfig("salt-b", 10000))

	assert.NotEqual(t, a.Hash("123456"), b.Hash("123456"))
}

func TestIterationFloor(t *testing.T) {
	// A misconfigured low iteration count is raised to the floor, so the
	// output must match an explicitly-floored hasher.
	low := NewHasher(testConfig("salt-a", 1))
	floor := NewHasher(testConfig("salt-a", 10000))

	assert.Equal(t, floor.Hash("123456"), low.Hash("123456"))
}

func TestCompare(t *testing.T) {
	h := NewHasher(testConfig("salt-a", 10000))

	encoded := h.Hash("654321")
	assert.True(t, h.Compare("654321", encoded))
	assert.False(t, h.Compare("654320", encoded))
	assert.False(t, h.Compare("", encoded))
}
