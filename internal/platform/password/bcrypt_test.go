package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestNewHasher(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		cost     int
		expected int
	}{
		{"min cost", bcrypt.MinCost, bcrypt.MinCost},
		{"explicit cost", 12, 12},
		{"zero falls back to default", 0, bcrypt.DefaultCost},
		{"too high falls back to default", bcrypt.MaxCost + 1, bcrypt.DefaultCost},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.expected, NewHasher(tt.cost).Cost())
		})
	}
}

func TestHasher_HashAndVerify(t *testing.T) {
	t.Parallel()

	h := NewHasher(bcrypt.MinCost)

	hash1, err := h.Hash("secret1")
	require.NoError(t, err)
	hash2, err := h.Hash("secret1")
	require.NoError(t, err)

	assert.NotEqual(t, "secret1", hash1, "password is not hashed")
	assert.NotEqual(t, hash1, hash2, "each hash should use a fresh salt")
	assert.Equal(t, len(hash1), len(hash2))

	cost, err := bcrypt.Cost([]byte(hash1))
	require.NoError(t, err)
	assert.Equal(t, bcrypt.MinCost, cost)

	assert.True(t, h.Verify("secret1", hash1))
	assert.True(t, h.Verify("secret1", hash2))
	assert.False(t, h.Verify("wrong", hash1))
	assert.False(t, h.Verify("secret1", ""))
	assert.False(t, h.Verify("secret1", "not-a-bcrypt-hash"))
}

func TestHasher_DummyHashUsesConfiguredCost(t *testing.T) {
	t.Parallel()

	for _, c := range []int{bcrypt.MinCost, bcrypt.MinCost + 1} {
		h := NewHasher(c)
		cost, err := bcrypt.Cost(h.dummy)
		require.NoError(t, err)
		assert.Equal(t, c, cost)
		assert.False(t, h.Verify("dummy-password", ""), "accounts without a hash never verify")
	}
}

func TestHasher_HashTooLong(t *testing.T) {
	t.Parallel()

	_, err := NewHasher(bcrypt.MinCost).Hash(strings.Repeat("a", MaxLength+1))

	assert.Error(t, err)
}
