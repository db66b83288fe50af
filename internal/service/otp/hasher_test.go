package otp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher_HashAndCompare(t *testing.T) {
	// Arrange: минимальная стоимость, чтобы тест не тормозил
	hasher := NewBcryptHasher(bcrypt.MinCost)

	// Act
	hashed, err := hasher.Hash("482913")

	// Assert
	require.NoError(t, err)
	assert.NotEqual(t, "482913", hashed)
	assert.True(t, strings.HasPrefix(hashed, "$2a$"))

	match, err := hasher.Compare(hashed, "482913")
	require.NoError(t, err)
	assert.True(t, match)

	match, err = hasher.Compare(hashed, "482914")
	require.NoError(t, err)
	assert.False(t, match)
}

func TestBcryptHasher_Compare_CorruptHash(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	match, err := hasher.Compare("not-a-bcrypt-hash", "482913")

	assert.Error(t, err)
	assert.False(t, match)
}

func TestNewBcryptHasher_CostFallback(t *testing.T) {
	testCases := []struct {
		name         string
		cost         int
		expectedCost int
	}{
		{"ниже минимума", 2, DefaultBcryptCost},
		{"выше максимума", 40, DefaultBcryptCost},
		{"допустимый", bcrypt.MinCost, bcrypt.MinCost},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			hasher := NewBcryptHasher(tc.cost)
			assert.Equal(t, tc.expectedCost, hasher.cost)
		})
	}
}
