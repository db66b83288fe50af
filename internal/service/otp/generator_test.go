package otp

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSecureGenerator_Generate_Digits(t *testing.T) {
	// Arrange
	gen := NewSecureGenerator()

	// Act & Assert: цифровой код нужной длины на многих итерациях
	for i := 0; i < 200; i++ {
		code, err := gen.Generate(6, AlphabetDigits)
		require.NoError(t, err)
		assert.Len(t, code, 6)
		for _, c := range code {
			assert.True(t, c >= '0' && c <= '9', "символ %q не является цифрой в коде %q", c, code)
		}
	}
}

func TestSecureGenerator_Generate_Alphanumeric(t *testing.T) {
	// Arrange
	gen := NewSecureGenerator()

	// Act & Assert: буквенно-цифровой код всегда содержит хотя бы одну цифру
	for i := 0; i < 200; i++ {
		code, err := gen.Generate(8, AlphabetAlphanumeric)
		require.NoError(t, err)
		assert.Len(t, code, 8)
		assert.True(t, strings.ContainsAny(code, digitChars), "код %q не содержит цифр", code)
		for _, c := range code {
			assert.True(t, strings.ContainsRune(alphanumChars, c), "недопустимый символ %q в коде %q", c, code)
		}
	}
}

func TestSecureGenerator_Generate_Varies(t *testing.T) {
	// Arrange
	gen := NewSecureGenerator()
	seen := make(map[string]bool)

	// Act
	for i := 0; i < 50; i++ {
		code, err := gen.Generate(8, AlphabetAlphanumeric)
		require.NoError(t, err)
		seen[code] = true
	}

	// Assert: генератор не возвращает один и тот же код
	assert.Greater(t, len(seen), 1)
}

func TestSecureGenerator_Generate_InvalidLength(t *testing.T) {
	gen := NewSecureGenerator()

	testCases := []struct {
		name   string
		length int
	}{
		{"слишком короткий", 3},
		{"ноль", 0},
		{"отрицательный", -1},
		{"слишком длинный", 13},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			code, err := gen.Generate(tc.length, AlphabetDigits)
			assert.ErrorIs(t, err, ErrInvalidLength)
			assert.Empty(t, code)
		})
	}
}

func TestSecureGenerator_Generate_BoundaryLengths(t *testing.T) {
	gen := NewSecureGenerator()

	for _, length := range []int{MinCodeLength, MaxCodeLength} {
		code, err := gen.Generate(length, AlphabetDigits)
		require.NoError(t, err)
		assert.Len(t, code, length)
	}
}

func TestFixedSource_Generate(t *testing.T) {
	testCases := []struct {
		name     string
		fixed    string
		length   int
		expected string
	}{
		{"точная длина", "123456", 6, "123456"},
		{"усечение", "123456789", 6, "123456"},
		{"дополнение нулями", "12", 4, "1200"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			src := &FixedSource{Code: tc.fixed}
			code, err := src.Generate(tc.length, AlphabetDigits)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, code)
		})
	}
}

func TestFixedSource_Generate_InvalidLength(t *testing.T) {
	src := &FixedSource{Code: "123456"}
	_, err := src.Generate(2, AlphabetDigits)
	assert.ErrorIs(t, err, ErrInvalidLength)
}
