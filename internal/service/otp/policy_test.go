package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
)

func TestResolvePolicy(t *testing.T) {
	testCases := []struct {
		name     string
		codeType entity.VerificationCodeType
		expected Policy
	}{
		{
			name:     "регистрация",
			codeType: entity.VerificationCodeRegister,
			expected: Policy{Length: 6, TTL: 15 * time.Minute, MaxAttempts: 5, MaxResends: 3, Alphabet: AlphabetDigits, MaxPerHour: 5},
		},
		{
			name:     "восстановление пароля",
			codeType: entity.VerificationCodeForgotPassword,
			expected: Policy{Length: 8, TTL: 30 * time.Minute, MaxAttempts: 3, MaxResends: 2, Alphabet: AlphabetAlphanumeric, MaxPerHour: 3},
		},
		{
			name:     "отключение 2FA",
			codeType: entity.VerificationCodeDisable2FA,
			expected: Policy{Length: 8, TTL: 15 * time.Minute, MaxAttempts: 3, MaxResends: 1, Alphabet: AlphabetAlphanumeric, MaxPerHour: 2},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			p, err := ResolvePolicy(tc.codeType)
			require.NoError(t, err)
			assert.Equal(t, tc.expected, p)
		})
	}
}

func TestResolvePolicy_UnknownType(t *testing.T) {
	_, err := ResolvePolicy(entity.VerificationCodeType("LOGIN"))
	assert.ErrorIs(t, err, ErrUnknownType)
}
