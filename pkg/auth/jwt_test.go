package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
)

func TestJWTService_GenerateAndParse(t *testing.T) {
	// Arrange
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	// Act
	token, err := svc.GenerateToken(42, "user@example.com", "client")
	require.NoError(t, err)

	claims, err := svc.ParseToken(token)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "user@example.com", claims.Email)
	assert.Equal(t, "client", claims.Role)
	assert.NotEmpty(t, claims.ID)
}

func TestJWTService_ParseToken_WrongSecret(t *testing.T) {
	// Arrange
	svc1, err := NewJWTService("secret-one", 1)
	require.NoError(t, err)
	svc2, err := NewJWTService("secret-two", 1)
	require.NoError(t, err)

	token, err := svc1.GenerateToken(42, "user@example.com", "client")
	require.NoError(t, err)

	// Act
	_, err = svc2.ParseToken(token)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestJWTService_ParseToken_Expired(t *testing.T) {
	// Arrange: токен с истекшим сроком, подписанный тем же секретом
	svc, err := NewJWTService("test-secret", 1)
	require.NoError(t, err)

	claims := JWTCustomClaims{
		UserID: 42,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	expired, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)

	// Act
	_, err = svc.ParseToken(expired)

	// Assert
	assert.ErrorIs(t, err, apperrors.ErrExpiredToken)
}

func TestNewJWTService_RequiresSecret(t *testing.T) {
	_, err := NewJWTService("", 1)
	assert.Error(t, err)
}
