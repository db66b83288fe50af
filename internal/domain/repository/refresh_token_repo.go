package repository

import "github.com/yourusername/ecommerce-api/internal/domain/entity"

// RefreshTokenRepository интерфейс для работы с refresh-токенами
type RefreshTokenRepository interface {
	// CreateToken создает новый refresh-токен и возвращает его ID
	CreateToken(refreshToken *entity.RefreshToken) (uint, error)

	// GetTokenByHash находит refresh-токен по SHA-256 хешу его значения
	GetTokenByHash(tokenHash string) (*entity.RefreshToken, error)

	// RevokeByID помечает токен как отозванный с указанием причины
	RevokeByID(id uint, reason string) error

	// RevokeAllForUser помечает все активные токены пользователя как отозванные
	RevokeAllForUser(userID uint, reason string) error

	// GetActiveTokensForUser получает все активные токены пользователя
	GetActiveTokensForUser(userID uint) ([]*entity.RefreshToken, error)

	// CountActiveForUser подсчитывает количество активных токенов пользователя
	CountActiveForUser(userID uint) (int, error)

	// RevokeOldestForUser оставляет пользователю не более limit активных токенов,
	// отзывая самые старые
	RevokeOldestForUser(userID uint, limit int) error

	// CleanupExpiredTokens удаляет все просроченные и отозванные токены
	CleanupExpiredTokens() (int64, error)
}
