package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
	"gorm.io/gorm"
)

// RefreshTokenRepo реализует интерфейс RefreshTokenRepository с использованием PostgreSQL и GORM
type RefreshTokenRepo struct {
	db *gorm.DB
}

// NewRefreshTokenRepo создает новый экземпляр RefreshTokenRepo и возвращает ошибку при проблемах
func NewRefreshTokenRepo(gormDB *gorm.DB) (*RefreshTokenRepo, error) {
	if gormDB == nil {
		return nil, fmt.Errorf("GORM DB instance is required for RefreshTokenRepo")
	}
	return &RefreshTokenRepo{db: gormDB}, nil
}

// CreateToken сохраняет новый refresh токен в базе данных и возвращает его ID
func (r *RefreshTokenRepo) CreateToken(token *entity.RefreshToken) (uint, error) {
	result := r.db.Create(token)
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка создания refresh токена: %w", result.Error)
	}
	// GORM автоматически заполняет поле ID в переданной структуре token
	if token.ID == 0 {
		return 0, fmt.Errorf("не удалось получить ID после создания refresh токена")
	}
	return token.ID, nil
}

// GetTokenByHash находит refresh токен по SHA-256 хешу его значения
func (r *RefreshTokenRepo) GetTokenByHash(tokenHash string) (*entity.RefreshToken, error) {
	var token entity.RefreshToken
	result := r.db.Where("token_hash = ?", tokenHash).First(&token)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("ошибка получения refresh токена по хешу: %w", result.Error)
	}

	if token.RevokedAt != nil || token.ExpiresAt.Before(time.Now()) {
		return nil, apperrors.ErrExpiredToken
	}

	return &token, nil
}

// RevokeByID помечает токен как отозванный с указанием причины
func (r *RefreshTokenRepo) RevokeByID(id uint, reason string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("id = ? AND revoked_at IS NULL", id).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва refresh токена: %w", result.Error)
	}
	return nil
}

// RevokeAllForUser помечает все активные токены пользователя как отозванные
func (r *RefreshTokenRepo) RevokeAllForUser(userID uint, reason string) error {
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL", userID).
		Updates(map[string]interface{}{
			"revoked_at": time.Now(),
			"reason":     reason,
		})
	if result.Error != nil {
		return fmt.Errorf("ошибка отзыва всех refresh токенов пользователя: %w", result.Error)
	}
	return nil
}

// GetActiveTokensForUser возвращает все активные (не отозванные и не истекшие)
// refresh-токены пользователя
func (r *RefreshTokenRepo) GetActiveTokensForUser(userID uint) ([]*entity.RefreshToken, error) {
	var tokens []*entity.RefreshToken
	result := r.db.
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Order("created_at DESC").
		Find(&tokens)
	if result.Error != nil {
		return nil, fmt.Errorf("ошибка получения активных токенов пользователя: %w", result.Error)
	}
	return tokens, nil
}

// CountActiveForUser подсчитывает количество активных токенов пользователя
func (r *RefreshTokenRepo) CountActiveForUser(userID uint) (int, error) {
	var count int64
	result := r.db.Model(&entity.RefreshToken{}).
		Where("user_id = ? AND revoked_at IS NULL AND expires_at > ?", userID, time.Now()).
		Count(&count)
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка подсчета активных токенов пользователя: %w", result.Error)
	}
	return int(count), nil
}

// RevokeOldestForUser оставляет пользователю не более limit активных токенов,
// отзывая самые старые (лимит одновременных сессий)
func (r *RefreshTokenRepo) RevokeOldestForUser(userID uint, limit int) error {
	if limit <= 0 {
		return nil
	}

	tokens, err := r.GetActiveTokensForUser(userID)
	if err != nil {
		return err
	}
	if len(tokens) <= limit {
		return nil
	}

	// tokens отсортированы от новых к старым; отзываем хвост
	for _, token := range tokens[limit:] {
		if err := r.RevokeByID(token.ID, "session limit exceeded"); err != nil {
			return err
		}
	}
	return nil
}

// CleanupExpiredTokens удаляет все просроченные и отозванные токены
func (r *RefreshTokenRepo) CleanupExpiredTokens() (int64, error) {
	result := r.db.
		Where("expires_at < ? OR revoked_at IS NOT NULL", time.Now()).
		Delete(&entity.RefreshToken{})
	if result.Error != nil {
		return 0, fmt.Errorf("ошибка очистки refresh токенов: %w", result.Error)
	}
	return result.RowsAffected, nil
}
