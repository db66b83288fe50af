package postgres

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
	"gorm.io/gorm"
)

// VerificationCodeRepo реализует repository.VerificationCodeRepository
type VerificationCodeRepo struct {
	db *gorm.DB
}

// NewVerificationCodeRepo создает новый репозиторий кодов подтверждения
func NewVerificationCodeRepo(db *gorm.DB) *VerificationCodeRepo {
	return &VerificationCodeRepo{db: db}
}

// Create вставляет новую запись кода. Частичный уникальный индекс
// (identifier, type) WHERE is_used = false в БД гарантирует, что две
// конкурентные вставки не создадут два активных кода для одной пары.
func (r *VerificationCodeRepo) Create(code *entity.VerificationCode) error {
	if err := r.db.Create(code).Error; err != nil {
		return fmt.Errorf("failed to create verification code: %w", err)
	}
	return nil
}

// FindLatestUnused возвращает самую свежую неиспользованную запись для пары
// (identifier, type), независимо от срока действия
func (r *VerificationCodeRepo) FindLatestUnused(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	var code entity.VerificationCode
	err := r.db.
		Where("identifier = ? AND type = ? AND is_used = ?", identifier, codeType, false).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find unused verification code: %w", err)
	}
	return &code, nil
}

// FindLatest возвращает самую свежую запись для пары (identifier, type),
// включая использованные и истекшие
func (r *VerificationCodeRepo) FindLatest(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	var code entity.VerificationCode
	err := r.db.
		Where("identifier = ? AND type = ?", identifier, codeType).
		Order("created_at DESC").
		First(&code).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find verification code: %w", err)
	}
	return &code, nil
}

// RotateCode заменяет хеш и срок действия при повторной отправке и атомарно
// инкрементирует resend_count. Счётчик попыток НЕ сбрасывается: попытки
// накапливаются за всё время жизни записи.
func (r *VerificationCodeRepo) RotateCode(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	return r.db.Model(&entity.VerificationCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"code":            codeHash,
			"expires_at":      expiresAt,
			"resend_count":    gorm.Expr("resend_count + 1"),
			"delivery_method": deliveryMethod,
			"updated_at":      time.Now(),
		}).Error
}

// ReissueExpired начинает новый цикл на истекшей неиспользованной записи:
// новый хеш и срок, счётчики попыток и повторных отправок обнуляются.
// Повторное использование строки сохраняет инвариант частичного уникального
// индекса (не более одной неиспользованной записи на пару).
func (r *VerificationCodeRepo) ReissueExpired(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	return r.db.Model(&entity.VerificationCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"code":            codeHash,
			"expires_at":      expiresAt,
			"attempts":        0,
			"resend_count":    0,
			"delivery_method": deliveryMethod,
			"updated_at":      time.Now(),
		}).Error
}

// IncrementAttempts атомарно увеличивает счётчик попыток на уровне БД,
// исключая потерянные обновления при конкурентных проверках
func (r *VerificationCodeRepo) IncrementAttempts(id uint) error {
	return r.db.Model(&entity.VerificationCode{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"attempts":   gorm.Expr("attempts + 1"),
			"updated_at": time.Now(),
		}).Error
}

// MarkUsed переводит запись в терминальное состояние is_used=true.
// Условие is_used = false делает переход однократным.
func (r *VerificationCodeRepo) MarkUsed(id uint) error {
	now := time.Now()
	result := r.db.Model(&entity.VerificationCode{}).
		Where("id = ? AND is_used = ?", id, false).
		Updates(map[string]interface{}{
			"is_used":    true,
			"used_at":    now,
			"updated_at": now,
		})
	if result.Error != nil {
		return fmt.Errorf("failed to mark verification code as used: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return apperrors.ErrConflict
	}
	return nil
}

// CleanupExpired удаляет все записи с истекшим сроком действия и возвращает
// количество удаленных строк
func (r *VerificationCodeRepo) CleanupExpired() (int64, error) {
	result := r.db.
		Where("expires_at < ?", time.Now()).
		Delete(&entity.VerificationCode{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to cleanup expired verification codes: %w", result.Error)
	}
	return result.RowsAffected, nil
}
