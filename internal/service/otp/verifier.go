package otp

import (
	"errors"
	"fmt"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/domain/repository"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
)

// Причины отказа в проверке кода. Значения попадают в API-ответы,
// клиенты различают по ним сценарии повторной отправки и блокировки.
const (
	ReasonNotFound    = "not_found"
	ReasonAlreadyUsed = "already_used"
	ReasonLocked      = "locked"
	ReasonExpired     = "expired"
	ReasonMismatch    = "mismatch"
)

// VerifyResult описывает исход проверки кода
type VerifyResult struct {
	// Valid — код совпал и запись помечена использованной
	Valid bool
	// Expired — срок действия кода истек
	Expired bool
	// Locked — исчерпан лимит неверных попыток
	Locked bool
	// Reason — машиночитаемая причина отказа, пустая при успехе
	Reason string
	// Message — человекочитаемое сообщение для клиента
	Message string
	// AttemptsRemaining — сколько попыток осталось после этой проверки
	AttemptsRemaining int
	// RecordID — ID проверенной записи, 0 если запись не найдена
	RecordID uint
	// UserID — владелец записи, если был привязан при выпуске
	UserID *uint
}

// Verifier проверяет коды подтверждения, ведя счетчик неверных попыток
type Verifier struct {
	repo   repository.VerificationCodeRepository
	hasher Hasher
}

// NewVerifier создает новый экземпляр Verifier и возвращает ошибку при проблемах
func NewVerifier(repo repository.VerificationCodeRepository, hasher Hasher) (*Verifier, error) {
	if repo == nil {
		return nil, fmt.Errorf("VerificationCodeRepository is required for Verifier")
	}
	if hasher == nil {
		return nil, fmt.Errorf("Hasher is required for Verifier")
	}
	return &Verifier{repo: repo, hasher: hasher}, nil
}

// Verify сверяет введенный код с последней записью пары (идентификатор, тип).
//
// Порядок проверок важен: заблокированная запись отклоняется до сверки хеша,
// чтобы перебор после блокировки не тратил bcrypt-циклы и не раскрывал
// совпадение; истекший код не увеличивает счетчик попыток.
func (v *Verifier) Verify(identifier string, codeType entity.VerificationCodeType, code string) (*VerifyResult, error) {
	record, err := v.repo.FindLatest(identifier, codeType)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return &VerifyResult{
				Reason:  ReasonNotFound,
				Message: "Invalid verification code",
			}, nil
		}
		return nil, err
	}

	result := &VerifyResult{
		RecordID: record.ID,
		UserID:   record.UserID,
	}

	if record.IsUsed {
		result.Reason = ReasonAlreadyUsed
		result.Message = "Invalid verification code"
		return result, nil
	}

	if record.IsLocked() {
		result.Locked = true
		result.Reason = ReasonLocked
		result.Message = "Invalid verification code"
		return result, nil
	}

	if record.IsExpired(time.Now()) {
		result.Expired = true
		result.Reason = ReasonExpired
		result.Message = "Verification code has expired"
		result.AttemptsRemaining = record.AttemptsRemaining()
		return result, nil
	}

	match, err := v.hasher.Compare(record.CodeHash, code)
	if err != nil {
		return nil, err
	}

	if !match {
		if err := v.repo.IncrementAttempts(record.ID); err != nil {
			return nil, err
		}
		record.Attempts++
		result.Reason = ReasonMismatch
		result.Locked = record.IsLocked()
		result.Message = "Invalid verification code"
		result.AttemptsRemaining = record.AttemptsRemaining()
		return result, nil
	}

	if err := v.repo.MarkUsed(record.ID); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			// Конкурентная проверка успела первой
			result.Reason = ReasonAlreadyUsed
			result.Message = "Invalid verification code"
			return result, nil
		}
		return nil, err
	}

	result.Valid = true
	result.Message = "Verification code is valid"
	result.AttemptsRemaining = record.AttemptsRemaining()
	return result, nil
}
