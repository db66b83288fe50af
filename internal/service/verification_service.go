package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/domain/repository"
	"github.com/yourusername/ecommerce-api/internal/service/otp"
)

// RateLimiter ограничивает частоту выпуска кодов на идентификатор
type RateLimiter interface {
	Allow(ctx context.Context, codeType entity.VerificationCodeType, identifier string, maxPerWindow int) (bool, time.Duration, error)
}

// SendCodeResult описывает результат отправки кода клиенту
type SendCodeResult struct {
	// Identifier - замаскированный идентификатор для отображения пользователю
	Identifier string
	// ExpiresAt - момент истечения кода
	ExpiresAt time.Time
	// ResendCount - число повторных отправок текущего кода
	ResendCount int
	// RetryAfter - через сколько можно повторить при превышении лимита
	RetryAfter time.Duration
}

// VerificationService оркестрирует выпуск, доставку и проверку кодов подтверждения
type VerificationService struct {
	issuer      *otp.Issuer
	verifier    *otp.Verifier
	rateLimiter RateLimiter
	emailSvc    EmailService
	codeRepo    repository.VerificationCodeRepository
}

// NewVerificationService создает новый сервис кодов подтверждения
func NewVerificationService(
	issuer *otp.Issuer,
	verifier *otp.Verifier,
	rateLimiter RateLimiter,
	emailSvc EmailService,
	codeRepo repository.VerificationCodeRepository,
) (*VerificationService, error) {
	if issuer == nil || verifier == nil {
		return nil, fmt.Errorf("issuer and verifier are required for VerificationService")
	}
	if rateLimiter == nil {
		return nil, fmt.Errorf("RateLimiter is required for VerificationService")
	}
	if emailSvc == nil {
		return nil, fmt.Errorf("EmailService is required for VerificationService")
	}
	if codeRepo == nil {
		return nil, fmt.Errorf("VerificationCodeRepository is required for VerificationService")
	}
	return &VerificationService{
		issuer:      issuer,
		verifier:    verifier,
		rateLimiter: rateLimiter,
		emailSvc:    emailSvc,
		codeRepo:    codeRepo,
	}, nil
}

// SendCode выпускает код для пары (идентификатор, тип) и доставляет его
// указанным способом. Код в открытом виде наружу не возвращается.
func (s *VerificationService) SendCode(ctx context.Context, identifier string, codeType entity.VerificationCodeType, method entity.DeliveryMethod, userID *uint) (*SendCodeResult, error) {
	policy, err := otp.ResolvePolicy(codeType)
	if err != nil {
		return nil, err
	}

	allowed, retryAfter, err := s.rateLimiter.Allow(ctx, codeType, identifier, policy.MaxPerHour)
	if err != nil {
		return nil, fmt.Errorf("ошибка проверки лимита отправок: %w", err)
	}
	if !allowed {
		log.Printf("[VerificationService] Превышен лимит отправок: identifier=%s type=%s", maskIdentifier(identifier), codeType)
		return &SendCodeResult{RetryAfter: retryAfter}, ErrRateLimitExceeded
	}

	issued, err := s.issuer.Issue(identifier, codeType, method, userID)
	if err != nil {
		if errors.Is(err, otp.ErrResendLimit) {
			return nil, ErrResendLimitExceeded
		}
		return nil, err
	}

	if err := s.deliver(ctx, identifier, issued, codeType, method, policy.TTL); err != nil {
		// Запись уже создана: пользователь сможет запросить повторную отправку
		log.Printf("[VerificationService] Ошибка доставки кода: identifier=%s type=%s method=%s: %v",
			maskIdentifier(identifier), codeType, method, err)
		return nil, fmt.Errorf("ошибка доставки кода подтверждения: %w", err)
	}

	log.Printf("[VerificationService] Код отправлен: identifier=%s type=%s method=%s resend=%d",
		maskIdentifier(identifier), codeType, method, issued.ResendCount)

	return &SendCodeResult{
		Identifier:  maskIdentifier(identifier),
		ExpiresAt:   issued.ExpiresAt,
		ResendCount: issued.ResendCount,
	}, nil
}

// deliver отправляет код по выбранному каналу. Сейчас реализована только
// электронная почта; остальные каналы принимаются API, но доставляются
// через почту как запасной вариант.
// TODO: подключить SMS-провайдера, когда появится договор с оператором.
func (s *VerificationService) deliver(ctx context.Context, identifier string, issued *otp.IssueResult, codeType entity.VerificationCodeType, method entity.DeliveryMethod, ttl time.Duration) error {
	if method != entity.DeliveryEmail {
		log.Printf("[VerificationService] Канал %s не подключен, доставка через email", method)
	}
	idempotencyKey := fmt.Sprintf("otp-%s-%d-%d", codeType, issued.RecordID, issued.ResendCount)
	return s.emailSvc.SendVerificationCode(ctx, identifier, issued.Code, codeType, ttl, idempotencyKey)
}

// VerifyCode проверяет введенный пользователем код
func (s *VerificationService) VerifyCode(identifier string, codeType entity.VerificationCodeType, code string) (*otp.VerifyResult, error) {
	result, err := s.verifier.Verify(identifier, codeType, code)
	if err != nil {
		return nil, err
	}

	if result.Valid {
		log.Printf("[VerificationService] Код подтвержден: identifier=%s type=%s", maskIdentifier(identifier), codeType)
	} else {
		log.Printf("[VerificationService] Отказ в проверке кода: identifier=%s type=%s reason=%s",
			maskIdentifier(identifier), codeType, result.Reason)
	}

	return result, nil
}

// CleanupExpired удаляет просроченные коды и возвращает число удаленных записей
func (s *VerificationService) CleanupExpired() (int64, error) {
	deleted, err := s.codeRepo.CleanupExpired()
	if err != nil {
		return 0, fmt.Errorf("ошибка очистки просроченных кодов: %w", err)
	}
	if deleted > 0 {
		log.Printf("[VerificationService] Удалено просроченных кодов: %d", deleted)
	}
	return deleted, nil
}

// maskIdentifier маскирует email или телефон для логов и ответов API
func maskIdentifier(identifier string) string {
	if at := strings.Index(identifier, "@"); at > 0 {
		local := identifier[:at]
		domain := identifier[at:]
		if len(local) <= 2 {
			return strings.Repeat("*", len(local)) + domain
		}
		return local[:1] + strings.Repeat("*", len(local)-2) + local[len(local)-1:] + domain
	}
	if len(identifier) <= 4 {
		return strings.Repeat("*", len(identifier))
	}
	return strings.Repeat("*", len(identifier)-4) + identifier[len(identifier)-4:]
}
