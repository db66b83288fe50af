package redis

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
)

// otpRateLimitWindow — размер окна лимитирования отправки кодов
const otpRateLimitWindow = time.Hour

// OTPRateLimiter ограничивает частоту отправки кодов подтверждения
// на один идентификатор (email/телефон) по фиксированному окну в Redis
type OTPRateLimiter struct {
	client redis.UniversalClient
}

// NewOTPRateLimiter создает новый экземпляр OTPRateLimiter
func NewOTPRateLimiter(client redis.UniversalClient) (*OTPRateLimiter, error) {
	if client == nil {
		return nil, fmt.Errorf("Redis client instance is required for OTPRateLimiter")
	}
	return &OTPRateLimiter{client: client}, nil
}

// Allow проверяет, не превышен ли лимит отправок для пары (тип, идентификатор).
// Возвращает (true, 0, nil) если отправка разрешена, иначе (false, retryAfter, nil).
// При недоступности Redis лимитер пропускает запрос (fail-open), чтобы сбой
// кеша не блокировал вход пользователей.
func (l *OTPRateLimiter) Allow(ctx context.Context, codeType entity.VerificationCodeType, identifier string, maxPerWindow int) (bool, time.Duration, error) {
	key := fmt.Sprintf("otp:rl:%s:%s", codeType, identifier)

	count, err := l.client.Incr(ctx, key).Result()
	if err != nil {
		log.Printf("[OTPRateLimiter] Ошибка Redis INCR для ключа %s: %v. Запрос пропущен.", key, err)
		return true, 0, nil
	}

	// Устанавливаем TTL только при создании ключа, чтобы окно не продлевалось
	if count == 1 {
		if err := l.client.Expire(ctx, key, otpRateLimitWindow).Err(); err != nil {
			log.Printf("[OTPRateLimiter] Ошибка Redis EXPIRE для ключа %s: %v", key, err)
		}
	}

	if count > int64(maxPerWindow) {
		ttl, err := l.client.TTL(ctx, key).Result()
		if err != nil || ttl < 0 {
			ttl = otpRateLimitWindow
		}
		return false, ttl, nil
	}

	return true, 0, nil
}

// Reset сбрасывает счетчик отправок для пары (тип, идентификатор).
// Используется в тестах и при ручном вмешательстве поддержки.
func (l *OTPRateLimiter) Reset(ctx context.Context, codeType entity.VerificationCodeType, identifier string) error {
	key := fmt.Sprintf("otp:rl:%s:%s", codeType, identifier)
	if err := l.client.Del(ctx, key).Err(); err != nil {
		return fmt.Errorf("ошибка сброса лимита отправок: %w", err)
	}
	return nil
}
