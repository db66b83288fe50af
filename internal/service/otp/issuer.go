package otp

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/domain/repository"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
)

// ErrResendLimit возвращается, когда для активного кода исчерпан лимит повторных отправок
var ErrResendLimit = errors.New("resend limit exceeded")

// IssueResult описывает результат выпуска кода
type IssueResult struct {
	// Code — код в открытом виде, существует только для доставки пользователю
	Code string
	// HashedCode — bcrypt-хеш, сохраненный в базе
	HashedCode string
	// ExpiresAt — момент истечения кода
	ExpiresAt time.Time
	// RecordID — ID записи в базе
	RecordID uint
	// ResendCount — текущее число повторных отправок записи
	ResendCount int
}

// Issuer выпускает коды подтверждения: генерирует, хеширует и сохраняет,
// переиспользуя активную запись при повторной отправке.
// Конкурентные выпуски для одной пары (идентификатор, тип) сериализуются
// мьютексом по ключу, чтобы не плодить дубликаты записей.
type Issuer struct {
	repo   repository.VerificationCodeRepository
	source CodeSource
	hasher Hasher

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewIssuer создает новый экземпляр Issuer и возвращает ошибку при проблемах
func NewIssuer(repo repository.VerificationCodeRepository, source CodeSource, hasher Hasher) (*Issuer, error) {
	if repo == nil {
		return nil, fmt.Errorf("VerificationCodeRepository is required for Issuer")
	}
	if source == nil {
		return nil, fmt.Errorf("CodeSource is required for Issuer")
	}
	if hasher == nil {
		return nil, fmt.Errorf("Hasher is required for Issuer")
	}
	return &Issuer{
		repo:   repo,
		source: source,
		hasher: hasher,
		locks:  make(map[string]*sync.Mutex),
	}, nil
}

// lockFor возвращает мьютекс для пары (идентификатор, тип)
func (i *Issuer) lockFor(identifier string, codeType entity.VerificationCodeType) *sync.Mutex {
	key := string(codeType) + ":" + identifier
	i.mu.Lock()
	defer i.mu.Unlock()
	l, ok := i.locks[key]
	if !ok {
		l = &sync.Mutex{}
		i.locks[key] = l
	}
	return l
}

// Issue выпускает код для пары (идентификатор, тип).
//
// Если для пары уже есть активная (не использованная и не истекшая) запись,
// это повторная отправка: при исчерпанном лимите возвращается ErrResendLimit
// без каких-либо изменений в базе, иначе запись получает новый код и срок,
// счетчик отправок увеличивается, а счетчик попыток сохраняется.
// Истекшая неиспользованная запись начинает новый цикл со сброшенными
// счетчиками. Если записей нет — создается новая.
func (i *Issuer) Issue(identifier string, codeType entity.VerificationCodeType, method entity.DeliveryMethod, userID *uint) (*IssueResult, error) {
	policy, err := ResolvePolicy(codeType)
	if err != nil {
		return nil, err
	}
	if !entity.IsValidDeliveryMethod(method) {
		return nil, fmt.Errorf("%w: неподдерживаемый способ доставки %q", apperrors.ErrValidation, method)
	}

	lock := i.lockFor(identifier, codeType)
	lock.Lock()
	defer lock.Unlock()

	code, err := i.source.Generate(policy.Length, policy.Alphabet)
	if err != nil {
		return nil, fmt.Errorf("ошибка генерации кода: %w", err)
	}
	hashedCode, err := i.hasher.Hash(code)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(policy.TTL)

	existing, err := i.repo.FindLatestUnused(identifier, codeType)
	if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	if existing != nil {
		if existing.IsActive(now) {
			// Повторная отправка активного кода
			if existing.ResendCount >= policy.MaxResends {
				return nil, ErrResendLimit
			}
			if err := i.repo.RotateCode(existing.ID, hashedCode, expiresAt, method); err != nil {
				return nil, err
			}
			return &IssueResult{
				Code:        code,
				HashedCode:  hashedCode,
				ExpiresAt:   expiresAt,
				RecordID:    existing.ID,
				ResendCount: existing.ResendCount + 1,
			}, nil
		}

		// Истекшая неиспользованная запись: начинаем новый цикл на той же строке,
		// чтобы не нарушать уникальность активной записи на пару
		if err := i.repo.ReissueExpired(existing.ID, hashedCode, expiresAt, method); err != nil {
			return nil, err
		}
		return &IssueResult{
			Code:        code,
			HashedCode:  hashedCode,
			ExpiresAt:   expiresAt,
			RecordID:    existing.ID,
			ResendCount: 0,
		}, nil
	}

	record := &entity.VerificationCode{
		Identifier:     identifier,
		CodeHash:       hashedCode,
		Type:           codeType,
		MaxAttempts:    policy.MaxAttempts,
		DeliveryMethod: method,
		UserID:         userID,
		ExpiresAt:      expiresAt,
	}
	if err := i.repo.Create(record); err != nil {
		return nil, err
	}

	return &IssueResult{
		Code:        code,
		HashedCode:  hashedCode,
		ExpiresAt:   expiresAt,
		RecordID:    record.ID,
		ResendCount: 0,
	}, nil
}
