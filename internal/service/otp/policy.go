package otp

import (
	"errors"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
)

// ErrUnknownType возвращается при запросе политики для неизвестного типа кода
var ErrUnknownType = errors.New("unknown verification code type")

// Alphabet определяет набор символов, из которых составляется код
type Alphabet string

const (
	// AlphabetDigits — только цифры, для коротких кодов регистрации
	AlphabetDigits Alphabet = "digits"
	// AlphabetAlphanumeric — буквы и цифры, для более длинных кодов
	AlphabetAlphanumeric Alphabet = "alphanumeric"
)

// Policy описывает параметры выпуска и проверки кода для конкретного типа
type Policy struct {
	// Length — длина генерируемого кода в символах
	Length int
	// TTL — время жизни кода с момента выпуска
	TTL time.Duration
	// MaxAttempts — максимум неверных попыток ввода, после которого код блокируется
	MaxAttempts int
	// MaxResends — максимум повторных отправок активного кода
	MaxResends int
	// Alphabet — набор символов кода
	Alphabet Alphabet
	// MaxPerHour — лимит выпусков на один идентификатор в час
	MaxPerHour int
}

// policies задает параметры для каждого типа кода.
// Значения согласованы с продуктовыми требованиями: короткий цифровой код
// для регистрации, более длинные буквенно-цифровые для чувствительных операций.
var policies = map[entity.VerificationCodeType]Policy{
	entity.VerificationCodeRegister: {
		Length:      6,
		TTL:         15 * time.Minute,
		MaxAttempts: 5,
		MaxResends:  3,
		Alphabet:    AlphabetDigits,
		MaxPerHour:  5,
	},
	entity.VerificationCodeForgotPassword: {
		Length:      8,
		TTL:         30 * time.Minute,
		MaxAttempts: 3,
		MaxResends:  2,
		Alphabet:    AlphabetAlphanumeric,
		MaxPerHour:  3,
	},
	entity.VerificationCodeDisable2FA: {
		Length:      8,
		TTL:         15 * time.Minute,
		MaxAttempts: 3,
		MaxResends:  1,
		Alphabet:    AlphabetAlphanumeric,
		MaxPerHour:  2,
	},
}

// ResolvePolicy возвращает политику для указанного типа кода
func ResolvePolicy(codeType entity.VerificationCodeType) (Policy, error) {
	p, ok := policies[codeType]
	if !ok {
		return Policy{}, ErrUnknownType
	}
	return p, nil
}
