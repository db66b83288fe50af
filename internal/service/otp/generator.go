package otp

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const (
	digitChars    = "0123456789"
	alphanumChars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

	// MinCodeLength и MaxCodeLength ограничивают допустимую длину кода
	MinCodeLength = 4
	MaxCodeLength = 12
)

// ErrInvalidLength возвращается при запросе кода недопустимой длины
var ErrInvalidLength = errors.New("invalid verification code length")

// CodeSource порождает коды подтверждения. Абстракция нужна, чтобы
// в тестовом режиме подменять криптографический генератор фиксированным кодом.
type CodeSource interface {
	Generate(length int, alphabet Alphabet) (string, error)
}

// SecureGenerator генерирует коды на основе crypto/rand
type SecureGenerator struct{}

// NewSecureGenerator создает новый экземпляр SecureGenerator
func NewSecureGenerator() *SecureGenerator {
	return &SecureGenerator{}
}

// Generate возвращает случайный код указанной длины из указанного алфавита.
// Каждый символ выбирается независимо через crypto/rand. Буквенно-цифровой
// код всегда содержит хотя бы одну цифру, чтобы исключить чисто буквенные
// коды, которые пользователи чаще путают со словами.
func (g *SecureGenerator) Generate(length int, alphabet Alphabet) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}

	chars := digitChars
	if alphabet == AlphabetAlphanumeric {
		chars = alphanumChars
	}

	var sb strings.Builder
	sb.Grow(length)
	for i := 0; i < length; i++ {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(chars))))
		if err != nil {
			return "", fmt.Errorf("ошибка генерации случайного символа: %w", err)
		}
		sb.WriteByte(chars[idx.Int64()])
	}
	code := sb.String()

	if alphabet == AlphabetAlphanumeric && !strings.ContainsAny(code, digitChars) {
		// Заменяем случайную позицию случайной цифрой
		pos, err := rand.Int(rand.Reader, big.NewInt(int64(length)))
		if err != nil {
			return "", fmt.Errorf("ошибка генерации случайной позиции: %w", err)
		}
		digit, err := rand.Int(rand.Reader, big.NewInt(int64(len(digitChars))))
		if err != nil {
			return "", fmt.Errorf("ошибка генерации случайной цифры: %w", err)
		}
		b := []byte(code)
		b[pos.Int64()] = digitChars[digit.Int64()]
		code = string(b)
	}

	return code, nil
}

// FixedSource всегда возвращает заранее заданный код.
// Используется в тестовом режиме, чтобы интеграционные тесты и ручная
// проверка не зависели от реальной доставки писем.
type FixedSource struct {
	Code string
}

// Generate возвращает фиксированный код, усеченный или дополненный нулями
// до запрошенной длины
func (s *FixedSource) Generate(length int, alphabet Alphabet) (string, error) {
	if length < MinCodeLength || length > MaxCodeLength {
		return "", fmt.Errorf("%w: %d", ErrInvalidLength, length)
	}
	code := s.Code
	if len(code) > length {
		return code[:length], nil
	}
	for len(code) < length {
		code += "0"
	}
	return code, nil
}
