package otp

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost — стоимость bcrypt по умолчанию для хеширования кодов
const DefaultBcryptCost = 10

// Hasher хеширует коды подтверждения и сверяет введенный код с хешем
type Hasher interface {
	Hash(code string) (string, error)
	Compare(hashedCode, code string) (bool, error)
}

// BcryptHasher реализует Hasher поверх bcrypt.
// Коды короткие, поэтому хранить их в открытом виде нельзя: утечка базы
// не должна позволять подтверждать чужие операции.
type BcryptHasher struct {
	cost int
}

// NewBcryptHasher создает хешер с указанной стоимостью.
// При cost вне допустимого диапазона используется DefaultBcryptCost.
func NewBcryptHasher(cost int) *BcryptHasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultBcryptCost
	}
	return &BcryptHasher{cost: cost}
}

// Hash возвращает bcrypt-хеш кода
func (h *BcryptHasher) Hash(code string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(code), h.cost)
	if err != nil {
		return "", fmt.Errorf("ошибка хеширования кода: %w", err)
	}
	return string(hashed), nil
}

// Compare сверяет введенный код с хешем. Возвращает (false, nil) при
// несовпадении и ошибку только при поврежденном хеше.
func (h *BcryptHasher) Compare(hashedCode, code string) (bool, error) {
	err := bcrypt.CompareHashAndPassword([]byte(hashedCode), []byte(code))
	if err == nil {
		return true, nil
	}
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	return false, fmt.Errorf("ошибка сверки кода с хешем: %w", err)
}
