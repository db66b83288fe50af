package otp

import (
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
)

// MockVerificationCodeRepository - мок репозитория кодов подтверждения
type MockVerificationCodeRepository struct {
	mock.Mock
}

func (m *MockVerificationCodeRepository) Create(code *entity.VerificationCode) error {
	args := m.Called(code)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) FindLatestUnused(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	args := m.Called(identifier, codeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerificationCode), args.Error(1)
}

func (m *MockVerificationCodeRepository) FindLatest(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	args := m.Called(identifier, codeType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*entity.VerificationCode), args.Error(1)
}

func (m *MockVerificationCodeRepository) RotateCode(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	args := m.Called(id, codeHash, expiresAt, deliveryMethod)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) ReissueExpired(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	args := m.Called(id, codeHash, expiresAt, deliveryMethod)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) IncrementAttempts(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) MarkUsed(id uint) error {
	args := m.Called(id)
	return args.Error(0)
}

func (m *MockVerificationCodeRepository) CleanupExpired() (int64, error) {
	args := m.Called()
	return args.Get(0).(int64), args.Error(1)
}

// plainHasher - хешер без bcrypt для быстрых тестов логики выпуска и проверки
type plainHasher struct {
	compareCalls int
}

func (h *plainHasher) Hash(code string) (string, error) {
	return "hashed:" + code, nil
}

func (h *plainHasher) Compare(hashedCode, code string) (bool, error) {
	h.compareCalls++
	return hashedCode == "hashed:"+code, nil
}
