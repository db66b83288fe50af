package otp

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
)

func activeRecord() *entity.VerificationCode {
	return &entity.VerificationCode{
		ID:          7,
		Identifier:  "user@example.com",
		CodeHash:    "hashed:123456",
		Type:        entity.VerificationCodeRegister,
		Attempts:    0,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}
}

func TestVerifier_Verify_Success(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	userID := uint(42)
	record := activeRecord()
	record.UserID = &userID
	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(record, nil)
	mockRepo.On("MarkUsed", uint(7)).Return(nil)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert
	require.NoError(t, err)
	assert.True(t, result.Valid)
	assert.Equal(t, "Verification code is valid", result.Message)
	assert.Equal(t, uint(7), result.RecordID)
	require.NotNil(t, result.UserID)
	assert.Equal(t, uint(42), *result.UserID)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything)
}

func TestVerifier_Verify_Mismatch(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(activeRecord(), nil)
	mockRepo.On("IncrementAttempts", uint(7)).Return(nil)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "000000")

	// Assert: счетчик попыток увеличен, запись не помечена использованной
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.False(t, result.Locked)
	assert.Equal(t, ReasonMismatch, result.Reason)
	assert.Equal(t, "Invalid verification code", result.Message)
	assert.Equal(t, 4, result.AttemptsRemaining)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "MarkUsed", mock.Anything)
}

func TestVerifier_Verify_MismatchLocksOnLastAttempt(t *testing.T) {
	// Arrange: осталась одна попытка
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	record := activeRecord()
	record.Attempts = 4
	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(record, nil)
	mockRepo.On("IncrementAttempts", uint(7)).Return(nil)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "000000")

	// Assert: после этой неудачи запись заблокирована
	require.NoError(t, err)
	assert.True(t, result.Locked)
	assert.Equal(t, 0, result.AttemptsRemaining)
}

func TestVerifier_Verify_LockedSkipsHashComparison(t *testing.T) {
	// Arrange: попытки исчерпаны
	mockRepo := new(MockVerificationCodeRepository)
	hasher := &plainHasher{}
	verifier, err := NewVerifier(mockRepo, hasher)
	require.NoError(t, err)

	record := activeRecord()
	record.Attempts = 5
	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(record, nil)

	// Act: подаем правильный код
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert: отказ без сверки хеша и без инкремента счетчика
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.Locked)
	assert.Equal(t, ReasonLocked, result.Reason)
	assert.Equal(t, 0, hasher.compareCalls)
	mockRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything)
	mockRepo.AssertNotCalled(t, "MarkUsed", mock.Anything)
}

func TestVerifier_Verify_Expired(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	record := activeRecord()
	record.ExpiresAt = time.Now().Add(-time.Minute)
	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(record, nil)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert: истекший код не тратит попытки
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.True(t, result.Expired)
	assert.Equal(t, ReasonExpired, result.Reason)
	assert.Equal(t, "Verification code has expired", result.Message)
	mockRepo.AssertNotCalled(t, "IncrementAttempts", mock.Anything)
}

func TestVerifier_Verify_AlreadyUsed(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	record := activeRecord()
	record.IsUsed = true
	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(record, nil)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonAlreadyUsed, result.Reason)
}

func TestVerifier_Verify_NotFound(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).
		Return(nil, apperrors.ErrNotFound)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert: отсутствие записи не раскрывается отдельным сообщением
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonNotFound, result.Reason)
	assert.Equal(t, "Invalid verification code", result.Message)
}

func TestVerifier_Verify_ConcurrentMarkUsedConflict(t *testing.T) {
	// Arrange: конкурентная проверка успела пометить запись первой
	mockRepo := new(MockVerificationCodeRepository)
	verifier, err := NewVerifier(mockRepo, &plainHasher{})
	require.NoError(t, err)

	mockRepo.On("FindLatest", "user@example.com", entity.VerificationCodeRegister).Return(activeRecord(), nil)
	mockRepo.On("MarkUsed", uint(7)).Return(apperrors.ErrConflict)

	// Act
	result, err := verifier.Verify("user@example.com", entity.VerificationCodeRegister, "123456")

	// Assert: успех достается только одной проверке
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, ReasonAlreadyUsed, result.Reason)
}
