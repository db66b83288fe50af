package otp

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
)

func newTestIssuer(t *testing.T, repo *MockVerificationCodeRepository) *Issuer {
	t.Helper()
	issuer, err := NewIssuer(repo, &FixedSource{Code: "123456"}, &plainHasher{})
	require.NoError(t, err)
	return issuer
}

func TestIssuer_Issue_NewRecord(t *testing.T) {
	// Arrange
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)
	userID := uint(42)

	mockRepo.On("FindLatestUnused", "user@example.com", entity.VerificationCodeRegister).
		Return(nil, apperrors.ErrNotFound)
	mockRepo.On("Create", mock.MatchedBy(func(c *entity.VerificationCode) bool {
		return c.Identifier == "user@example.com" &&
			c.Type == entity.VerificationCodeRegister &&
			c.CodeHash == "hashed:123456" &&
			c.MaxAttempts == 5 &&
			c.DeliveryMethod == entity.DeliveryEmail &&
			c.UserID != nil && *c.UserID == 42
	})).Run(func(args mock.Arguments) {
		args.Get(0).(*entity.VerificationCode).ID = 7
	}).Return(nil)

	// Act
	result, err := issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliveryEmail, &userID)

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "123456", result.Code)
	assert.Equal(t, "hashed:123456", result.HashedCode)
	assert.Equal(t, uint(7), result.RecordID)
	assert.Equal(t, 0, result.ResendCount)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), result.ExpiresAt, 2*time.Second)
	mockRepo.AssertExpectations(t)
}

func TestIssuer_Issue_ResendActiveCode(t *testing.T) {
	// Arrange: активная запись с запасом по лимиту повторных отправок
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)

	existing := &entity.VerificationCode{
		ID:          7,
		Identifier:  "user@example.com",
		Type:        entity.VerificationCodeRegister,
		Attempts:    2,
		MaxAttempts: 5,
		ResendCount: 1,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}
	mockRepo.On("FindLatestUnused", "user@example.com", entity.VerificationCodeRegister).
		Return(existing, nil)
	mockRepo.On("RotateCode", uint(7), "hashed:123456", mock.AnythingOfType("time.Time"), entity.DeliverySMS).
		Return(nil)

	// Act
	result, err := issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliverySMS, nil)

	// Assert: переиспользуется та же запись, счетчик отправок растет
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.RecordID)
	assert.Equal(t, 2, result.ResendCount)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestIssuer_Issue_ResendLimitExceeded(t *testing.T) {
	// Arrange: лимит повторных отправок для REGISTER равен 3
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)

	existing := &entity.VerificationCode{
		ID:          7,
		ResendCount: 3,
		MaxAttempts: 5,
		ExpiresAt:   time.Now().Add(10 * time.Minute),
	}
	mockRepo.On("FindLatestUnused", "user@example.com", entity.VerificationCodeRegister).
		Return(existing, nil)

	// Act
	result, err := issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliveryEmail, nil)

	// Assert: ошибка лимита, база не изменялась
	assert.ErrorIs(t, err, ErrResendLimit)
	assert.Nil(t, result)
	mockRepo.AssertNotCalled(t, "RotateCode", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "ReissueExpired", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestIssuer_Issue_ReissueExpiredRecord(t *testing.T) {
	// Arrange: неиспользованная запись с истекшим сроком
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)

	existing := &entity.VerificationCode{
		ID:          7,
		Attempts:    3,
		MaxAttempts: 5,
		ResendCount: 3,
		ExpiresAt:   time.Now().Add(-time.Minute),
	}
	mockRepo.On("FindLatestUnused", "user@example.com", entity.VerificationCodeRegister).
		Return(existing, nil)
	mockRepo.On("ReissueExpired", uint(7), "hashed:123456", mock.AnythingOfType("time.Time"), entity.DeliveryEmail).
		Return(nil)

	// Act
	result, err := issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliveryEmail, nil)

	// Assert: новый цикл на той же строке, счетчики сброшены
	require.NoError(t, err)
	assert.Equal(t, uint(7), result.RecordID)
	assert.Equal(t, 0, result.ResendCount)
	mockRepo.AssertExpectations(t)
	mockRepo.AssertNotCalled(t, "Create", mock.Anything)
}

func TestIssuer_Issue_UnknownType(t *testing.T) {
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)

	_, err := issuer.Issue("user@example.com", entity.VerificationCodeType("LOGIN"), entity.DeliveryEmail, nil)

	assert.ErrorIs(t, err, ErrUnknownType)
	mockRepo.AssertNotCalled(t, "FindLatestUnused", mock.Anything, mock.Anything)
}

func TestIssuer_Issue_InvalidDeliveryMethod(t *testing.T) {
	mockRepo := new(MockVerificationCodeRepository)
	issuer := newTestIssuer(t, mockRepo)

	_, err := issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliveryMethod("CARRIER_PIGEON"), nil)

	assert.ErrorIs(t, err, apperrors.ErrValidation)
}

// fakeCountingRepo моделирует хранилище с частичным уникальным индексом,
// чтобы проверить сериализацию конкурентных выпусков
type fakeCountingRepo struct {
	mu      sync.Mutex
	creates int
	rotates int
	record  *entity.VerificationCode
}

func (f *fakeCountingRepo) Create(code *entity.VerificationCode) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record != nil && !f.record.IsUsed {
		return apperrors.ErrConflict
	}
	f.creates++
	code.ID = 1
	f.record = code
	return nil
}

func (f *fakeCountingRepo) FindLatestUnused(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.record == nil || f.record.IsUsed {
		return nil, apperrors.ErrNotFound
	}
	copied := *f.record
	return &copied, nil
}

func (f *fakeCountingRepo) FindLatest(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error) {
	return f.FindLatestUnused(identifier, codeType)
}

func (f *fakeCountingRepo) RotateCode(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.rotates++
	f.record.CodeHash = codeHash
	f.record.ExpiresAt = expiresAt
	f.record.ResendCount++
	return nil
}

func (f *fakeCountingRepo) ReissueExpired(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.record.CodeHash = codeHash
	f.record.ExpiresAt = expiresAt
	f.record.Attempts = 0
	f.record.ResendCount = 0
	return nil
}

func (f *fakeCountingRepo) IncrementAttempts(id uint) error { return nil }
func (f *fakeCountingRepo) MarkUsed(id uint) error          { return nil }
func (f *fakeCountingRepo) CleanupExpired() (int64, error)  { return 0, nil }

func TestIssuer_Issue_ConcurrentSingleRecord(t *testing.T) {
	// Arrange
	repo := &fakeCountingRepo{}
	issuer, err := NewIssuer(repo, NewSecureGenerator(), &plainHasher{})
	require.NoError(t, err)

	// Act: конкурентные выпуски для одной пары
	var wg sync.WaitGroup
	errs := make([]error, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			_, errs[n] = issuer.Issue("user@example.com", entity.VerificationCodeRegister, entity.DeliveryEmail, nil)
		}(i)
	}
	wg.Wait()

	// Assert: ровно одна вставка, остальные пошли как повторные отправки,
	// конфликт уникального индекса не возникал
	for _, e := range errs {
		assert.NoError(t, e)
	}
	assert.Equal(t, 1, repo.creates)
	assert.Equal(t, 3, repo.rotates)
}
