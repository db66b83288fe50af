package repository

import (
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
)

// VerificationCodeRepository persists OTP issuance cycles. The atomicity
// guarantees documented here are load-bearing: attempt counting and code
// rotation must happen at the store layer, never read-modify-write in
// application code.
type VerificationCodeRepository interface {
	// Create inserts a new verification code record. The store enforces at
	// most one unused record per (identifier, type) via a partial unique
	// index; a concurrent duplicate insert fails with a conflict.
	Create(code *entity.VerificationCode) error

	// FindLatestUnused returns the newest unused record for the pair,
	// regardless of expiry. Returns apperrors.ErrNotFound when none exists.
	FindLatestUnused(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error)

	// FindLatest returns the newest record for the pair, used or not.
	// The verifier needs it to distinguish "already used" from "not found".
	FindLatest(identifier string, codeType entity.VerificationCodeType) (*entity.VerificationCode, error)

	// RotateCode replaces the stored hash and expiry on a resend and
	// atomically increments resend_count. Attempts are left untouched.
	RotateCode(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error

	// ReissueExpired starts a fresh cycle on an expired unused record:
	// new hash and expiry, attempts and resend_count reset to zero.
	ReissueExpired(id uint, codeHash string, expiresAt time.Time, deliveryMethod entity.DeliveryMethod) error

	// IncrementAttempts atomically bumps the attempt counter.
	IncrementAttempts(id uint) error

	// MarkUsed transitions the record to its terminal used state, setting
	// used_at. The transition happens at most once.
	MarkUsed(id uint) error

	// CleanupExpired deletes rows whose expiry has passed and returns the
	// number of deleted records.
	CleanupExpired() (int64, error)
}
