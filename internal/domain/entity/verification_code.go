package entity

import "time"

// VerificationCodeType defines the authentication flow a code belongs to.
type VerificationCodeType string

const (
	VerificationCodeRegister       VerificationCodeType = "REGISTER"
	VerificationCodeForgotPassword VerificationCodeType = "FORGOT_PASSWORD"
	VerificationCodeDisable2FA     VerificationCodeType = "DISABLE_2FA"
)

// DeliveryMethod defines the out-of-band channel a code is delivered through.
type DeliveryMethod string

const (
	DeliveryEmail    DeliveryMethod = "EMAIL"
	DeliverySMS      DeliveryMethod = "SMS"
	DeliveryVoice    DeliveryMethod = "VOICE"
	DeliveryWhatsApp DeliveryMethod = "WHATSAPP"
)

// IsValidDeliveryMethod reports whether m is one of the supported channels.
func IsValidDeliveryMethod(m DeliveryMethod) bool {
	switch m {
	case DeliveryEmail, DeliverySMS, DeliveryVoice, DeliveryWhatsApp:
		return true
	default:
		return false
	}
}

// VerificationCode stores one OTP issuance cycle. Only the bcrypt hash of the
// code is ever persisted; the plaintext leaves the process exactly once, at
// delivery time.
type VerificationCode struct {
	ID             uint                 `gorm:"primaryKey" json:"id"`
	Identifier     string               `gorm:"size:255;not null;index:idx_verification_codes_lookup,priority:1" json:"identifier"`
	CodeHash       string               `gorm:"column:code;size:100;not null" json:"-"`
	Type           VerificationCodeType `gorm:"size:32;not null;index:idx_verification_codes_lookup,priority:2" json:"type"`
	Attempts       int                  `gorm:"not null;default:0" json:"attempts"`
	MaxAttempts    int                  `gorm:"not null;default:5" json:"max_attempts"`
	IsUsed         bool                 `gorm:"not null;default:false" json:"is_used"`
	ResendCount    int                  `gorm:"not null;default:0" json:"resend_count"`
	DeliveryMethod DeliveryMethod       `gorm:"size:16;not null;default:'EMAIL'" json:"delivery_method"`
	UserID         *uint                `gorm:"index" json:"user_id,omitempty"`
	ExpiresAt      time.Time            `gorm:"not null;index" json:"expires_at"`
	CreatedAt      time.Time            `gorm:"not null" json:"created_at"`
	UpdatedAt      time.Time            `gorm:"not null" json:"updated_at"`
	UsedAt         *time.Time           `json:"used_at,omitempty"`
}

func (VerificationCode) TableName() string {
	return "verification_codes"
}

// IsExpired reports whether the code's validity window has passed.
func (v *VerificationCode) IsExpired(now time.Time) bool {
	return now.After(v.ExpiresAt)
}

// IsActive reports whether the code can still be verified: not consumed and
// not expired. At most one active record exists per (identifier, type).
func (v *VerificationCode) IsActive(now time.Time) bool {
	return !v.IsUsed && !v.IsExpired(now)
}

// IsLocked reports whether the verification attempt budget is exhausted.
// A locked record is terminal; recovery requires issuing a new code.
func (v *VerificationCode) IsLocked() bool {
	return v.Attempts >= v.MaxAttempts
}

// AttemptsRemaining возвращает оставшееся число попыток проверки (не меньше нуля)
func (v *VerificationCode) AttemptsRemaining() int {
	remaining := v.MaxAttempts - v.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}
