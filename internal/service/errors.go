package service

import "errors"

// Ошибки бизнес-логики аутентификации и выпуска кодов.
// Хендлеры сопоставляют их с HTTP-статусами и типами ошибок в ответах.
var (
	// ErrInvalidCredentials - неверная пара email/пароль
	ErrInvalidCredentials = errors.New("invalid_credentials")

	// ErrEmailAlreadyTaken - email уже зарегистрирован
	ErrEmailAlreadyTaken = errors.New("email_already_taken")

	// ErrEmailNotVerified - вход до подтверждения email
	ErrEmailNotVerified = errors.New("email_not_verified")

	// ErrUserNotFound - пользователь не найден
	ErrUserNotFound = errors.New("user_not_found")

	// ErrInvalidRefreshToken - refresh токен не найден, отозван или истек
	ErrInvalidRefreshToken = errors.New("invalid_refresh_token")

	// ErrSessionLimitExceeded - превышен лимит одновременных сессий
	ErrSessionLimitExceeded = errors.New("session_limit_exceeded")

	// ErrResendLimitExceeded - исчерпан лимит повторных отправок кода
	ErrResendLimitExceeded = errors.New("resend_limit_exceeded")

	// ErrRateLimitExceeded - превышен часовой лимит выпуска кодов на идентификатор
	ErrRateLimitExceeded = errors.New("rate_limit_exceeded")

	// ErrTwoFactorNotEnabled - попытка отключить 2FA, когда она не включена
	ErrTwoFactorNotEnabled = errors.New("two_factor_not_enabled")
)
