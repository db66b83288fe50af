package handler

import (
	"errors"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
	"github.com/yourusername/ecommerce-api/internal/service"
)

// AuthHandler обрабатывает запросы, связанные с аутентификацией
type AuthHandler struct {
	authService *service.AuthService
}

// NewAuthHandler создает новый обработчик аутентификации
func NewAuthHandler(authService *service.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Структуры запросов и ответов

// RegisterRequest представляет запрос на регистрацию
type RegisterRequest struct {
	Name        string `json:"name" binding:"required,min=2,max=100"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required,min=8,max=72"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

// VerifyEmailRequest представляет запрос на подтверждение email
type VerifyEmailRequest struct {
	Email string `json:"email" binding:"required,email"`
	Code  string `json:"code" binding:"required,min=4,max=12"`
}

// LoginRequest представляет запрос на вход
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	DeviceID string `json:"device_id" binding:"omitempty"`
}

// RefreshTokenRequest представляет запрос на обновление токенов
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
	DeviceID     string `json:"device_id" binding:"omitempty"`
}

// LogoutRequest представляет запрос на выход
type LogoutRequest struct {
	RefreshToken string `json:"refresh_token" binding:"required"`
}

// ForgotPasswordRequest представляет запрос на восстановление пароля
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest представляет запрос на сброс пароля по коду
type ResetPasswordRequest struct {
	Email       string `json:"email" binding:"required,email"`
	Code        string `json:"code" binding:"required,min=4,max=12"`
	NewPassword string `json:"new_password" binding:"required,min=8,max=72"`
}

// Disable2FARequest представляет запрос на подтверждение отключения 2FA
type Disable2FARequest struct {
	Code string `json:"code" binding:"required,min=4,max=12"`
}

// sessionMetaFromRequest собирает метаданные сессии из запроса
func sessionMetaFromRequest(c *gin.Context, deviceID string) service.SessionMeta {
	return service.SessionMeta{
		DeviceID:  deviceID,
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}
}

// Register обрабатывает запрос на регистрацию
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	user, err := h.authService.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.PhoneNumber)
	if err != nil {
		if errors.Is(err, service.ErrEmailAlreadyTaken) {
			c.JSON(http.StatusConflict, gin.H{"error": "Email уже зарегистрирован", "error_type": "email_already_taken"})
			return
		}
		log.Printf("[AuthHandler] Ошибка регистрации: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось зарегистрировать пользователя", "error_type": "internal_error"})
		return
	}

	log.Printf("[AuthHandler] Пользователь ID=%d успешно зарегистрирован", user.ID)
	c.JSON(http.StatusCreated, gin.H{
		"message": "Пользователь зарегистрирован, код подтверждения отправлен на email",
		"user":    user,
	})
}

// VerifyEmail обрабатывает подтверждение email кодом регистрации
func (h *AuthHandler) VerifyEmail(c *gin.Context) {
	var req VerifyEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.authService.VerifyEmail(req.Email, req.Code); err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный или истекший код подтверждения", "error_type": "invalid_code"})
			return
		}
		log.Printf("[AuthHandler] Ошибка подтверждения email: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось подтвердить email", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Email подтвержден"})
}

// Login обрабатывает запрос на вход
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	user, pair, err := h.authService.Login(req.Email, req.Password, sessionMetaFromRequest(c, req.DeviceID))
	if err != nil {
		switch {
		case errors.Is(err, service.ErrInvalidCredentials):
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Неверный email или пароль", "error_type": "invalid_credentials"})
		case errors.Is(err, service.ErrEmailNotVerified):
			c.JSON(http.StatusForbidden, gin.H{"error": "Email не подтвержден", "error_type": "email_not_verified"})
		default:
			log.Printf("[AuthHandler] Ошибка входа: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось выполнить вход", "error_type": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":          user,
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
	})
}

// Refresh обрабатывает запрос на обновление пары токенов
func (h *AuthHandler) Refresh(c *gin.Context) {
	var req RefreshTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	pair, err := h.authService.RefreshTokens(req.RefreshToken, sessionMetaFromRequest(c, req.DeviceID))
	if err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный refresh токен", "error_type": "token_invalid"})
			return
		}
		log.Printf("[AuthHandler] Ошибка обновления токенов: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить токены", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
		"expires_at":    pair.ExpiresAt,
	})
}

// Logout обрабатывает выход из текущей сессии
func (h *AuthHandler) Logout(c *gin.Context) {
	var req LogoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.authService.Logout(req.RefreshToken); err != nil {
		if errors.Is(err, service.ErrInvalidRefreshToken) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Недействительный refresh токен", "error_type": "token_invalid"})
			return
		}
		log.Printf("[AuthHandler] Ошибка выхода: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось выйти", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Выход выполнен"})
}

// LogoutAll обрабатывает выход из всех сессий текущего пользователя
func (h *AuthHandler) LogoutAll(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.authService.LogoutAll(userID); err != nil {
		log.Printf("[AuthHandler] Ошибка выхода из всех сессий: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось выйти из всех сессий", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Выход из всех сессий выполнен"})
}

// Sessions возвращает активные сессии текущего пользователя
func (h *AuthHandler) Sessions(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	sessions, err := h.authService.GetActiveSessions(userID)
	if err != nil {
		log.Printf("[AuthHandler] Ошибка получения сессий: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Ошибка при получении активных сессий", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"sessions": sessions})
}

// ForgotPassword обрабатывает запрос на восстановление пароля
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.authService.ForgotPassword(c.Request.Context(), req.Email); err != nil {
		if errors.Is(err, service.ErrRateLimitExceeded) || errors.Is(err, service.ErrResendLimitExceeded) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Слишком много запросов, попробуйте позже", "error_type": "rate_limit_exceeded"})
			return
		}
		log.Printf("[AuthHandler] Ошибка запроса восстановления пароля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отправить код восстановления", "error_type": "internal_error"})
		return
	}

	// Ответ одинаков для существующих и несуществующих email
	c.JSON(http.StatusOK, gin.H{"message": "Если email зарегистрирован, код восстановления отправлен"})
}

// ResetPassword обрабатывает сброс пароля по коду восстановления
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.authService.ResetPassword(req.Email, req.Code, req.NewPassword); err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный или истекший код восстановления", "error_type": "invalid_code"})
			return
		}
		log.Printf("[AuthHandler] Ошибка сброса пароля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сбросить пароль", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Пароль изменен, войдите с новым паролем"})
}

// RequestDisable2FA отправляет код подтверждения отключения 2FA
func (h *AuthHandler) RequestDisable2FA(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	if err := h.authService.RequestDisable2FA(c.Request.Context(), userID); err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorNotEnabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Двухфакторная аутентификация не включена", "error_type": "two_factor_not_enabled"})
		case errors.Is(err, service.ErrRateLimitExceeded), errors.Is(err, service.ErrResendLimitExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "Слишком много запросов, попробуйте позже", "error_type": "rate_limit_exceeded"})
		default:
			log.Printf("[AuthHandler] Ошибка запроса отключения 2FA: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отправить код", "error_type": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Код подтверждения отправлен"})
}

// ConfirmDisable2FA проверяет код и отключает 2FA
func (h *AuthHandler) ConfirmDisable2FA(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req Disable2FARequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.authService.ConfirmDisable2FA(userID, req.Code); err != nil {
		switch {
		case errors.Is(err, service.ErrTwoFactorNotEnabled):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Двухфакторная аутентификация не включена", "error_type": "two_factor_not_enabled"})
		case errors.Is(err, apperrors.ErrValidation):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неверный или истекший код подтверждения", "error_type": "invalid_code"})
		default:
			log.Printf("[AuthHandler] Ошибка отключения 2FA: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отключить 2FA", "error_type": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Двухфакторная аутентификация отключена"})
}

// currentUserID извлекает ID пользователя, установленный middleware аутентификации
func currentUserID(c *gin.Context) (uint, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Пользователь не аутентифицирован", "error_type": "unauthorized"})
		return 0, false
	}
	userID, ok := value.(uint)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Пользователь не аутентифицирован", "error_type": "context_missing_user"})
		return 0, false
	}
	return userID, true
}
