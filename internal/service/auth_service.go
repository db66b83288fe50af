package service

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/domain/repository"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
	"github.com/yourusername/ecommerce-api/pkg/auth"
)

// SessionMeta описывает устройство и источник запроса при входе
type SessionMeta struct {
	DeviceID  string
	IPAddress string
	UserAgent string
}

// TokenPair - пара access/refresh токенов, выдаваемая при входе и обновлении
type TokenPair struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// AuthService предоставляет методы для регистрации, входа и управления сессиями
type AuthService struct {
	userRepo         repository.UserRepository
	refreshTokenRepo repository.RefreshTokenRepository
	verificationSvc  *VerificationService
	jwtService       *auth.JWTService
	sessionLimit     int
	refreshLifetime  time.Duration
}

// NewAuthService создает новый сервис аутентификации
func NewAuthService(
	userRepo repository.UserRepository,
	refreshTokenRepo repository.RefreshTokenRepository,
	verificationSvc *VerificationService,
	jwtService *auth.JWTService,
	sessionLimit int,
	refreshLifetime time.Duration,
) (*AuthService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for AuthService")
	}
	if refreshTokenRepo == nil {
		return nil, fmt.Errorf("RefreshTokenRepository is required for AuthService")
	}
	if verificationSvc == nil {
		return nil, fmt.Errorf("VerificationService is required for AuthService")
	}
	if jwtService == nil {
		return nil, fmt.Errorf("JWTService is required for AuthService")
	}
	if sessionLimit <= 0 {
		sessionLimit = 10
	}
	if refreshLifetime <= 0 {
		refreshLifetime = 30 * 24 * time.Hour
	}
	return &AuthService{
		userRepo:         userRepo,
		refreshTokenRepo: refreshTokenRepo,
		verificationSvc:  verificationSvc,
		jwtService:       jwtService,
		sessionLimit:     sessionLimit,
		refreshLifetime:  refreshLifetime,
	}, nil
}

// Register создает пользователя и отправляет ему код подтверждения email.
// Пароль хешируется хуком BeforeSave сущности User.
func (s *AuthService) Register(ctx context.Context, name, email, password, phoneNumber string) (*entity.User, error) {
	if _, err := s.userRepo.GetByEmail(email); err == nil {
		return nil, ErrEmailAlreadyTaken
	} else if !errors.Is(err, apperrors.ErrNotFound) {
		return nil, err
	}

	user := &entity.User{
		Name:        name,
		Email:       email,
		Password:    password,
		PhoneNumber: phoneNumber,
		Role:        "client",
	}
	if err := s.userRepo.Create(user); err != nil {
		return nil, fmt.Errorf("ошибка создания пользователя: %w", err)
	}

	if _, err := s.verificationSvc.SendCode(ctx, email, entity.VerificationCodeRegister, entity.DeliveryEmail, &user.ID); err != nil {
		// Пользователь создан, код можно запросить повторно через send-code
		log.Printf("[AuthService] Не удалось отправить код подтверждения при регистрации: user_id=%d: %v", user.ID, err)
	}

	log.Printf("[AuthService] Зарегистрирован пользователь: id=%d", user.ID)
	return user, nil
}

// VerifyEmail проверяет код регистрации и помечает email подтвержденным
func (s *AuthService) VerifyEmail(email, code string) error {
	result, err := s.verificationSvc.VerifyCode(email, entity.VerificationCodeRegister, code)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, result.Message)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}
	now := time.Now()
	if err := s.userRepo.UpdateProfile(user.ID, map[string]interface{}{"email_verified_at": now}); err != nil {
		return fmt.Errorf("ошибка подтверждения email: %w", err)
	}

	log.Printf("[AuthService] Email подтвержден: user_id=%d", user.ID)
	return nil
}

// Login проверяет учетные данные и выдает пару токенов.
// При превышении лимита одновременных сессий старые сессии отзываются.
func (s *AuthService) Login(email, password string, meta SessionMeta) (*entity.User, *TokenPair, error) {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, nil, ErrInvalidCredentials
		}
		return nil, nil, err
	}

	if !user.CheckPassword(password) {
		return nil, nil, ErrInvalidCredentials
	}

	if !user.IsEmailVerified() {
		return nil, nil, ErrEmailNotVerified
	}

	pair, err := s.issueTokenPair(user, meta)
	if err != nil {
		return nil, nil, err
	}

	log.Printf("[AuthService] Вход выполнен: user_id=%d device=%s", user.ID, meta.DeviceID)
	return user, pair, nil
}

// RefreshTokens принимает refresh токен, отзывает его и выдает новую пару (ротация)
func (s *AuthService) RefreshTokens(refreshToken string, meta SessionMeta) (*TokenPair, error) {
	stored, err := s.refreshTokenRepo.GetTokenByHash(hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrExpiredToken) {
			return nil, ErrInvalidRefreshToken
		}
		return nil, err
	}

	user, err := s.userRepo.GetByID(stored.UserID)
	if err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.RevokeByID(stored.ID, "rotated"); err != nil {
		return nil, err
	}

	return s.issueTokenPair(user, meta)
}

// Logout отзывает сессию по refresh токену
func (s *AuthService) Logout(refreshToken string) error {
	stored, err := s.refreshTokenRepo.GetTokenByHash(hashRefreshToken(refreshToken))
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) || errors.Is(err, apperrors.ErrExpiredToken) {
			return ErrInvalidRefreshToken
		}
		return err
	}
	return s.refreshTokenRepo.RevokeByID(stored.ID, "logout")
}

// LogoutAll отзывает все сессии пользователя
func (s *AuthService) LogoutAll(userID uint) error {
	return s.refreshTokenRepo.RevokeAllForUser(userID, "logout_all")
}

// GetActiveSessions возвращает активные сессии пользователя
func (s *AuthService) GetActiveSessions(userID uint) ([]map[string]interface{}, error) {
	tokens, err := s.refreshTokenRepo.GetActiveTokensForUser(userID)
	if err != nil {
		return nil, err
	}
	sessions := make([]map[string]interface{}, 0, len(tokens))
	for _, t := range tokens {
		sessions = append(sessions, t.SessionInfo())
	}
	return sessions, nil
}

// ForgotPassword отправляет код восстановления пароля.
// Для незарегистрированных email возвращается успех, чтобы не раскрывать
// существование аккаунта.
func (s *AuthService) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			log.Printf("[AuthService] Запрос восстановления пароля для неизвестного email")
			return nil
		}
		return err
	}

	_, err = s.verificationSvc.SendCode(ctx, email, entity.VerificationCodeForgotPassword, entity.DeliveryEmail, &user.ID)
	return err
}

// ResetPassword проверяет код восстановления и устанавливает новый пароль.
// Все активные сессии пользователя отзываются.
func (s *AuthService) ResetPassword(email, code, newPassword string) error {
	result, err := s.verificationSvc.VerifyCode(email, entity.VerificationCodeForgotPassword, code)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, result.Message)
	}

	user, err := s.userRepo.GetByEmail(email)
	if err != nil {
		return err
	}

	if err := s.userRepo.UpdatePassword(user.ID, newPassword); err != nil {
		return fmt.Errorf("ошибка обновления пароля: %w", err)
	}

	if err := s.refreshTokenRepo.RevokeAllForUser(user.ID, "password_reset"); err != nil {
		log.Printf("[AuthService] Не удалось отозвать сессии после сброса пароля: user_id=%d: %v", user.ID, err)
	}

	log.Printf("[AuthService] Пароль сброшен: user_id=%d", user.ID)
	return nil
}

// RequestDisable2FA отправляет код подтверждения отключения двухфакторной аутентификации
func (s *AuthService) RequestDisable2FA(ctx context.Context, userID uint) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	_, err = s.verificationSvc.SendCode(ctx, user.Email, entity.VerificationCodeDisable2FA, entity.DeliveryEmail, &user.ID)
	return err
}

// ConfirmDisable2FA проверяет код и отключает двухфакторную аутентификацию
func (s *AuthService) ConfirmDisable2FA(userID uint, code string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}
	if !user.TwoFactorEnabled {
		return ErrTwoFactorNotEnabled
	}

	result, err := s.verificationSvc.VerifyCode(user.Email, entity.VerificationCodeDisable2FA, code)
	if err != nil {
		return err
	}
	if !result.Valid {
		return fmt.Errorf("%w: %s", apperrors.ErrValidation, result.Message)
	}

	if err := s.userRepo.UpdateProfile(user.ID, map[string]interface{}{"two_factor_enabled": false}); err != nil {
		return fmt.Errorf("ошибка отключения 2FA: %w", err)
	}

	log.Printf("[AuthService] 2FA отключена: user_id=%d", user.ID)
	return nil
}

// issueTokenPair выдает access-токен и refresh-токен, следя за лимитом сессий
func (s *AuthService) issueTokenPair(user *entity.User, meta SessionMeta) (*TokenPair, error) {
	accessToken, err := s.jwtService.GenerateToken(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	refreshToken, err := generateRefreshTokenValue()
	if err != nil {
		return nil, err
	}

	record := entity.NewRefreshToken(
		user.ID,
		hashRefreshToken(refreshToken),
		meta.DeviceID,
		meta.IPAddress,
		meta.UserAgent,
		time.Now().Add(s.refreshLifetime),
	)
	if _, err := s.refreshTokenRepo.CreateToken(record); err != nil {
		return nil, err
	}

	if err := s.refreshTokenRepo.RevokeOldestForUser(user.ID, s.sessionLimit); err != nil {
		log.Printf("[AuthService] Не удалось применить лимит сессий: user_id=%d: %v", user.ID, err)
	}

	return &TokenPair{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresAt:    time.Now().Add(s.jwtService.TokenExpiry()),
	}, nil
}

// generateRefreshTokenValue возвращает криптографически случайную строку токена
func generateRefreshTokenValue() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("ошибка генерации refresh токена: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// hashRefreshToken возвращает SHA-256 хеш токена; в базе хранятся только хеши
func hashRefreshToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
