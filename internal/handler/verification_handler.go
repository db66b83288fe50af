package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/service"
	"github.com/yourusername/ecommerce-api/internal/service/otp"
)

// VerificationHandler обрабатывает запросы на отправку и проверку кодов подтверждения
type VerificationHandler struct {
	verificationService *service.VerificationService
}

// NewVerificationHandler создает новый обработчик кодов подтверждения
func NewVerificationHandler(verificationService *service.VerificationService) *VerificationHandler {
	return &VerificationHandler{verificationService: verificationService}
}

// SendCodeRequest представляет запрос на отправку кода
type SendCodeRequest struct {
	Identifier     string `json:"identifier" binding:"required,min=3,max=255"`
	Type           string `json:"type" binding:"required"`
	DeliveryMethod string `json:"delivery_method" binding:"omitempty"`
}

// VerifyCodeRequest представляет запрос на проверку кода
type VerifyCodeRequest struct {
	Identifier string `json:"identifier" binding:"required,min=3,max=255"`
	Type       string `json:"type" binding:"required"`
	Code       string `json:"code" binding:"required,min=4,max=12"`
}

// SendCode обрабатывает запрос на отправку кода подтверждения
func (h *VerificationHandler) SendCode(c *gin.Context) {
	var req SendCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	method := entity.DeliveryMethod(req.DeliveryMethod)
	if req.DeliveryMethod == "" {
		method = entity.DeliveryEmail
	}

	result, err := h.verificationService.SendCode(c.Request.Context(), req.Identifier, entity.VerificationCodeType(req.Type), method, nil)
	if err != nil {
		switch {
		case errors.Is(err, otp.ErrUnknownType):
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный тип кода подтверждения", "error_type": "unknown_code_type"})
		case errors.Is(err, service.ErrRateLimitExceeded):
			retryAfter := 0
			if result != nil {
				retryAfter = int(result.RetryAfter.Seconds())
			}
			c.Header("Retry-After", strconv.Itoa(retryAfter))
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":       "Превышен лимит отправки кодов, попробуйте позже",
				"error_type":  "rate_limit_exceeded",
				"retry_after": retryAfter,
			})
		case errors.Is(err, service.ErrResendLimitExceeded):
			c.JSON(http.StatusTooManyRequests, gin.H{
				"error":      "Исчерпан лимит повторных отправок для текущего кода",
				"error_type": "resend_limit_exceeded",
			})
		default:
			log.Printf("[VerificationHandler] Ошибка отправки кода: %v", err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось отправить код подтверждения", "error_type": "internal_error"})
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Код подтверждения отправлен",
		"identifier":   result.Identifier,
		"expires_at":   result.ExpiresAt,
		"resend_count": result.ResendCount,
	})
}

// VerifyCode обрабатывает запрос на проверку кода подтверждения
func (h *VerificationHandler) VerifyCode(c *gin.Context) {
	var req VerifyCodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	result, err := h.verificationService.VerifyCode(req.Identifier, entity.VerificationCodeType(req.Type), req.Code)
	if err != nil {
		if errors.Is(err, otp.ErrUnknownType) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Неизвестный тип кода подтверждения", "error_type": "unknown_code_type"})
			return
		}
		log.Printf("[VerificationHandler] Ошибка проверки кода: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось проверить код", "error_type": "internal_error"})
		return
	}

	if !result.Valid {
		status := http.StatusBadRequest
		if result.Locked {
			status = http.StatusTooManyRequests
		}
		c.JSON(status, gin.H{
			"valid":              false,
			"error":              result.Message,
			"error_type":         result.Reason,
			"expired":            result.Expired,
			"locked":             result.Locked,
			"attempts_remaining": result.AttemptsRemaining,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"valid":   true,
		"message": result.Message,
	})
}
