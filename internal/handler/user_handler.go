package handler

import (
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	apperrors "github.com/yourusername/ecommerce-api/internal/pkg/errors"
	"github.com/yourusername/ecommerce-api/internal/service"
)

// UserHandler обрабатывает запросы, связанные с профилями пользователей
type UserHandler struct {
	userService *service.UserService
}

// NewUserHandler создает новый обработчик пользователей
func NewUserHandler(userService *service.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UpdateProfileRequest представляет запрос на обновление профиля
type UpdateProfileRequest struct {
	Name        string `json:"name" binding:"omitempty,min=2,max=100"`
	PhoneNumber string `json:"phone_number" binding:"omitempty,max=20"`
}

// ChangePasswordRequest представляет запрос на смену пароля
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required,min=8,max=72"`
}

// Me возвращает профиль текущего пользователя
func (h *UserHandler) Me(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	user, err := h.userService.GetUserByID(userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Пользователь не найден", "error_type": "user_not_found"})
			return
		}
		log.Printf("[UserHandler] Ошибка получения профиля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить профиль", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": user})
}

// UpdateProfile обновляет профиль текущего пользователя
func (h *UserHandler) UpdateProfile(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req UpdateProfileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.userService.UpdateProfile(userID, req.Name, req.PhoneNumber); err != nil {
		log.Printf("[UserHandler] Ошибка обновления профиля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось обновить профиль", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Профиль обновлен"})
}

// ChangePassword меняет пароль текущего пользователя
func (h *UserHandler) ChangePassword(c *gin.Context) {
	userID, ok := currentUserID(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "error_type": "invalid_request"})
		return
	}

	if err := h.userService.ChangePassword(userID, req.CurrentPassword, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Текущий пароль неверен", "error_type": "invalid_credentials"})
			return
		}
		log.Printf("[UserHandler] Ошибка смены пароля: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось сменить пароль", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Пароль изменен"})
}

// ListUsers возвращает пагинированный список пользователей (только для админов)
func (h *UserHandler) ListUsers(c *gin.Context) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	perPage, _ := strconv.Atoi(c.DefaultQuery("per_page", "20"))

	users, total, err := h.userService.ListUsers(page, perPage)
	if err != nil {
		log.Printf("[UserHandler] Ошибка получения списка пользователей: %v", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Не удалось получить список пользователей", "error_type": "internal_error"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"total": total,
		"page":  page,
	})
}
