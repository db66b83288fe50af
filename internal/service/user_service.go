package service

import (
	"fmt"
	"log"

	"github.com/yourusername/ecommerce-api/internal/domain/entity"
	"github.com/yourusername/ecommerce-api/internal/domain/repository"
)

// UserService предоставляет методы для работы с профилями пользователей
type UserService struct {
	userRepo repository.UserRepository
}

// NewUserService создает новый сервис пользователей
func NewUserService(userRepo repository.UserRepository) (*UserService, error) {
	if userRepo == nil {
		return nil, fmt.Errorf("UserRepository is required for UserService")
	}
	return &UserService{userRepo: userRepo}, nil
}

// GetUserByID возвращает пользователя по ID
func (s *UserService) GetUserByID(id uint) (*entity.User, error) {
	return s.userRepo.GetByID(id)
}

// UpdateProfile обновляет имя и телефон пользователя
func (s *UserService) UpdateProfile(userID uint, name, phoneNumber string) error {
	updates := map[string]interface{}{}
	if name != "" {
		updates["name"] = name
	}
	if phoneNumber != "" {
		updates["phone_number"] = phoneNumber
	}
	if len(updates) == 0 {
		return nil
	}

	if err := s.userRepo.UpdateProfile(userID, updates); err != nil {
		return err
	}
	log.Printf("[UserService] Профиль обновлен: user_id=%d", userID)
	return nil
}

// ChangePassword меняет пароль после проверки текущего
func (s *UserService) ChangePassword(userID uint, currentPassword, newPassword string) error {
	user, err := s.userRepo.GetByID(userID)
	if err != nil {
		return err
	}

	if !user.CheckPassword(currentPassword) {
		return ErrInvalidCredentials
	}

	return s.userRepo.UpdatePassword(userID, newPassword)
}

// ListUsers возвращает пагинированный список пользователей (для админов)
func (s *UserService) ListUsers(page, perPage int) ([]entity.User, int64, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	return s.userRepo.List(perPage, (page-1)*perPage)
}
