package repository

import "github.com/yourusername/ecommerce-api/internal/domain/entity"

// UserRepository интерфейс для работы с пользователями
type UserRepository interface {
	// Create создает нового пользователя
	Create(user *entity.User) error

	// GetByID возвращает пользователя по ID
	GetByID(id uint) (*entity.User, error)

	// GetByEmail возвращает пользователя по email
	GetByEmail(email string) (*entity.User, error)

	// Update обновляет информацию о пользователе
	Update(user *entity.User) error

	// UpdateProfile обновляет профиль пользователя без изменения пароля
	UpdateProfile(userID uint, updates map[string]interface{}) error

	// UpdatePassword безопасно обновляет пароль пользователя
	UpdatePassword(userID uint, newPassword string) error

	// List возвращает пагинированный список пользователей и их общее количество
	List(limit, offset int) ([]entity.User, int64, error)
}
