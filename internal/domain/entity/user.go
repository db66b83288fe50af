package entity

import (
	"log"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// User представляет пользователя в системе
type User struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	Name        string `gorm:"size:100;not null" json:"name"`
	Email       string `gorm:"size:100;not null;uniqueIndex" json:"email"`
	PhoneNumber string `gorm:"size:20;not null;default:''" json:"phone_number"`
	Password    string `gorm:"size:100;not null" json:"-"`
	Role        string `gorm:"size:20;not null;default:'client'" json:"role"` // "client" или "admin"

	TwoFactorEnabled bool       `gorm:"not null;default:false" json:"two_factor_enabled"`
	EmailVerifiedAt  *time.Time `gorm:"type:timestamp" json:"email_verified_at,omitempty"`
	DeletedAt        *time.Time `gorm:"type:timestamp" json:"deleted_at,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName определяет имя таблицы для GORM
func (User) TableName() string {
	return "users"
}

// IsEmailVerified возвращает true, если email пользователя подтвержден кодом
func (u *User) IsEmailVerified() bool {
	return u.EmailVerifiedAt != nil
}

// IsAdmin возвращает true, если пользователь имеет роль администратора
func (u *User) IsAdmin() bool {
	return u.Role == "admin"
}

// BeforeSave хеширует пароль перед сохранением, только если он не является bcrypt-хешем
func (u *User) BeforeSave(tx *gorm.DB) error {
	// Хешируем пароль только если он:
	// 1. Не пустой
	// 2. Не является уже bcrypt-хешем (начинается с "$2a$", "$2b$" или "$2y$")
	if len(u.Password) > 0 && !strings.HasPrefix(u.Password, "$2a$") &&
		!strings.HasPrefix(u.Password, "$2b$") && !strings.HasPrefix(u.Password, "$2y$") {
		// Используем стандартное значение cost factor для bcrypt
		hashedPassword, err := bcrypt.GenerateFromPassword([]byte(u.Password), bcrypt.DefaultCost)
		if err != nil {
			log.Printf("[User.BeforeSave] Ошибка при хешировании пароля для email=%s: %v", u.Email, err)
			return err
		}
		u.Password = string(hashedPassword)
	}
	return nil
}

// CheckPassword проверяет, соответствует ли переданный пароль хешу
func (u *User) CheckPassword(password string) bool {
	err := bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(password))
	return err == nil
}
