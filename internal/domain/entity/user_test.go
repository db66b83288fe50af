package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// mockTx создаёт минимальный мок для передачи в BeforeSave
// В реальности BeforeSave не использует tx напрямую, но сигнатура требует его
var mockTx *gorm.DB = nil

func TestUser_BeforeSave_HashesPassword(t *testing.T) {
	// Arrange: создаём пользователя с открытым паролем
	plainPassword := "mySecretPassword123"
	user := &User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: plainPassword,
	}

	// Act: вызываем BeforeSave
	err := user.BeforeSave(mockTx)

	// Assert: пароль должен быть хеширован
	require.NoError(t, err, "BeforeSave не должен возвращать ошибку")
	assert.NotEqual(t, plainPassword, user.Password, "Пароль должен быть изменён после хеширования")
	assert.True(t, len(user.Password) > 50, "Хеш bcrypt должен быть длиннее 50 символов")

	// Проверяем, что пароль действительно bcrypt-хеш
	err = bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(plainPassword))
	assert.NoError(t, err, "Хеш должен соответствовать исходному паролю")
}

func TestUser_BeforeSave_SkipsAlreadyHashedPassword(t *testing.T) {
	// Arrange: создаём пользователя с уже хешированным паролем
	plainPassword := "alreadyHashed"
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(plainPassword), bcrypt.DefaultCost)
	require.NoError(t, err)

	user := &User{
		Name:     "Test User",
		Email:    "test@example.com",
		Password: string(hashedPassword),
	}
	originalHash := user.Password

	// Act: вызываем BeforeSave
	err = user.BeforeSave(mockTx)

	// Assert: пароль не должен измениться (нет двойного хеширования)
	require.NoError(t, err, "BeforeSave не должен возвращать ошибку")
	assert.Equal(t, originalHash, user.Password, "Уже хешированный пароль не должен изменяться")
}

func TestUser_CheckPassword(t *testing.T) {
	// Arrange
	user := &User{Email: "test@example.com", Password: "correct-password"}
	require.NoError(t, user.BeforeSave(mockTx))

	// Assert
	assert.True(t, user.CheckPassword("correct-password"))
	assert.False(t, user.CheckPassword("wrong-password"))
}

func TestUser_IsAdmin(t *testing.T) {
	assert.True(t, (&User{Role: "admin"}).IsAdmin())
	assert.False(t, (&User{Role: "client"}).IsAdmin())
}
