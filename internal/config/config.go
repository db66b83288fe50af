package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config хранит все настройки приложения
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Auth     AuthConfig
	Email    EmailConfig
	OTP      OTPConfig
}

// ServerConfig содержит настройки HTTP сервера
type ServerConfig struct {
	Port         string
	ReadTimeout  int
	WriteTimeout int
}

// DatabaseConfig содержит настройки подключения к PostgreSQL
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig содержит унифицированные настройки подключения к Redis
// Поддерживает режимы: single, sentinel, cluster
type RedisConfig struct {
	// Mode: Режим работы Redis ("single", "sentinel", "cluster"). По умолчанию "single".
	Mode string `mapstructure:"mode"`

	// Addrs: Список адресов Redis (хост:порт). Используется для всех режимов.
	// Для 'single', если не пуст, используется первый адрес из списка.
	Addrs []string `mapstructure:"addrs"`

	// Addr: Альтернативный адрес для режима 'single' (для обратной совместимости).
	// Используется, если Mode="single" и Addrs пустой.
	Addr string `mapstructure:"addr"`

	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`

	// MasterName: Имя мастер-сервера Redis (только для режима "sentinel")
	MasterName string `mapstructure:"master_name"`

	// MaxRetries: Максимальное количество попыток переподключения (-1 - бесконечно). По умолчанию 0 (без ретраев).
	MaxRetries int `mapstructure:"max_retries"`

	// MinRetryBackoff: Минимальный интервал между попытками (в миллисекундах). По умолчанию 8ms.
	MinRetryBackoff int `mapstructure:"min_retry_backoff"`

	// MaxRetryBackoff: Максимальный интервал между попытками (в миллисекундах). По умолчанию 512ms.
	MaxRetryBackoff int `mapstructure:"max_retry_backoff"`
}

// JWTConfig содержит настройки JWT
type JWTConfig struct {
	Secret        string `mapstructure:"secret"`
	ExpirationHrs int    `mapstructure:"expirationHrs"`
}

// AuthConfig содержит настройки аутентификации
type AuthConfig struct {
	// SessionLimit - максимум одновременных сессий на пользователя
	SessionLimit int `mapstructure:"sessionLimit"`
	// RefreshTokenLifetime - время жизни refresh токена в часах
	RefreshTokenLifetime int `mapstructure:"refreshTokenLifetime"`
}

// EmailConfig содержит настройки отправки писем
type EmailConfig struct {
	// Enabled - включена ли реальная отправка писем
	Enabled      bool   `mapstructure:"enabled"`
	ResendAPIKey string `mapstructure:"resend_api_key"`
	FromEmail    string `mapstructure:"from_email"`
	FromName     string `mapstructure:"from_name"`
	// TestingMode - вместо случайных кодов выпускается TestingCode.
	// Только для стендов: в release режиме загрузка конфигурации падает.
	TestingMode bool   `mapstructure:"testing_mode"`
	TestingCode string `mapstructure:"testing_code"`
}

// OTPConfig содержит настройки подсистемы кодов подтверждения
type OTPConfig struct {
	// BcryptCost - стоимость bcrypt для хеширования кодов
	BcryptCost int `mapstructure:"bcrypt_cost"`
	// CleanupIntervalMin - интервал фоновой очистки просроченных кодов в минутах
	CleanupIntervalMin int `mapstructure:"cleanup_interval_min"`
}

// CleanupInterval возвращает интервал очистки как Duration
func (o *OTPConfig) CleanupInterval() time.Duration {
	if o.CleanupIntervalMin <= 0 {
		return time.Hour
	}
	return time.Duration(o.CleanupIntervalMin) * time.Minute
}

// RefreshLifetime возвращает время жизни refresh токена как Duration
func (a *AuthConfig) RefreshLifetime() time.Duration {
	if a.RefreshTokenLifetime <= 0 {
		return 30 * 24 * time.Hour
	}
	return time.Duration(a.RefreshTokenLifetime) * time.Hour
}

// PostgresConnectionString формирует строку подключения к PostgreSQL
func (d *DatabaseConfig) PostgresConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Load загружает конфигурацию из файла
func Load(configPath string) (*Config, error) {
	vip := viper.New() // Используем новый экземпляр Viper, чтобы избежать глобального состояния

	// 1. Устанавливаем значения по умолчанию
	vip.SetDefault("server.port", "8080")
	vip.SetDefault("database.sslmode", "disable")
	vip.SetDefault("jwt.expirationHrs", 24)
	vip.SetDefault("auth.sessionLimit", 10)
	vip.SetDefault("auth.refreshTokenLifetime", 720)
	vip.SetDefault("otp.bcrypt_cost", 10)
	vip.SetDefault("otp.cleanup_interval_min", 60)

	// 2. Привязываем переменные окружения ЯВНО
	// Привязка для секции Database
	vip.BindEnv("database.host", "DATABASE_HOST")
	vip.BindEnv("database.port", "DATABASE_PORT")
	vip.BindEnv("database.user", "DATABASE_USER")
	vip.BindEnv("database.password", "DATABASE_PASSWORD")
	vip.BindEnv("database.dbname", "DATABASE_DBNAME")
	vip.BindEnv("database.sslmode", "DATABASE_SSLMODE")

	// Привязка для секции Redis
	vip.BindEnv("redis.mode", "REDIS_MODE")
	vip.BindEnv("redis.addrs", "REDIS_ADDRS") // Для массива строк
	vip.BindEnv("redis.addr", "REDIS_ADDR")   // Для одиночной строки
	vip.BindEnv("redis.password", "REDIS_PASSWORD")
	vip.BindEnv("redis.db", "REDIS_DB")
	vip.BindEnv("redis.master_name", "REDIS_MASTER_NAME")

	// Привязка для секции JWT
	vip.BindEnv("jwt.secret", "JWT_SECRET")
	vip.BindEnv("jwt.expirationHrs", "JWT_EXPIRATIONHRS")

	// Привязка для секции Auth
	vip.BindEnv("auth.sessionLimit", "AUTH_SESSIONLIMIT")
	vip.BindEnv("auth.refreshTokenLifetime", "AUTH_REFRESHTOKENLIFETIME")

	// Привязка для секции Email
	vip.BindEnv("email.enabled", "EMAIL_ENABLED")
	vip.BindEnv("email.resend_api_key", "RESEND_API_KEY")
	vip.BindEnv("email.from_email", "EMAIL_FROM")
	vip.BindEnv("email.from_name", "EMAIL_FROM_NAME")
	vip.BindEnv("email.testing_mode", "EMAIL_TESTING_MODE")
	vip.BindEnv("email.testing_code", "EMAIL_TESTING_CODE")

	// Привязка для секции OTP
	vip.BindEnv("otp.bcrypt_cost", "OTP_BCRYPT_COST")
	vip.BindEnv("otp.cleanup_interval_min", "OTP_CLEANUP_INTERVAL_MIN")

	// Привязка для Server
	vip.BindEnv("server.port", "SERVER_PORT")

	// 3. Устанавливаем путь к файлу конфигурации
	if configPath != "" {
		vip.SetConfigFile(configPath)
		// 4. Пытаемся прочитать файл конфигурации (не страшно, если его нет, т.к. есть BindEnv)
		if err := vip.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); ok {
				log.Printf("Файл конфигурации '%s' не найден, используются переменные окружения/умолчания.", configPath)
			} else {
				log.Printf("Предупреждение: не удалось прочитать файл конфигурации '%s': %v", configPath, err)
			}
		}
	}

	// 5. Анмаршалим конфигурацию (Viper объединит значения из файла и привязанных env vars)
	var cfg Config
	if err := vip.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	// 6. Логирование конфигурации (только в debug режиме)
	ginMode := os.Getenv("GIN_MODE")
	if ginMode != "release" {
		log.Printf("--- Загруженные значения конфигурации ---")
		log.Printf("Server Port: %s", cfg.Server.Port)
		log.Printf("Database Host: %s", cfg.Database.Host)
		log.Printf("Database Name: %s", cfg.Database.DBName)
		log.Printf("Redis Addr: %s", cfg.Redis.Addr)
		log.Printf("Redis Mode: %s", cfg.Redis.Mode)
		log.Printf("JWT Expiration Hours: %d", cfg.JWT.ExpirationHrs)
		log.Printf("JWT Secret Set: %t", cfg.JWT.Secret != "")
		log.Printf("Email Enabled: %t", cfg.Email.Enabled)
		log.Printf("Email Testing Mode: %t", cfg.Email.TestingMode)
		log.Printf("OTP Bcrypt Cost: %d", cfg.OTP.BcryptCost)
		log.Printf("-----------------------------------------")
	}

	// 7. Проверка обязательных параметров
	if cfg.JWT.Secret == "" {
		return nil, fmt.Errorf("JWT secret is required in config (check JWT_SECRET env var)")
	}
	if cfg.Database.Host == "" || cfg.Database.DBName == "" || cfg.Database.User == "" {
		return nil, fmt.Errorf("database configuration (host, dbname, user) is incomplete in config (check DATABASE_HOST, DATABASE_DBNAME, DATABASE_USER env vars)")
	}
	if ginMode == "release" {
		if cfg.Database.Password == "" {
			return nil, fmt.Errorf("database password is required in release mode (check DATABASE_PASSWORD env var)")
		}
		// Фиксированные коды в production недопустимы
		if cfg.Email.TestingMode {
			return nil, fmt.Errorf("email testing mode must be disabled in release mode (check EMAIL_TESTING_MODE env var)")
		}
	}
	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		return nil, fmt.Errorf("resend API key is required when email is enabled (check RESEND_API_KEY env var)")
	}
	if cfg.Email.TestingMode && cfg.Email.TestingCode == "" {
		return nil, fmt.Errorf("testing code is required when testing mode is enabled (check EMAIL_TESTING_CODE env var)")
	}

	return &cfg, nil
}
