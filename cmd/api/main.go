package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/yourusername/ecommerce-api/internal/config"
	"github.com/yourusername/ecommerce-api/internal/handler"
	"github.com/yourusername/ecommerce-api/internal/middleware"
	pgRepo "github.com/yourusername/ecommerce-api/internal/repository/postgres"
	redisRepo "github.com/yourusername/ecommerce-api/internal/repository/redis"
	"github.com/yourusername/ecommerce-api/internal/service"
	"github.com/yourusername/ecommerce-api/internal/service/otp"
	"github.com/yourusername/ecommerce-api/pkg/auth"
	"github.com/yourusername/ecommerce-api/pkg/database"
)

func main() {
	// Загружаем конфигурацию
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}
	log.Printf("Загрузка конфигурации из %s", configPath)

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Printf("Failed to load config: %v", err)
		os.Exit(1)
	}

	isProduction := os.Getenv("GIN_MODE") == "release"

	// Инициализируем подключение к PostgreSQL
	db, err := database.NewPostgresDB(cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Printf("Failed to connect to database: %v", err)
		os.Exit(1)
	}

	// Применяем миграции
	if err := database.MigrateDB(db); err != nil {
		log.Printf("Failed to migrate database: %v", err)
		os.Exit(1)
	}

	// Инициализируем подключение к Redis
	redisClient, err := database.NewUniversalRedisClient(cfg.Redis)
	if err != nil {
		log.Printf("Failed to connect to Redis: %v", err)
		os.Exit(1)
	}

	// Репозитории
	userRepo := pgRepo.NewUserRepo(db)
	codeRepo := pgRepo.NewVerificationCodeRepo(db)
	refreshTokenRepo, err := pgRepo.NewRefreshTokenRepo(db)
	if err != nil {
		log.Printf("Failed to create refresh token repository: %v", err)
		os.Exit(1)
	}
	otpRateLimiter, err := redisRepo.NewOTPRateLimiter(redisClient)
	if err != nil {
		log.Printf("Failed to create OTP rate limiter: %v", err)
		os.Exit(1)
	}

	// Подсистема кодов подтверждения
	var codeSource otp.CodeSource = otp.NewSecureGenerator()
	if cfg.Email.TestingMode {
		log.Printf("[Main] ВНИМАНИЕ: включен тестовый режим, выпускается фиксированный код")
		codeSource = &otp.FixedSource{Code: cfg.Email.TestingCode}
	}
	hasher := otp.NewBcryptHasher(cfg.OTP.BcryptCost)
	issuer, err := otp.NewIssuer(codeRepo, codeSource, hasher)
	if err != nil {
		log.Printf("Failed to create OTP issuer: %v", err)
		os.Exit(1)
	}
	verifier, err := otp.NewVerifier(codeRepo, hasher)
	if err != nil {
		log.Printf("Failed to create OTP verifier: %v", err)
		os.Exit(1)
	}

	// Сервис отправки писем
	var emailService service.EmailService = &service.NoopEmailService{}
	if cfg.Email.Enabled {
		emailService, err = service.NewResendEmailService(cfg.Email.ResendAPIKey, cfg.Email.FromName+" <"+cfg.Email.FromEmail+">")
		if err != nil {
			log.Printf("Failed to create email service: %v", err)
			os.Exit(1)
		}
	}

	// Сервисы
	verificationService, err := service.NewVerificationService(issuer, verifier, otpRateLimiter, emailService, codeRepo)
	if err != nil {
		log.Printf("Failed to create verification service: %v", err)
		os.Exit(1)
	}
	jwtService, err := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpirationHrs)
	if err != nil {
		log.Printf("Failed to create JWT service: %v", err)
		os.Exit(1)
	}
	authService, err := service.NewAuthService(userRepo, refreshTokenRepo, verificationService, jwtService, cfg.Auth.SessionLimit, cfg.Auth.RefreshLifetime())
	if err != nil {
		log.Printf("Failed to create auth service: %v", err)
		os.Exit(1)
	}
	userService, err := service.NewUserService(userRepo)
	if err != nil {
		log.Printf("Failed to create user service: %v", err)
		os.Exit(1)
	}

	// Обработчики
	authHandler := handler.NewAuthHandler(authService)
	verificationHandler := handler.NewVerificationHandler(verificationService)
	userHandler := handler.NewUserHandler(userService)

	// Middleware
	authMiddleware := middleware.NewAuthMiddleware(jwtService)
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Контекст приложения для фоновых горутин
	appCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Фоновая очистка просроченных кодов и refresh токенов
	go func() {
		ticker := time.NewTicker(cfg.OTP.CleanupInterval())
		defer ticker.Stop()
		for {
			select {
			case <-appCtx.Done():
				return
			case <-ticker.C:
				if _, err := verificationService.CleanupExpired(); err != nil {
					log.Printf("[Main] Ошибка очистки просроченных кодов: %v", err)
				}
				if deleted, err := refreshTokenRepo.CleanupExpiredTokens(); err != nil {
					log.Printf("[Main] Ошибка очистки refresh токенов: %v", err)
				} else if deleted > 0 {
					log.Printf("[Main] Удалено просроченных refresh токенов: %d", deleted)
				}
			}
		}
	}()

	// Инициализируем роутер Gin
	router := gin.Default()

	// Настройка доверенных прокси для корректной работы c.ClientIP()
	if isProduction {
		// Production: не доверять прокси-заголовкам
		// Если используете load balancer, замените nil на []string{"IP_БАЛАНСИРОВЩИКА"}
		if err := router.SetTrustedProxies(nil); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	} else {
		if err := router.SetTrustedProxies([]string{"127.0.0.1", "::1"}); err != nil {
			log.Printf("Warning: failed to set trusted proxies: %v", err)
		}
	}

	// Настройка CORS
	router.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:5173", "http://localhost:3000"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Настраиваем маршруты API
	api := router.Group("/api")
	{
		// Аутентификация
		authGroup := api.Group("/auth")
		{
			strictLimit := rateLimiter.Limit(middleware.StrictAuthRateLimitConfig())
			authGroup.POST("/register", strictLimit, authHandler.Register)
			authGroup.POST("/verify-email", strictLimit, authHandler.VerifyEmail)
			authGroup.POST("/login", strictLimit, authHandler.Login)
			authGroup.POST("/refresh", rateLimiter.Limit(middleware.DefaultAuthRateLimitConfig()), authHandler.Refresh)
			authGroup.POST("/forgot-password", strictLimit, authHandler.ForgotPassword)
			authGroup.POST("/reset-password", strictLimit, authHandler.ResetPassword)

			// Маршруты, требующие аутентификации
			authedAuth := authGroup.Group("/")
			authedAuth.Use(authMiddleware.RequireAuth())
			{
				authedAuth.POST("/logout", authHandler.Logout)
				authedAuth.POST("/logout-all", authHandler.LogoutAll)
				authedAuth.GET("/sessions", authHandler.Sessions)
				authedAuth.POST("/2fa/disable/request", authHandler.RequestDisable2FA)
				authedAuth.POST("/2fa/disable/confirm", authHandler.ConfirmDisable2FA)
			}
		}

		// Коды подтверждения
		verificationGroup := api.Group("/verification-codes")
		verificationGroup.Use(rateLimiter.Limit(middleware.VerificationRateLimitConfig()))
		{
			verificationGroup.POST("/send-code", verificationHandler.SendCode)
			verificationGroup.POST("/verify-code", verificationHandler.VerifyCode)
		}

		// Пользователи
		usersGroup := api.Group("/users")
		usersGroup.Use(authMiddleware.RequireAuth())
		{
			usersGroup.GET("/me", userHandler.Me)
			usersGroup.PATCH("/me", userHandler.UpdateProfile)
			usersGroup.POST("/me/change-password", userHandler.ChangePassword)

			adminUsers := usersGroup.Group("/")
			adminUsers.Use(authMiddleware.AdminOnly())
			{
				adminUsers.GET("", userHandler.ListUsers)
			}
		}
	}

	// Healthcheck
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Настраиваем HTTP сервер с тайм-аутами для защиты от slow client attacks
	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	// Запускаем сервер в горутине
	go func() {
		log.Printf("Starting server on port %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("Failed to start server: %v", err)
		}
	}()

	log.Printf("Server started on port %s", cfg.Server.Port)

	// Ждем сигнала остановки
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Останавливаем фоновые горутины
	cancel()

	// Создаем контекст с таймаутом для graceful shutdown сервера
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server forced to shutdown: %v", err)
		os.Exit(1)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("Error closing Redis client: %v", err)
	}

	log.Println("Server exited properly")
}
