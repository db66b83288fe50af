package main

import (
	"database/sql"
	"log"
	"os"

	_ "github.com/lib/pq"
	"github.com/yourusername/ecommerce-api/internal/config"
)

// Одноразовая очистка просроченных кодов подтверждения и refresh токенов.
// Предназначена для запуска по cron на окружениях, где фоновая очистка
// API-процесса выключена или процесс долго не жил.
func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "config/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := sql.Open("postgres", cfg.Database.PostgresConnectionString())
	if err != nil {
		log.Fatal(err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatal(err)
	}

	res, err := db.Exec("DELETE FROM verification_codes WHERE expires_at < NOW()")
	if err != nil {
		log.Fatalf("Failed to delete expired verification codes: %v", err)
	}
	codes, _ := res.RowsAffected()

	res, err = db.Exec("DELETE FROM refresh_tokens WHERE expires_at < NOW() OR revoked_at IS NOT NULL")
	if err != nil {
		log.Fatalf("Failed to delete stale refresh tokens: %v", err)
	}
	tokens, _ := res.RowsAffected()

	log.Printf("Cleanup finished: verification_codes=%d refresh_tokens=%d", codes, tokens)
}
