// Package config provides configuration management for the quiz host.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds all configuration for the host
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Auth     AuthConfig
	Game     GameConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Driver string
	DSN    string
}

// AuthConfig holds authentication configuration
type AuthConfig struct {
	JWTSecret       string
	TokenExpiry     time.Duration
	AdminPassphrase string
}

// GameConfig holds gameplay and reel geometry configuration
type GameConfig struct {
	WorkbookPath string
	SymbolHeight int
	VisibleRows  int
	CycleSymbols int
	SpinInterval time.Duration
	HistorySize  int
	MaxAttempts  int
}

// Load loads configuration from environment with defaults
func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("QUIZ_PORT", "8080"),
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: getEnv("QUIZ_DB_DRIVER", "sqlite3"),
			DSN:    getEnv("QUIZ_DB_DSN", "quizslot.db"),
		},
		Auth: AuthConfig{
			JWTSecret:       getEnv("QUIZ_JWT_SECRET", "quiz-dev-secret-change-in-production"),
			TokenExpiry:     24 * time.Hour,
			AdminPassphrase: getEnv("QUIZ_ADMIN_PASSPHRASE", "letmein"),
		},
		Game: GameConfig{
			WorkbookPath: getEnv("QUIZ_WORKBOOK", "quiz.xlsx"),
			SymbolHeight: getEnvInt("QUIZ_SYMBOL_HEIGHT", 120),
			VisibleRows:  getEnvInt("QUIZ_VISIBLE_ROWS", 3),
			CycleSymbols: getEnvInt("QUIZ_CYCLE_SYMBOLS", 30),
			SpinInterval: time.Duration(getEnvInt("QUIZ_SPIN_INTERVAL_MS", 50)) * time.Millisecond,
			HistorySize:  getEnvInt("QUIZ_HISTORY_SIZE", 3),
			MaxAttempts:  getEnvInt("QUIZ_MAX_ATTEMPTS", 50),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}
