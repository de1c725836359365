package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the process bootstrap settings read from the environment
type Config struct {
	ConfigPath       string
	DBPath           string
	BackupDir        string
	HTTPAddr         string
	ScriptsDir       string
	LogLevel         string
	RestartOnRestore bool
	BroadcastRate    float64
}

// Load reads bootstrap settings from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if not exists)
	_ = godotenv.Load()

	cfg := &Config{
		ConfigPath: getEnv("CONFIG_PATH", "data/config.json"),
		DBPath:     getEnv("DB_PATH", "data/bot.db"),
		BackupDir:  getEnv("BACKUP_DIR", "data/backups"),
		HTTPAddr:   getEnv("HTTP_ADDR", ":8080"),
		ScriptsDir: getEnv("SCRIPTS_DIR", "/usr/local/sbin/vpn"),
		LogLevel:   strings.ToLower(getEnv("LOG_LEVEL", "info")),
	}

	restart, err := strconv.ParseBool(getEnv("RESTART_ON_RESTORE", "false"))
	if err != nil {
		return nil, fmt.Errorf("RESTART_ON_RESTORE: %w", err)
	}
	cfg.RestartOnRestore = restart

	rate, err := strconv.ParseFloat(getEnv("BROADCAST_RATE", "25"), 64)
	if err != nil || rate <= 0 {
		return nil, fmt.Errorf("BROADCAST_RATE must be a positive number")
	}
	cfg.BroadcastRate = rate

	if cfg.DBPath == "" {
		return nil, fmt.Errorf("DB_PATH is required")
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
