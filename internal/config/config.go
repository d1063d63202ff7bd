package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config keeps runtime settings for the daemon.
type Config struct {
	DatabaseURL    string
	SettingsPath   string
	MarkerPath     string
	LogFile        string
	TelegramToken  string
	TelegramChatID int64
}

// Load reads configuration from the environment (a local .env is honored
// when present) with sane defaults.
func Load() (Config, error) {
	// Missing .env just means plain environment variables.
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:   strings.TrimSpace(os.Getenv("DATABASE_URL")),
		SettingsPath:  strings.TrimSpace(os.Getenv("SETTINGS_PATH")),
		MarkerPath:    strings.TrimSpace(os.Getenv("REFRESH_MARKER_PATH")),
		LogFile:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
	}

	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "dday_keeper.db"
	}
	if cfg.SettingsPath == "" {
		cfg.SettingsPath = "dday_keeper_settings.yaml"
	}
	if cfg.MarkerPath == "" {
		cfg.MarkerPath = "dday_keeper_refresh.gen"
	}

	if raw := strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")); raw != "" {
		chatID, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return cfg, fmt.Errorf("TELEGRAM_CHAT_ID must be a number: %w", err)
		}
		cfg.TelegramChatID = chatID
	}

	if cfg.TelegramToken != "" && cfg.TelegramChatID == 0 {
		return cfg, fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_TOKEN is set")
	}

	return cfg, nil
}
