// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/sevigo/neat/internal/logger"
)

// DBConfig holds Postgres connection settings.
type DBConfig struct {
	Host            string
	Port            int
	Username        string
	Password        string
	Database        string
	SSLMode         string
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// FizzyConfig holds settings for the Fizzy ticketing API.
type FizzyConfig struct {
	APIURL  string
	Account string
	Token   string
	Timeout time.Duration
}

// Config holds the application's configuration values.
type Config struct {
	ServerPort         string
	Database           DBConfig
	Fizzy              FizzyConfig
	FizzyWebhookSecret string
	Logging            logger.Config
}

// LoadConfig reads configuration from environment variables and a .env file,
// sets sensible defaults, and validates required fields. Environment
// variables take precedence over the .env file.
func LoadConfig() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("LOG_OUTPUT", "stdout")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "neat")
	v.SetDefault("DB_NAME", "neat")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "30m")
	v.SetDefault("DB_CONN_MAX_IDLE_TIME", "5m")
	v.SetDefault("FIZZY_API_URL", "https://app.fizzy.do/api")
	v.SetDefault("FIZZY_TIMEOUT", "10s")

	// A missing .env file is fine; the environment is still consulted.
	if err := v.ReadInConfig(); err != nil && !os.IsNotExist(err) {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Warn("failed to read .env file", "error", err)
		}
	}

	for _, key := range []string{"FIZZY_ACCOUNT", "FIZZY_TOKEN", "FIZZY_WEBHOOK_SECRET"} {
		if v.GetString(key) == "" {
			return nil, fmt.Errorf("%s must be set", key)
		}
	}

	return &Config{
		ServerPort: v.GetString("SERVER_PORT"),
		Database: DBConfig{
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetInt("DB_PORT"),
			Username:        v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			Database:        v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
			ConnMaxIdleTime: v.GetDuration("DB_CONN_MAX_IDLE_TIME"),
		},
		Fizzy: FizzyConfig{
			APIURL:  v.GetString("FIZZY_API_URL"),
			Account: v.GetString("FIZZY_ACCOUNT"),
			Token:   v.GetString("FIZZY_TOKEN"),
			Timeout: v.GetDuration("FIZZY_TIMEOUT"),
		},
		FizzyWebhookSecret: v.GetString("FIZZY_WEBHOOK_SECRET"),
		Logging: logger.Config{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
			Output: v.GetString("LOG_OUTPUT"),
		},
	}, nil
}
