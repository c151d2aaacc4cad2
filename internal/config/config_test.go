package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequiredEnv(t *testing.T) {
	t.Helper()
	t.Setenv("FIZZY_ACCOUNT", "acme")
	t.Setenv("FIZZY_TOKEN", "token-123")
	t.Setenv("FIZZY_WEBHOOK_SECRET", "hook-secret")
}

func TestLoadConfigDefaults(t *testing.T) {
	setRequiredEnv(t)

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "disable", cfg.Database.SSLMode)
	assert.Equal(t, "acme", cfg.Fizzy.Account)
	assert.Equal(t, "token-123", cfg.Fizzy.Token)
	assert.Equal(t, "hook-secret", cfg.FizzyWebhookSecret)
	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, "text", cfg.Logging.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	setRequiredEnv(t)
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DB_HOST", "db.internal")
	t.Setenv("LOG_FORMAT", "json")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.ServerPort)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigMissingRequired(t *testing.T) {
	tests := []struct {
		name    string
		missing string
	}{
		{"missing account", "FIZZY_ACCOUNT"},
		{"missing token", "FIZZY_TOKEN"},
		{"missing webhook secret", "FIZZY_WEBHOOK_SECRET"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			setRequiredEnv(t)
			t.Setenv(tt.missing, "")

			_, err := LoadConfig()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.missing)
		})
	}
}
