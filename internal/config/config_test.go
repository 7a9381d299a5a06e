package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/chatbots/internal/config"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfigFromFile(t *testing.T) {
	path := writeConfig(t, `
telegram:
  token: "123456789:abcdef"
  admin_user_id: 42
processor:
  workers: 4
  timeout: 3s
  locale: tr
bots:
  bundle_dir: /srv/bundle
store:
  products:
    - bot: binbank
      price: 1.99
      currency: USD
`)

	cfg, err := config.LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "123456789:abcdef", cfg.Telegram.Token)
	assert.Equal(t, int64(42), cfg.Telegram.AdminUserID)
	assert.Equal(t, 4, cfg.Processor.Workers)
	assert.Equal(t, 3*time.Second, cfg.Processor.Timeout)
	assert.Equal(t, "tr", cfg.Processor.Locale)
	assert.Equal(t, "/srv/bundle", cfg.Bots.BundleDir)
	require.Len(t, cfg.Store.Products, 1)
	assert.Equal(t, "binbank", cfg.Store.Products[0].Bot)

	// Defaults survive partial files.
	assert.Equal(t, "info", cfg.Logger.Level)
	assert.Equal(t, "./chatbots", cfg.Bots.InstallDir)
	assert.Equal(t, "GET", cfg.Store.GetLabel)
	assert.True(t, cfg.Scheduler.Tasks["sql_maintenance"].Enabled)
	assert.False(t, cfg.Gemini.Enabled())
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("CHATBOTS_TELEGRAM_TOKEN", "env-token")
	t.Setenv("CHATBOTS_TELEGRAM_ADMIN_USER_ID", "7")
	t.Setenv("CHATBOTS_LOGGER_LEVEL", "debug")

	cfg, err := config.LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.Telegram.Token)
	assert.Equal(t, int64(7), cfg.Telegram.AdminUserID)
	assert.Equal(t, "debug", cfg.Logger.Level)
}

func TestLoadConfigValidation(t *testing.T) {
	testCases := []struct {
		name string
		body string
	}{
		{
			name: "bad log level",
			body: "telegram:\n  token: t\n  admin_user_id: 1\nlogger:\n  level: loud\n",
		},
		{
			name: "bad currency",
			body: "telegram:\n  token: t\n  admin_user_id: 1\nstore:\n  products:\n    - bot: a\n      price: 1\n      currency: dollars\n",
		},
		{
			name: "negative workers",
			body: "telegram:\n  token: t\n  admin_user_id: 1\nprocessor:\n  workers: -1\n",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := config.LoadConfig(writeConfig(t, tc.body))
			assert.Error(t, err)
		})
	}
}

func TestValidateServe(t *testing.T) {
	testCases := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{name: "offline config", body: "bots:\n  bundle_dir: ./bundle\n", wantErr: true},
		{name: "missing token", body: "telegram:\n  admin_user_id: 1\n", wantErr: true},
		{name: "missing admin", body: "telegram:\n  token: t\n", wantErr: true},
		{name: "complete", body: "telegram:\n  token: t\n  admin_user_id: 1\n", wantErr: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			cfg, err := config.LoadConfig(writeConfig(t, tc.body))
			require.NoError(t, err)

			if tc.wantErr {
				assert.Error(t, cfg.ValidateServe())
			} else {
				assert.NoError(t, cfg.ValidateServe())
			}
		})
	}
}
