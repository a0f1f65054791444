package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, "Europe/Moscow", cfg.Location.String())
	assert.Equal(t, BackendJSON, cfg.StoreBackend)
	assert.Equal(t, "scheduled_meets.json", cfg.ScheduleFile)
	assert.Equal(t, "reminders.json", cfg.RemindersFile)
	assert.Equal(t, ProducerStatic, cfg.LinkProducer)
	assert.Equal(t, "https://meet.google.com/pep-zuux-ubg", cfg.StaticMeetURL)
	assert.True(t, cfg.BrowserHeadless)
	assert.Equal(t, 30*time.Second, cfg.LinkTimeout)
	assert.Equal(t, 3, cfg.SendRetries)
	assert.Equal(t, 2*time.Second, cfg.SendRetryDelay)
	assert.Equal(t, 59*time.Minute, cfg.MessageTTL)
	assert.Equal(t, time.Minute, cfg.ScheduleLead)
	assert.Equal(t, "@every 1h", cfg.ReloadSpec)
	assert.Equal(t, 5*time.Minute, cfg.ReloadDelay)
	assert.Equal(t, 30*time.Minute, cfg.DialogTTL)
	assert.Empty(t, cfg.LockFile)
	assert.Empty(t, cfg.HTTPAddr)
}

func TestLoadRequiresToken(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "")

	_, err := Load()
	assert.EqualError(t, err, "TELEGRAM_TOKEN is not set")

	cfg, err := LoadWithoutToken()
	require.NoError(t, err)
	assert.Empty(t, cfg.TelegramToken)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("TIMEZONE", "UTC")
	t.Setenv("STORE_BACKEND", "Postgres")
	t.Setenv("DATABASE_URL", "postgres://bot@localhost/bot?sslmode=disable")
	t.Setenv("LINK_PRODUCER", "calendar")
	t.Setenv("SEND_RETRIES", "5")
	t.Setenv("MESSAGE_TTL", "0")
	t.Setenv("BROWSER_HEADLESS", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, time.UTC, cfg.Location)
	assert.Equal(t, BackendPostgres, cfg.StoreBackend)
	assert.Equal(t, ProducerCalendar, cfg.LinkProducer)
	assert.Equal(t, 5, cfg.SendRetries)
	assert.Zero(t, cfg.MessageTTL)
	assert.False(t, cfg.BrowserHeadless)
}

func TestLoadRejectsBadValues(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"TIMEZONE", "Mars/Olympus"},
		{"STORE_BACKEND", "sqlite"},
		{"STORE_BACKEND", "postgres"}, // without DATABASE_URL
		{"LINK_PRODUCER", "zoom"},
		{"LINK_TIMEOUT", "soon"},
		{"SCHEDULE_LEAD", "-1m"},
		{"SEND_RETRIES", "0"},
		{"BROWSER_HEADLESS", "maybe"},
		{"LINK_PRODUCER", "browser"}, // without BROWSER_PROFILE_DIR
	}

	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			t.Setenv("TELEGRAM_TOKEN", "123:abc")
			t.Setenv("DATABASE_URL", "")
			t.Setenv("BROWSER_PROFILE_DIR", "")
			t.Setenv(tt.key, tt.value)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}

func TestLoadBrowserProducer(t *testing.T) {
	t.Setenv("TELEGRAM_TOKEN", "123:abc")
	t.Setenv("LINK_PRODUCER", "browser")
	t.Setenv("BROWSER_PROFILE_DIR", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "BROWSER_PROFILE_DIR")

	t.Setenv("BROWSER_PROFILE_DIR", "/var/lib/meet-bot/chrome")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ProducerBrowser, cfg.LinkProducer)
	assert.Equal(t, "/var/lib/meet-bot/chrome", cfg.BrowserProfileDir)
}
