package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"
	_ "time/tzdata" // zone database for hosts without /usr/share/zoneinfo

	"github.com/joho/godotenv"
)

const (
	BackendJSON     = "json"
	BackendPostgres = "postgres"

	ProducerStatic   = "static"
	ProducerCalendar = "calendar"
	ProducerBrowser  = "browser"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	TelegramToken string
	LogLevel      string
	Environment   string
	Location      *time.Location

	StoreBackend  string
	ScheduleFile  string
	RemindersFile string
	DatabaseURL   string

	LinkProducer          string
	StaticMeetURL         string
	GoogleCredentialsFile string
	GoogleTokenFile       string
	BrowserProfileDir     string
	BrowserHeadless       bool

	LinkTimeout    time.Duration // per attempt
	SendRetries    int
	SendRetryDelay time.Duration
	MessageTTL     time.Duration // 0 keeps posted links
	ScheduleLead   time.Duration

	ReloadSpec  string
	ReloadDelay time.Duration // first reload after start

	DialogTTL time.Duration // idle multi-step commands are dropped after this

	LockFile string
	HTTPAddr string
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg, err := loadBase()
	if err != nil {
		return nil, err
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken == "" {
		return nil, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}
	return cfg, nil
}

// LoadWithoutToken is Load for commands that never talk to Telegram.
func LoadWithoutToken() (*AppConfig, error) {
	_ = godotenv.Load()
	return loadBase()
}

func loadBase() (*AppConfig, error) {
	cfg := &AppConfig{}
	var err error

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))

	tz := getEnv("TIMEZONE", "Europe/Moscow")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	cfg.StoreBackend = strings.ToLower(getEnv("STORE_BACKEND", BackendJSON))
	cfg.ScheduleFile = getEnv("SCHEDULE_FILE", "scheduled_meets.json")
	cfg.RemindersFile = getEnv("REMINDERS_FILE", "reminders.json")
	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	switch cfg.StoreBackend {
	case BackendJSON:
	case BackendPostgres:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is not set (required for STORE_BACKEND=postgres)")
		}
	default:
		return nil, fmt.Errorf("invalid STORE_BACKEND %q: use %s or %s", cfg.StoreBackend, BackendJSON, BackendPostgres)
	}

	cfg.LinkProducer = strings.ToLower(getEnv("LINK_PRODUCER", ProducerStatic))
	switch cfg.LinkProducer {
	case ProducerStatic, ProducerCalendar, ProducerBrowser:
	default:
		return nil, fmt.Errorf("invalid LINK_PRODUCER %q", cfg.LinkProducer)
	}
	cfg.StaticMeetURL = getEnv("STATIC_MEET_URL", "https://meet.google.com/pep-zuux-ubg")
	cfg.GoogleCredentialsFile = getEnv("GOOGLE_CREDENTIALS_FILE", "google_meet/credentials.json")
	cfg.GoogleTokenFile = getEnv("GOOGLE_TOKEN_FILE", "google_meet/token.json")
	cfg.BrowserProfileDir = os.Getenv("BROWSER_PROFILE_DIR")
	if cfg.LinkProducer == ProducerBrowser && cfg.BrowserProfileDir == "" {
		return nil, fmt.Errorf("BROWSER_PROFILE_DIR is not set (required for LINK_PRODUCER=browser: the profile must be signed in to Google)")
	}
	if cfg.BrowserHeadless, err = getBool("BROWSER_HEADLESS", true); err != nil {
		return nil, err
	}

	if cfg.LinkTimeout, err = getDuration("LINK_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.SendRetries, err = getInt("SEND_RETRIES", 3); err != nil {
		return nil, err
	}
	if cfg.SendRetries < 1 {
		return nil, fmt.Errorf("SEND_RETRIES must be at least 1, got %d", cfg.SendRetries)
	}
	if cfg.SendRetryDelay, err = getDuration("SEND_RETRY_DELAY", 2*time.Second); err != nil {
		return nil, err
	}
	if cfg.MessageTTL, err = getDuration("MESSAGE_TTL", 59*time.Minute); err != nil {
		return nil, err
	}
	if cfg.ScheduleLead, err = getDuration("SCHEDULE_LEAD", time.Minute); err != nil {
		return nil, err
	}

	cfg.ReloadSpec = getEnv("RELOAD_SPEC", "@every 1h")
	if cfg.ReloadDelay, err = getDuration("RELOAD_DELAY", 5*time.Minute); err != nil {
		return nil, err
	}

	if cfg.DialogTTL, err = getDuration("DIALOG_TTL", 30*time.Minute); err != nil {
		return nil, err
	}

	cfg.LockFile = os.Getenv("LOCK_FILE")
	cfg.HTTPAddr = os.Getenv("HTTP_ADDR")

	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid %s: must not be negative", key)
	}
	return d, nil
}

func getInt(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}

func getBool(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
