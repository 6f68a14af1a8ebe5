package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	SinkSheets = "sheets"
	SinkXLSX   = "xlsx"
)

// Config is read once at startup and passed to everything that needs it.
type Config struct {
	Port            string
	VerifyToken     string
	SheetName       string
	SpreadsheetID   string
	CredentialsFile string
	Sink            string
	XLSXPath        string

	Notifications NotificationConfig

	PageAccessToken string
	GraphAPIURL     string
}

type NotificationConfig struct {
	Enabled    bool
	BaseURL    string
	Topic      string
	Priority   string
	MaxRetries int
	BaseDelay  time.Duration
	MaxDelay   time.Duration
}

// SetupEnvironment loads .env file and configures zerolog output and log level.
func SetupEnvironment() {
	// Load .env file if it exists
	err := godotenv.Load()

	if os.Getenv("ENV") == "production" {
		zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
		log.Logger = log.Output(os.Stderr)
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	}

	levelStr := strings.ToLower(os.Getenv("LOGLEVEL"))
	switch levelStr {
	case "":
		if os.Getenv("ENV") == "production" {
			zerolog.SetGlobalLevel(zerolog.WarnLevel)
		} else {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
		}
	case "warning":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	default:
		level, parseErr := zerolog.ParseLevel(levelStr)
		if parseErr != nil {
			zerolog.SetGlobalLevel(zerolog.InfoLevel)
			log.Warn().Msgf("Unknown LOGLEVEL '%s', defaulting to info.", levelStr)
			break
		}
		zerolog.SetGlobalLevel(level)
	}

	// wait until now to report on the .env file so we have the chance to set up logging first
	if err == nil {
		log.Debug().Msg("Loaded environment variables from .env file.")
	} else {
		log.Debug().Msg("No .env file found or error loading .env file; proceeding with existing environment variables.")
	}
}

// LoadConfig builds the Config from the environment.
func LoadConfig() (Config, error) {
	cfg := Config{
		Port:            GetEnvWithDefault("PORT", "8000"),
		VerifyToken:     os.Getenv("VERIFY_TOKEN"),
		SheetName:       GetEnvWithDefault("GOOGLE_SHEET_NAME", "orders"),
		SpreadsheetID:   os.Getenv("SPREADSHEET_ID"),
		CredentialsFile: GetEnvWithDefault("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		Sink:            strings.ToLower(GetEnvWithDefault("ORDER_SINK", SinkSheets)),
		XLSXPath:        GetEnvWithDefault("ORDERS_XLSX_PATH", "orders.xlsx"),
		PageAccessToken: os.Getenv("PAGE_ACCESS_TOKEN"),
		GraphAPIURL:     os.Getenv("GRAPH_API_URL"),
		Notifications: NotificationConfig{
			Enabled:  GetEnvWithDefault("NTFY_ENABLED", "false") == "true",
			BaseURL:  GetEnvWithDefault("NTFY_URL", "https://ntfy.sh"),
			Topic:    GetEnvWithDefault("NTFY_TOPIC", "messenger-orders"),
			Priority: os.Getenv("NTFY_PRIORITY"),
		},
	}

	if cfg.VerifyToken == "" {
		return Config{}, fmt.Errorf("VERIFY_TOKEN environment variable is required")
	}
	if cfg.Sink != SinkSheets && cfg.Sink != SinkXLSX {
		return Config{}, fmt.Errorf("invalid ORDER_SINK %q (must be %s or %s)", cfg.Sink, SinkSheets, SinkXLSX)
	}

	var err error
	if cfg.Notifications.MaxRetries, err = strconv.Atoi(GetEnvWithDefault("NTFY_MAX_RETRIES", "3")); err != nil {
		return Config{}, fmt.Errorf("invalid NTFY_MAX_RETRIES: %w", err)
	}
	if cfg.Notifications.BaseDelay, err = time.ParseDuration(GetEnvWithDefault("NTFY_BASE_DELAY", "1s")); err != nil {
		return Config{}, fmt.Errorf("invalid NTFY_BASE_DELAY: %w", err)
	}
	if cfg.Notifications.MaxDelay, err = time.ParseDuration(GetEnvWithDefault("NTFY_MAX_DELAY", "30s")); err != nil {
		return Config{}, fmt.Errorf("invalid NTFY_MAX_DELAY: %w", err)
	}

	return cfg, nil
}

// GetEnvWithDefault fetches an environment variable with a default fallback.
func GetEnvWithDefault(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
