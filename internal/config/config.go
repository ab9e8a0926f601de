package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Notification transports.
const (
	TransportGmail = "gmail"
	TransportAMQP  = "amqp"
	TransportLog   = "log"
)

type Config struct {
	// HTTP Server
	Port            string
	UserHeader      string
	ShutdownTimeout time.Duration

	// Database
	SQLiteDBPath   string
	CategoriesFile string

	// AMQP; empty URL disables events and the queued transport
	AMQPURL         string
	AMQPExchange    string
	AMQPNotifyQueue string
	AMQPEventsQueue string

	// Notifications
	NotifyTransport     string
	NotifyDedupe        bool
	OverdueReminderDays int
	AppBaseURL          string
	CurrencySymbol      string

	// Gmail
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRefreshToken string
	GmailSenderEmail   string
	OAuthRedirectPort  int

	// Scheduler
	SchedulerEnabled  bool
	SchedulerTimezone string
	ScanTimeout       time.Duration

	LogLevel string
}

func Load() *Config {
	cfg := &Config{
		Port:            getEnv("PORT", "8081"),
		UserHeader:      getEnv("USER_HEADER", "X-User-ID"),
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 10*time.Second),

		SQLiteDBPath:   getEnv("SQLITE_DB_PATH", "./data/expenses.db"),
		CategoriesFile: getEnv("CATEGORIES_FILE", ""),

		AMQPURL:         getEnv("AMQP_URL", ""),
		AMQPExchange:    getEnv("AMQP_EXCHANGE", "expensetracker"),
		AMQPNotifyQueue: getEnv("AMQP_NOTIFY_QUEUE", "notifications"),
		AMQPEventsQueue: getEnv("AMQP_EVENTS_QUEUE", "expense_events"),

		NotifyTransport:     strings.ToLower(getEnv("NOTIFY_TRANSPORT", TransportLog)),
		NotifyDedupe:        getEnvBool("NOTIFY_DEDUPE", false),
		OverdueReminderDays: getEnvInt("OVERDUE_REMINDER_DAYS", 1),
		AppBaseURL:          getEnv("APP_BASE_URL", "http://localhost:8081"),
		CurrencySymbol:      getEnv("CURRENCY_SYMBOL", "₹"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRefreshToken: getEnv("GOOGLE_REFRESH_TOKEN", ""),
		GmailSenderEmail:   getEnv("GMAIL_SENDER_EMAIL", ""),
		OAuthRedirectPort:  getEnvInt("OAUTH_REDIRECT_PORT", 8085),

		SchedulerEnabled:  getEnvBool("SCHEDULER_ENABLED", true),
		SchedulerTimezone: getEnv("SCHEDULER_TIMEZONE", "UTC"),
		ScanTimeout:       getEnvDuration("SCAN_TIMEOUT", 10*time.Minute),

		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	return cfg
}

// Location resolves SchedulerTimezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.SchedulerTimezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.SchedulerTimezone, err)
	}
	return loc, nil
}

// AMQPEnabled reports whether an AMQP URL was configured.
func (c *Config) AMQPEnabled() bool {
	return c.AMQPURL != ""
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	if strings.TrimSpace(c.UserHeader) == "" {
		errors = append(errors, "user header name cannot be empty")
	}

	if c.SQLiteDBPath == "" {
		errors = append(errors, "SQLite database path cannot be empty")
	} else {
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	}

	if c.CategoriesFile != "" {
		if _, err := os.Stat(c.CategoriesFile); os.IsNotExist(err) {
			errors = append(errors, fmt.Sprintf("categories file does not exist: %s", c.CategoriesFile))
		}
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPNotifyQueue == "" || c.AMQPEventsQueue == "" {
			errors = append(errors, "AMQP queue names cannot be empty when AMQP URL is provided")
		}
	}

	switch c.NotifyTransport {
	case TransportLog:
	case TransportGmail:
		errors = append(errors, c.validateGmail()...)
	case TransportAMQP:
		if c.AMQPURL == "" {
			errors = append(errors, "AMQP_URL is required when NOTIFY_TRANSPORT is amqp")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid notify transport '%s': must be one of [%s %s %s]",
			c.NotifyTransport, TransportGmail, TransportAMQP, TransportLog))
	}

	if c.OverdueReminderDays < 1 {
		errors = append(errors, fmt.Sprintf("invalid overdue reminder interval %d: must be at least 1 day", c.OverdueReminderDays))
	}

	if u, err := url.Parse(c.AppBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid app base URL '%s': must be an absolute URL", c.AppBaseURL))
	}

	if _, err := c.Location(); err != nil {
		errors = append(errors, fmt.Sprintf("invalid scheduler timezone '%s'", c.SchedulerTimezone))
	}

	if c.ShutdownTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid shutdown timeout %v: must be at least 1 second", c.ShutdownTimeout))
	}

	if c.ScanTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid scan timeout %v: must be at least 1 second", c.ScanTimeout))
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

// ValidateGmail checks the settings a Gmail sender needs. The mail worker
// calls it regardless of NOTIFY_TRANSPORT.
func (c *Config) ValidateGmail() error {
	if errs := c.validateGmail(); len(errs) > 0 {
		return fmt.Errorf("gmail configuration invalid:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func (c *Config) validateGmail() []string {
	var errors []string
	if c.GoogleClientID == "" {
		errors = append(errors, "GOOGLE_CLIENT_ID is required for Gmail")
	}
	if c.GoogleClientSecret == "" {
		errors = append(errors, "GOOGLE_CLIENT_SECRET is required for Gmail")
	}
	if c.GoogleRefreshToken == "" {
		errors = append(errors, "GOOGLE_REFRESH_TOKEN is required for Gmail (run oauth-init)")
	}
	if c.GmailSenderEmail == "" {
		errors = append(errors, "GMAIL_SENDER_EMAIL is required for Gmail")
	}
	return errors
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
