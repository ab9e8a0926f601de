// Package cli provides common CLI initialization utilities.
// This package consolidates the start-up steps shared by cmd/expensetracker,
// cmd/mail-worker, cmd/due-check and cmd/adduser.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"expensetracker/internal/amqp"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/mail"
	"expensetracker/internal/monitor"
	"expensetracker/internal/notify"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"

	"github.com/joho/godotenv"
)

// SetupLogger initializes structured logging at the given LOG_LEVEL and
// makes it the default logger.
func SetupLogger(level string) *log.Logger {
	cfg := log.DefaultConfig()
	cfg.Level = log.ParseLevel(level)
	logger := log.New(cfg)
	log.SetDefault(logger)
	return logger
}

// LoadEnvFile loads the .env file for local development.
// Errors are ignored silently as this is optional in production.
func LoadEnvFile() {
	_ = godotenv.Load()
}

// LoadAndValidateConfig loads configuration and validates it.
// Returns the config or exits the process on validation failure.
func LoadAndValidateConfig() *config.Config {
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		slog.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}
	return cfg
}

// OpenStore opens the SQLite repository, runs migrations and seeds
// categories from CATEGORIES_FILE when one is configured.
func OpenStore(ctx context.Context, cfg *config.Config) (*storage.SQLiteRepository, error) {
	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLiteDBPath, err)
	}
	if cfg.CategoriesFile != "" {
		if _, err := repo.SeedCategories(ctx, cfg.CategoriesFile); err != nil {
			repo.Close()
			return nil, err
		}
	}
	return repo, nil
}

// InitSQLite is OpenStore that exits the process on failure.
func InitSQLite(ctx context.Context, logger *log.Logger, cfg *config.Config) *storage.SQLiteRepository {
	repo, err := OpenStore(ctx, cfg)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	return repo
}

// InitAMQP connects to the broker when AMQP_URL is set. A failed connection
// is logged and yields nil unless the notification transport depends on it.
func InitAMQP(logger *log.Logger, cfg *config.Config) (*amqp.Client, error) {
	if !cfg.AMQPEnabled() {
		logger.Info("AMQP disabled - no expense events will be published")
		return nil, nil
	}

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPNotifyQueue, cfg.AMQPEventsQueue)
	if err != nil {
		if cfg.NotifyTransport == config.TransportAMQP {
			return nil, fmt.Errorf("connect to AMQP: %w", err)
		}
		logger.Warn("Failed to initialize AMQP client, continuing without events", "error", err)
		return nil, nil
	}
	logger.Info("AMQP client initialized", "exchange", cfg.AMQPExchange)
	return client, nil
}

// EventPublisher returns client as a publisher, or a nil interface when
// AMQP is off.
func EventPublisher(client *amqp.Client) services.EventPublisher {
	if client == nil {
		return nil
	}
	return client
}

// NewDispatcher builds the notification transport named by NOTIFY_TRANSPORT.
func NewDispatcher(ctx context.Context, logger *log.Logger, cfg *config.Config, client *amqp.Client) (notify.Dispatcher, error) {
	switch cfg.NotifyTransport {
	case config.TransportGmail:
		creds := mail.NewCredentialProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
		return mail.NewGmailSender(ctx, creds, cfg.GmailSenderEmail)
	case config.TransportAMQP:
		if client == nil {
			return nil, fmt.Errorf("notify transport %q needs a connected AMQP client", cfg.NotifyTransport)
		}
		return client, nil
	case config.TransportLog:
		return notify.NewLogDispatcher(logger.WithComponent(log.ComponentMail).Logger), nil
	default:
		return nil, fmt.Errorf("unknown notify transport %q", cfg.NotifyTransport)
	}
}

// NewMonitor wires the due monitor to the repository, the email composer
// and dispatcher, and the dedupe policy selected by NOTIFY_DEDUPE.
func NewMonitor(logger *log.Logger, cfg *config.Config, repo *storage.SQLiteRepository, dispatcher notify.Dispatcher) (*monitor.Monitor, error) {
	composer, err := notify.NewComposer(cfg.AppBaseURL, cfg.CurrencySymbol)
	if err != nil {
		return nil, fmt.Errorf("load email templates: %w", err)
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	var policy monitor.Policy = monitor.AlwaysNotify{}
	if cfg.NotifyDedupe {
		policy = monitor.NewDailyMarkerPolicy(repo, cfg.OverdueReminderDays)
	}

	return monitor.New(repo, composer, dispatcher,
		monitor.WithPolicy(policy),
		monitor.WithLocation(loc),
		monitor.WithScanTimeout(cfg.ScanTimeout),
		monitor.WithLogger(logger),
	), nil
}

// SignalContext returns a context cancelled on SIGINT or SIGTERM.
func SignalContext(logger *log.Logger) (context.Context, context.CancelFunc) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-ctx.Done()
		logger.Info("Shutdown signal received")
	}()
	return ctx, stop
}
