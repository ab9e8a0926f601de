package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/log"
	"expensetracker/internal/mail"
	"expensetracker/internal/notify"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel).WithComponent(log.ComponentWorker)

	logger.Info("Starting mail-worker")
	if err := run(logger, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("Mail worker stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Mail worker shutdown complete")
}

func run(logger *log.Logger, cfg *config.Config) error {
	if !cfg.AMQPEnabled() {
		return errors.New("AMQP_URL is required for the mail worker")
	}
	if err := cfg.ValidateGmail(); err != nil {
		return err
	}

	ctx, stop := cli.SignalContext(logger)
	defer stop()

	client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPNotifyQueue, cfg.AMQPEventsQueue)
	if err != nil {
		return fmt.Errorf("connect to AMQP: %w", err)
	}
	defer client.Close()

	creds := mail.NewCredentialProvider(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRefreshToken)
	sender, err := mail.NewGmailSender(ctx, creds, cfg.GmailSenderEmail)
	if err != nil {
		return err
	}

	return client.ConsumeNotifications(ctx, deliver(sender))
}

// deliver sends one queued notification. Credential failures cannot heal by
// retrying, so those messages are dropped instead of requeued.
func deliver(d notify.Dispatcher) func(context.Context, notify.Notification) error {
	return func(ctx context.Context, n notify.Notification) error {
		err := d.Send(ctx, n)
		if errors.Is(err, mail.ErrCredentials) {
			return fmt.Errorf("%w: %w", amqp.ErrDiscard, err)
		}
		return err
	}
}
