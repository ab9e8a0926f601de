package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	_ "time/tzdata"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	apphttp "expensetracker/internal/http"
	"expensetracker/internal/log"
	"expensetracker/internal/scheduler"
	"expensetracker/internal/services"

	"golang.org/x/sync/errgroup"
)

func main() {
	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	if err := run(logger, cfg); err != nil {
		logger.Error("Server stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("Server stopped gracefully")
}

func run(logger *log.Logger, cfg *config.Config) error {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo, err := cli.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		return err
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}
	events := cli.EventPublisher(amqpClient)

	dispatcher, err := cli.NewDispatcher(ctx, logger, cfg, amqpClient)
	if err != nil {
		return err
	}
	mon, err := cli.NewMonitor(logger, cfg, repo, dispatcher)
	if err != nil {
		return err
	}

	deps := apphttp.Deps{
		Expenses:   services.NewExpenseService(repo, events),
		Recurring:  services.NewRecurringService(repo),
		Processor:  services.NewRecurringProcessor(repo, events),
		Users:      services.NewUserService(repo),
		Monitor:    mon,
		DB:         repo,
		Logger:     logger,
		UserHeader: cfg.UserHeader,
	}

	var sched *scheduler.Scheduler
	if cfg.SchedulerEnabled {
		loc, err := cfg.Location()
		if err != nil {
			return err
		}
		sched, err = scheduler.New(mon, loc, logger)
		if err != nil {
			return err
		}
		deps.Scheduler = sched
	} else {
		logger.Info("Scheduler disabled - due scans run only on demand")
	}

	srv := apphttp.NewServer(":"+cfg.Port, deps)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting expensetracker server",
			"port", cfg.Port,
			"notify_transport", cfg.NotifyTransport,
			"scheduler", cfg.SchedulerEnabled,
			"timezone", cfg.SchedulerTimezone)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	if sched != nil {
		sched.Start()
	}
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down", "timeout", cfg.ShutdownTimeout)

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		var errs []error
		if sched != nil {
			errs = append(errs, sched.Stop(shutdownCtx))
		}
		errs = append(errs, srv.Shutdown(shutdownCtx))
		return errors.Join(errs...)
	})

	return g.Wait()
}
