package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	_ "time/tzdata"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	"expensetracker/internal/core"
	"expensetracker/internal/log"
	"expensetracker/internal/monitor"
)

func main() {
	date := flag.String("date", "", "scan as of this day (YYYY-MM-DD) instead of today")
	flag.Parse()

	cli.LoadEnvFile()
	cfg := cli.LoadAndValidateConfig()
	logger := cli.SetupLogger(cfg.LogLevel)

	report, err := run(logger, cfg, *date)
	if err != nil {
		logger.Error("Due check failed", "error", err)
		os.Exit(1)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	_ = enc.Encode(report)
	if report.Failed > 0 {
		os.Exit(2)
	}
}

func run(logger *log.Logger, cfg *config.Config, date string) (monitor.ScanReport, error) {
	ctx, stop := cli.SignalContext(logger)
	defer stop()

	repo, err := cli.OpenStore(ctx, cfg)
	if err != nil {
		return monitor.ScanReport{}, err
	}
	defer repo.Close()

	amqpClient, err := cli.InitAMQP(logger, cfg)
	if err != nil {
		return monitor.ScanReport{}, err
	}
	if amqpClient != nil {
		defer amqpClient.Close()
	}

	dispatcher, err := cli.NewDispatcher(ctx, logger, cfg, amqpClient)
	if err != nil {
		return monitor.ScanReport{}, err
	}
	mon, err := cli.NewMonitor(logger, cfg, repo, dispatcher)
	if err != nil {
		return monitor.ScanReport{}, err
	}

	if date == "" {
		return mon.ForceCheck(ctx)
	}
	on, err := core.ParseDate(date)
	if err != nil {
		return monitor.ScanReport{}, fmt.Errorf("-date: %w", err)
	}
	return mon.Scan(ctx, on)
}
