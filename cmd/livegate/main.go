package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/mattjoyce/livegate/internal/config"
	"github.com/mattjoyce/livegate/internal/dedup"
	"github.com/mattjoyce/livegate/internal/log"
	"github.com/mattjoyce/livegate/internal/metrics"
	"github.com/mattjoyce/livegate/internal/notify"
	"github.com/mattjoyce/livegate/internal/pipeline"
	"github.com/mattjoyce/livegate/internal/scheduler"
	"github.com/mattjoyce/livegate/internal/secrets"
	"github.com/mattjoyce/livegate/internal/server"
	"github.com/mattjoyce/livegate/internal/storage"
	"github.com/mattjoyce/livegate/internal/websub"
	"github.com/mattjoyce/livegate/internal/youtube"
)

const version = "0.1.0"

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	cmd := os.Args[1]
	args := os.Args[2:]

	switch cmd {
	case "start":
		os.Exit(runStart(args))
	case "renew":
		os.Exit(runRenew(args))
	case "config":
		os.Exit(runConfig(args))
	case "version":
		fmt.Printf("livegate version %s\n", version)
		os.Exit(0)
	case "help", "--help", "-h":
		printUsage()
		os.Exit(0)
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", cmd)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Print(`livegate - WebSub live-stream notification gateway

Usage:
  livegate <command> [flags]

Commands:
  start         Start the gateway service in foreground
  renew         Run a single subscription renewal and exit
  config lock   Authorize current config (write integrity checksum)
  config check  Verify config syntax and integrity
  version       Show version information
  help          Show this help message
`)
}

func runStart(args []string) int {
	fs := flag.NewFlagSet("start", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.Get()
	logger.Info("starting livegate", "version", version, "config", *configPath)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		return 1
	}
	defer db.Close()

	params := secrets.NewSQLStore(db)
	if err := secrets.Seed(ctx, params, map[string]string{
		secrets.ParamChannelID:   cfg.YouTube.ChannelID,
		secrets.ParamCallbackURL: cfg.WebSub.CallbackURL,
		secrets.ParamAPIKey:      cfg.YouTube.APIKey,
		secrets.ParamNotifyURL:   cfg.Notify.WebhookURL,
		secrets.ParamNotifyToken: cfg.Notify.Token,
	}); err != nil {
		logger.Error("failed to seed parameters", "error", err)
		return 1
	}

	registry := prometheus.NewRegistry()
	sink := metrics.NewPrometheusSink(registry)

	orchestrator := pipeline.New(
		params,
		youtube.NewClient(params),
		dedup.NewStore(db),
		notify.NewWebhookSender(params),
		sink,
		logger,
	)

	renewer := websub.NewRenewer(websub.RenewerConfig{
		HubURL:       cfg.WebSub.HubURL,
		SecretLength: cfg.WebSub.SecretLength,
	}, params, logger).WithMetrics(sink)

	sched, err := scheduler.New(cfg.WebSub.RenewSchedule, renewer, sink, logger)
	if err != nil {
		logger.Error("failed to create scheduler", "error", err)
		return 1
	}

	maxBody, err := config.ParseMaxBodySize(cfg.Service.MaxBodySize)
	if err != nil {
		logger.Error("invalid max body size", "error", err)
		return 1
	}
	srv := server.New(server.Config{
		Listen:      cfg.Service.Listen,
		MaxBodySize: maxBody,
	}, orchestrator, websub.NewChallengeValidator(params), registry, logger)

	// Register with the hub immediately when no secret exists yet; the
	// verifier cannot accept deliveries before the first rotation.
	if _, err := params.Get(ctx, secrets.ParamHMACSecret); err != nil {
		logger.Info("no HMAC secret found, running initial subscription")
		sched.RunNow()
	}

	sched.Start()
	defer sched.Stop()

	if err := srv.Start(ctx); err != nil && ctx.Err() == nil {
		logger.Error("server failed", "error", err)
		return 1
	}

	logger.Info("livegate stopped")
	return 0
}

func runRenew(args []string) int {
	fs := flag.NewFlagSet("renew", flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to config file")
	_ = fs.Parse(args)

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}

	log.Setup(cfg.Service.LogLevel, cfg.Service.LogFormat)
	logger := log.Get()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := storage.OpenSQLite(ctx, cfg.State.Path)
	if err != nil {
		logger.Error("failed to open state database", "error", err)
		return 1
	}
	defer db.Close()

	params := secrets.NewSQLStore(db)
	if err := secrets.Seed(ctx, params, map[string]string{
		secrets.ParamChannelID:   cfg.YouTube.ChannelID,
		secrets.ParamCallbackURL: cfg.WebSub.CallbackURL,
	}); err != nil {
		logger.Error("failed to seed parameters", "error", err)
		return 1
	}

	renewer := websub.NewRenewer(websub.RenewerConfig{
		HubURL:       cfg.WebSub.HubURL,
		SecretLength: cfg.WebSub.SecretLength,
	}, params, logger)

	result, err := renewer.Run(ctx)
	if err != nil {
		logger.Error("subscription renewal failed", "error", err)
		return 1
	}
	logger.Info("subscription renewed", "attempts", result.Attempts)
	return 0
}

func runConfig(args []string) int {
	if len(args) < 1 {
		fmt.Fprintln(os.Stderr, "Usage: livegate config <lock|check> [flags]")
		return 1
	}
	action := args[0]

	fs := flag.NewFlagSet("config "+action, flag.ExitOnError)
	configPath := fs.String("config", "./config.yaml", "path to config file")
	_ = fs.Parse(args[1:])

	switch action {
	case "lock":
		hash, err := config.WriteSidecarHash(*configPath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Locked %s (%s)\n", *configPath, hash[:16])
		return 0
	case "check":
		if _, err := config.Load(*configPath); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			return 1
		}
		fmt.Printf("Config OK: %s\n", *configPath)
		return 0
	default:
		fmt.Fprintf(os.Stderr, "Unknown config action: %s\n", action)
		return 1
	}
}
