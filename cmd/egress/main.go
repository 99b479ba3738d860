package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"gatekeeper/internal/egress"
	"gatekeeper/internal/logging"
	"gatekeeper/internal/version"
)

func main() {
	showVersion := flag.Bool("version", false, "print version information and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.Print(version.Program + "-egress"))
		return
	}

	cfg, err := egress.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	required := cfg.RequiredStatus()
	for _, v := range required {
		if !v.Set {
			args := make([]any, 0, len(required)*2)
			for _, r := range required {
				args = append(args, r.Name, r.Status())
			}
			logger.Error("Missing required environment variables", args...)
			os.Exit(1)
		}
	}

	gateway, err := egress.New(cfg, logger)
	if err != nil {
		logger.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	logger.Info("Starting egress gateway",
		"version", version.GetFullVersion(),
		"client_id_prefix", logging.Truncate(cfg.ClientID, 20),
		"api_key_prefix", logging.Truncate(cfg.APIKey, 8),
		"rate_limit", cfg.RateLimit)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	err = gateway.Run(ctx)
	stop()

	if err != nil {
		logger.Error("Egress gateway exited with error", "error", err)
		os.Exit(1)
	}
}
