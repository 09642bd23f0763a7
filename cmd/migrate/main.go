package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"
	"tutor-realtime/infrastructure/postgres"

	"github.com/Netflix/go-env"
	"github.com/joho/godotenv"
	"github.com/mama165/sdk-go/logs"
)

const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

type config struct {
	DatabaseURL string        `env:"DATABASE_URL,required=true"`
	LogLevel    string        `env:"LOG_LEVEL,default=INFO"`
	Timeout     time.Duration `env:"MIGRATE_TIMEOUT,default=30s"`
}

// migrate installs the NOTIFY triggers the notification bridge listens to.
// Running it twice is harmless.
func main() {
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
	}
	os.Exit(code)
}

func run() (int, error) {
	_ = godotenv.Load()
	var cfg config
	if _, err := env.UnmarshalFromEnviron(&cfg); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}
	logger := logs.GetLoggerFromString(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	db, err := postgres.Open(ctx, cfg.DatabaseURL, 1)
	if err != nil {
		return exitRuntime, err
	}
	defer func() { _ = db.Close() }()

	if err := postgres.InstallTriggers(ctx, logger, db); err != nil {
		return exitRuntime, err
	}
	logger.Info("Realtime triggers installed", "statements", len(postgres.TriggerStatements))
	return exitOK, nil
}
