package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"cryptonics/config"
	"cryptonics/internal/app"
	"cryptonics/logger"

	"go.uber.org/zap"
)

func main() {
	// viper config
	cfg, err := config.Load(os.Getenv("CRYPTONICS_CONFIG"))
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	cfg.ResolveSecrets(func(name string) string {
		return config.GetParameterStoreValue(name, true)
	})

	// zap logger
	log, err := logger.New(cfg.Log)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// run dashboard
	if err := app.Run(ctx, cfg, log); err != nil {
		log.Fatal("cryptonics failed", zap.Error(err))
	}
}
