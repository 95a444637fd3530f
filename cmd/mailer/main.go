// Package main содержит точку входа воркера доставки писем.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/app/mailer"
	"github.com/MOPROGRAM/KHIDMAP-sub001/internal/config"
)

func main() {
	cfg := config.MustLoad()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))

	logger.Info("starting mailer", slog.String("env", cfg.Env), slog.String("broker", cfg.Broker))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	app, err := mailer.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize mailer app", slog.Any("err", err))
		os.Exit(1)
	}

	if err := app.Run(ctx); err != nil {
		logger.Error("mailer app stopped with error", slog.Any("err", err))
		os.Exit(1)
	}

	logger.Info("mailer app stopped gracefully")
}
