package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/nfrund/tavern/internal/app"
	"github.com/nfrund/tavern/internal/config"
	"github.com/nfrund/tavern/internal/logging"
	"github.com/nfrund/tavern/internal/server"
)

func main() {
	cfg, err := config.New()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	logging.New()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	deps, err := app.NewDependencies(ctx, cfg)
	if err != nil {
		slog.Error("Failed to initialize dependencies", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := deps.Close(context.Background()); err != nil {
			slog.Error("Failed to release dependencies", "error", err)
		}
	}()

	s := server.New(deps.Registry(cfg), app.NewModules())
	if err := s.InitModules(ctx); err != nil {
		slog.Error("Failed to initialize modules", "error", err)
		os.Exit(1)
	}

	if err := s.Start(ctx); err != nil {
		slog.Error("Server exited with error", "error", err)
		os.Exit(1)
	}
}
