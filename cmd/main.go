package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/desertthunder/toptracks/internal/shared"
)

func main() {
	logger := shared.NewLogger(nil)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{Logger: logger})

	if err := newApp(runner).Run(ctx, os.Args); err != nil {
		stop()
		switch {
		case errors.Is(err, shared.ErrMissingCredentials):
			logger.Error("set client_id and client_secret in config.toml or SPOTIFY_CLIENT_ID and SPOTIFY_SECRET")
		case errors.Is(err, context.Canceled):
			logger.Warn("interrupted")
		}
		logger.Fatal("toptracks failed", "error", err)
	}
}
