// Package main provides the SDK worker process entrypoint. The supervisor
// spawns it, passes the channel in CGRELAY_CHANNEL and replaces it on reset.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/wagiedev/cgsdk-relay/internal/sdk"
	"github.com/wagiedev/cgsdk-relay/internal/worker"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// stderr is forwarded into the supervisor's log.
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	if err := worker.Run(ctx, worker.Config{Logger: log, SDK: sdk.NewSimulator(log)}); err != nil {
		log.Error("worker failed", "error", err)
		stop()
		os.Exit(1)
	}
}
