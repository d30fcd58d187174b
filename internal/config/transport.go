// Package config provides configuration types for the relay supervisor.
package config

import (
	"context"
	"log/slog"

	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// Worker is one incarnation of the SDK worker: a process bound to one channel
// session. The supervisor creates a fresh Worker for every cycle and never
// reuses one after Kill.
//
// The default implementation spawns the worker binary and accepts its
// connection on the shared channel. Custom workers can be injected via
// Options.WorkerFactory, for testing or for alternative isolation.
type Worker interface {
	// Start spawns the worker and blocks until it has connected and sent its
	// hello, or until ctx ends.
	Start(ctx context.Context) error

	// Send writes one request to the worker.
	Send(ctx context.Context, req protocol.Request) error

	// Receive waits for the next response. It returns an error when ctx ends,
	// the session breaks or the worker exits.
	Receive(ctx context.Context) (protocol.Response, error)

	// Done is closed when the worker has gone away on its own.
	Done() <-chan struct{}

	// Kill terminates the worker and releases its channel.
	// It's safe to call Kill multiple times.
	Kill() error
}

// WorkerFactory creates the Worker for one cycle.
type WorkerFactory func(log *slog.Logger) Worker
