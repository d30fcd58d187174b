package cgrelay

import (
	"log/slog"
	"maps"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Option configures Options using the functional options pattern.
type Option func(*Options)

// applyOptions applies functional options to an Options struct.
func applyOptions(opts []Option) *Options {
	options := &Options{}
	for _, opt := range opts {
		opt(options)
	}

	return options
}

// WithLogger sets the logger for debug output.
// If not set, logging is disabled (silent operation).
func WithLogger(logger *slog.Logger) Option {
	return func(o *Options) {
		o.Logger = logger
	}
}

// WithWorkerPath sets the explicit path to the worker binary.
// If not set, the binary is searched next to the host executable and in PATH.
func WithWorkerPath(path string) Option {
	return func(o *Options) {
		o.WorkerPath = path
	}
}

// WithWorkerEnv adds environment variables for the worker process.
// Repeated calls merge; later values win.
func WithWorkerEnv(env map[string]string) Option {
	return func(o *Options) {
		if o.WorkerEnv == nil {
			o.WorkerEnv = make(map[string]string, len(env))
		}

		maps.Copy(o.WorkerEnv, env)
	}
}

// WithChannelName sets the shared channel name, or an absolute socket path.
func WithChannelName(name string) Option {
	return func(o *Options) {
		o.ChannelName = name
	}
}

// WithConnectTimeout bounds the wait for a fresh worker to connect.
func WithConnectTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.ConnectTimeout = d
	}
}

// WithCallTimeout bounds the wait for a response. A worker that misses it is
// replaced.
func WithCallTimeout(d time.Duration) Option {
	return func(o *Options) {
		o.CallTimeout = d
	}
}

// WithRestartDelay sets the backoff after a failed worker start. It doubles on
// each consecutive failure up to maxDelay.
func WithRestartDelay(initial, maxDelay time.Duration) Option {
	return func(o *Options) {
		o.RestartDelay = initial
		o.MaxRestartDelay = maxDelay
	}
}

// WithRegisterer registers the relay's Prometheus metrics on reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(o *Options) {
		o.Registerer = reg
	}
}

// WithStateHook sets a callback for every state transition.
// The callback runs on the supervisor goroutine and must not block.
func WithStateHook(fn func(from, to State)) Option {
	return func(o *Options) {
		o.OnStateChange = fn
	}
}

// WithWorkerFactory replaces the process-backed worker, for example with an
// in-process fake in tests.
func WithWorkerFactory(factory WorkerFactory) Option {
	return func(o *Options) {
		o.WorkerFactory = factory
	}
}
