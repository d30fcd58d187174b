package config

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Defaults applied by WithDefaults.
const (
	DefaultConnectTimeout  = 10 * time.Second
	DefaultCallTimeout     = 30 * time.Second
	DefaultRestartDelay    = 100 * time.Millisecond
	DefaultMaxRestartDelay = 5 * time.Second
	DefaultShutdownGrace   = 2 * time.Second
)

// Options configures a relay supervisor.
type Options struct {
	// Logger is the slog logger for debug output.
	// If nil, logging is disabled (silent operation).
	Logger *slog.Logger

	// WorkerPath is the explicit path to the worker binary.
	// If empty, the binary is searched next to the host executable and in PATH.
	WorkerPath string

	// WorkerEnv provides additional environment variables for the worker process.
	WorkerEnv map[string]string

	// ChannelName is the shared channel name, or an absolute socket path.
	// If empty, the default name is used.
	ChannelName string

	// ConnectTimeout bounds the wait for a freshly spawned worker to connect
	// and announce itself.
	ConnectTimeout time.Duration

	// CallTimeout bounds the wait for a worker's response. A worker that
	// misses it is treated as unresponsive and replaced.
	CallTimeout time.Duration

	// RestartDelay is the first backoff after a failed spawn. It doubles on
	// each consecutive failure up to MaxRestartDelay.
	RestartDelay    time.Duration
	MaxRestartDelay time.Duration

	// ShutdownGrace bounds how long Close waits for the cycle loop to exit.
	ShutdownGrace time.Duration

	// Registerer receives the supervisor's metrics. If nil, metrics are
	// collected but not registered.
	Registerer prometheus.Registerer

	// OnStateChange is called after every state transition.
	// It runs on the supervisor's goroutine and must not block.
	OnStateChange func(from, to State)

	// WorkerFactory creates the worker for each cycle.
	// If nil, a process-backed worker is used.
	WorkerFactory WorkerFactory `json:"-"`
}

// WithDefaults returns a copy of o with zero values replaced by defaults.
func (o *Options) WithDefaults() *Options {
	out := &Options{}
	if o != nil {
		*out = *o
	}

	if out.Logger == nil {
		out.Logger = slog.New(slog.DiscardHandler)
	}

	if out.ConnectTimeout <= 0 {
		out.ConnectTimeout = DefaultConnectTimeout
	}

	if out.CallTimeout <= 0 {
		out.CallTimeout = DefaultCallTimeout
	}

	if out.RestartDelay <= 0 {
		out.RestartDelay = DefaultRestartDelay
	}

	if out.MaxRestartDelay < out.RestartDelay {
		out.MaxRestartDelay = max(DefaultMaxRestartDelay, out.RestartDelay)
	}

	if out.ShutdownGrace <= 0 {
		out.ShutdownGrace = DefaultShutdownGrace
	}

	return out
}

// EnvList renders WorkerEnv as "KEY=value" entries.
func (o *Options) EnvList() []string {
	env := make([]string, 0, len(o.WorkerEnv))
	for k, v := range o.WorkerEnv {
		env = append(env, k+"="+v)
	}

	return env
}
