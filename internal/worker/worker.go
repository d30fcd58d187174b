package worker

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/wagiedev/cgsdk-relay/internal/channel"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
	"github.com/wagiedev/cgsdk-relay/internal/sdk"
)

// defaultDialTimeout bounds how long a worker waits for the supervisor's endpoint.
const defaultDialTimeout = 10 * time.Second

// Config configures a worker run.
type Config struct {
	// Logger receives worker diagnostics. The worker's stderr is forwarded
	// to the supervisor's log.
	Logger *slog.Logger

	// ChannelPath is the socket to connect to. Defaults to channel.FromEnv().
	ChannelPath string

	// DialTimeout bounds the connect wait. Defaults to 10s.
	DialTimeout time.Duration

	// SDK is the library the worker drives.
	SDK sdk.SDK
}

// Run connects to the supervisor, performs the SDK's one-time handshake and
// serves requests until the supervisor closes the channel (returns nil) or
// ctx ends.
func Run(ctx context.Context, cfg Config) error {
	log := cfg.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	log = log.With("component", "worker")

	if cfg.SDK == nil {
		return fmt.Errorf("worker: no SDK configured")
	}

	path := cfg.ChannelPath
	if path == "" {
		path = channel.FromEnv()
	}

	timeout := cfg.DialTimeout
	if timeout <= 0 {
		timeout = defaultDialTimeout
	}

	dialCtx, cancel := context.WithTimeout(ctx, timeout)
	session, err := channel.Dial(dialCtx, path)

	cancel()

	if err != nil {
		return fmt.Errorf("connect to supervisor: %w", err)
	}

	defer session.Close()

	log.Info("Connected to supervisor", "channel", path)

	// The handshake is the non-repeatable step: it runs exactly once per
	// worker process, before the first request.
	cfg.SDK.PerformProtocolHandshake()

	if err := session.WriteResponse(protocol.Hello(os.Getpid(), 1)); err != nil {
		return fmt.Errorf("send hello: %w", err)
	}

	stop := context.AfterFunc(ctx, func() {
		_ = session.Close()
	})
	defer stop()

	return serve(ctx, log, session, NewDispatcher(cfg.SDK))
}

// serve runs the request loop.
func serve(ctx context.Context, log *slog.Logger, session *channel.Session, d *Dispatcher) error {
	for {
		req, err := session.ReadRequest()
		if err != nil {
			if stderrors.Is(err, io.EOF) {
				log.Info("Supervisor closed the channel")

				return nil
			}

			if ctx.Err() != nil {
				return ctx.Err()
			}

			return fmt.Errorf("read request: %w", err)
		}

		log.Debug("Received request", "id", req.ID, "command", req.Command())

		resp := d.Dispatch(req)

		if err := session.WriteResponse(resp); err != nil {
			return fmt.Errorf("write response: %w", err)
		}

		log.Debug("Sent response", "id", resp.ID, "kind", resp.Kind, "value", resp.Value)
	}
}
