package app

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"

	cgrelay "github.com/wagiedev/cgsdk-relay"
	"github.com/wagiedev/cgsdk-relay/internal/mcp"
)

// Version is set at build time with -ldflags "-X ...app.Version=...".
var Version = "dev"

const binaryName = "cgrelay"

type Runner struct {
	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
	Logger *slog.Logger

	// Options are appended to the options derived from config.
	Options []cgrelay.Option
}

func Execute(ctx context.Context, args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	r := Runner{Stdin: stdin, Stdout: stdout, Stderr: stderr}

	return r.Execute(ctx, args)
}

func (r Runner) Execute(ctx context.Context, args []string) int {
	if r.Stdin == nil {
		r.Stdin = os.Stdin
	}

	parsed, err := Parse(args)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n\n", err)
		fmt.Fprint(r.Stderr, HelpText(binaryName))

		return 2
	}

	if parsed.ShowHelp {
		fmt.Fprint(r.Stdout, HelpText(binaryName))

		return 0
	}

	if parsed.Command == CommandVersion {
		fmt.Fprintln(r.Stdout, Version)

		return 0
	}

	cfg, err := LoadConfig(parsed.ConfigPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)

		return 1
	}

	cfg.Apply(parsed)

	logger := r.Logger
	if logger == nil {
		logger, err = NewLogger(r.Stderr, cfg.Log.Level, cfg.Log.Format)
		if err != nil {
			fmt.Fprintf(r.Stderr, "error: %v\n", err)

			return 2
		}
	}

	logger.Info("command start", "command", parsed.Command, "version", Version)

	svc := newServices(logger, cfg)
	if err := svc.start(ctx, cfg); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)

		return 1
	}

	defer func() {
		if err := svc.stop(); err != nil {
			logger.Warn("service shutdown failed", "error", err)
		}
	}()

	client := cgrelay.NewClient()
	if err := client.Start(ctx, r.clientOptions(logger, cfg, svc)...); err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("start relay failed", "error", err)

		return 1
	}

	defer func() {
		if err := client.Close(); err != nil {
			logger.Warn("close relay failed", "error", err)
		}
	}()

	switch parsed.Command {
	case CommandREPL:
		err = runREPL(ctx, client, r.Stdin, r.Stdout, logger)
	case CommandMCP:
		err = r.serveMCP(ctx, client)
	default:
		fmt.Fprintf(r.Stderr, "error: unsupported command %q\n", parsed.Command)

		return 2
	}

	if err != nil && ctx.Err() == nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		logger.Error("command failed", "command", parsed.Command, "error", err)

		return 1
	}

	return 0
}

func (r Runner) clientOptions(logger *slog.Logger, cfg Config, svc *services) []cgrelay.Option {
	opts := []cgrelay.Option{
		cgrelay.WithLogger(logger),
		cgrelay.WithWorkerPath(cfg.Worker.Path),
		cgrelay.WithWorkerEnv(cfg.Worker.Env),
		cgrelay.WithChannelName(cfg.Worker.Channel),
		cgrelay.WithConnectTimeout(cfg.Timeouts.Connect),
		cgrelay.WithCallTimeout(cfg.Timeouts.Call),
		cgrelay.WithRestartDelay(cfg.Restart.Delay, cfg.Restart.MaxDelay),
		cgrelay.WithRegisterer(svc.registry),
		cgrelay.WithStateHook(svc.onStateChange),
	}

	return append(opts, r.Options...)
}

// serveMCP serves relay tools over the runner's stdin and stdout.
func (r Runner) serveMCP(ctx context.Context, client cgrelay.Client) error {
	server := mcp.NewRelayServer(client, Version)

	transport := &mcpsdk.IOTransport{
		Reader: io.NopCloser(r.Stdin),
		Writer: nopWriteCloser{r.Stdout},
	}

	return server.Serve(ctx, transport)
}

type nopWriteCloser struct {
	io.Writer
}

func (nopWriteCloser) Close() error { return nil }
