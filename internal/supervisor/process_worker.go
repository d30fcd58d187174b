package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wagiedev/cgsdk-relay/internal/channel"
	"github.com/wagiedev/cgsdk-relay/internal/config"
	"github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
	"github.com/wagiedev/cgsdk-relay/internal/subprocess"
)

// exitDrainGrace bounds how long responses are still read after the worker
// process has exited.
const exitDrainGrace = 500 * time.Millisecond

// ProcessWorker runs the worker binary as a child process and talks to it
// over one channel session.
type ProcessWorker struct {
	log  *slog.Logger
	opts *config.Options

	listener *channel.Listener
	session  *channel.Session
	process  *subprocess.Process

	responses chan protocol.Response
	stop      chan struct{}
	done      chan struct{}
	doneOnce  sync.Once
	eg        errgroup.Group

	mu      sync.Mutex
	readErr error

	killOnce sync.Once
	killErr  error
}

var _ config.Worker = (*ProcessWorker)(nil)

// NewProcessWorker creates an unstarted worker configured by opts.
func NewProcessWorker(log *slog.Logger, opts *config.Options) *ProcessWorker {
	return &ProcessWorker{
		log:       log.With("component", "process_worker"),
		opts:      opts,
		responses: make(chan protocol.Response),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start creates the channel endpoint, spawns the worker and waits for it to
// connect and say hello. The endpoint is closed as soon as the worker has
// connected.
func (w *ProcessWorker) Start(ctx context.Context) error {
	discoverer := &subprocess.Discoverer{WorkerPath: w.opts.WorkerPath, Logger: w.log}

	path, err := discoverer.Discover()
	if err != nil {
		return err
	}

	listener, err := channel.Listen(ctx, channel.Path(w.opts.ChannelName))
	if err != nil {
		return err
	}

	w.listener = listener

	env := append(w.opts.EnvList(), channel.EnvChannel+"="+listener.Path())
	w.process = subprocess.NewProcess(w.log, path, env)

	if err := w.process.Start(ctx); err != nil {
		return err
	}

	// A worker that dies before connecting ends the wait early.
	connectCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	go func() {
		select {
		case <-w.process.Done():
			cancel(w.exitError())
		case <-connectCtx.Done():
		}
	}()

	session, err := listener.Accept(connectCtx)
	if err != nil {
		if cause := context.Cause(connectCtx); cause != nil && ctx.Err() == nil {
			return cause
		}

		return err
	}

	w.session = session

	if err := listener.Close(); err != nil {
		w.log.Debug("Failed to close channel endpoint", "error", err)
	}

	if err := w.readHello(connectCtx); err != nil {
		return err
	}

	w.eg.Go(w.readResponses)
	w.eg.Go(w.watchProcess)

	return nil
}

// readHello consumes the worker's first message.
func (w *ProcessWorker) readHello(ctx context.Context) error {
	stop := context.AfterFunc(ctx, func() {
		_ = w.session.Close()
	})
	defer stop()

	hello, err := w.session.ReadResponse()
	if err != nil {
		if cause := context.Cause(ctx); cause != nil {
			if stderrors.Is(cause, context.DeadlineExceeded) {
				return errors.ErrConnectTimeout
			}

			return cause
		}

		return &errors.WorkerConnectionError{Err: fmt.Errorf("read hello: %w", err)}
	}

	if hello.Type != protocol.TypeHello {
		return &errors.WorkerConnectionError{
			Err: fmt.Errorf("%w: expected hello, got %q", errors.ErrUnexpectedResponse, hello.Type),
		}
	}

	w.log.Info("Worker connected", "pid", hello.PID, "handshakes", hello.Value)

	return nil
}

// readResponses forwards responses until the session breaks.
func (w *ProcessWorker) readResponses() error {
	defer w.markDone()

	for {
		resp, err := w.session.ReadResponse()
		if err != nil {
			w.mu.Lock()
			w.readErr = err
			w.mu.Unlock()

			return nil
		}

		select {
		case w.responses <- resp:
		case <-w.stop:
			return nil
		}
	}
}

// watchProcess unblocks the reader when the process exits on its own. The
// reader gets exitDrainGrace to hand over what the worker wrote before
// exiting; it marks the worker done itself when it reaches EOF.
func (w *ProcessWorker) watchProcess() error {
	select {
	case <-w.process.Done():
	case <-w.stop:
		return nil
	}

	timer := time.NewTimer(exitDrainGrace)
	defer timer.Stop()

	select {
	case <-w.done:
	case <-w.stop:
	case <-timer.C:
		_ = w.session.Close()
		w.markDone()
	}

	return w.process.Err()
}

func (w *ProcessWorker) markDone() {
	w.doneOnce.Do(func() { close(w.done) })
}

// Send writes req to the worker. The write is bounded by ctx.
func (w *ProcessWorker) Send(ctx context.Context, req protocol.Request) error {
	if w.session == nil {
		return errors.ErrWorkerNotConnected
	}

	return w.session.SendRequest(ctx, req)
}

// Receive waits for the next response. A response the worker wrote before
// going away is still delivered.
func (w *ProcessWorker) Receive(ctx context.Context) (protocol.Response, error) {
	select {
	case resp := <-w.responses:
		return resp, nil
	case <-w.done:
		select {
		case resp := <-w.responses:
			return resp, nil
		default:
		}

		return protocol.Response{}, w.failure()
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

// Done is closed when the session breaks or the process exits.
func (w *ProcessWorker) Done() <-chan struct{} {
	return w.done
}

// failure describes why the worker went away.
func (w *ProcessWorker) failure() error {
	if err := w.exitError(); err != nil {
		return err
	}

	w.mu.Lock()
	readErr := w.readErr
	w.mu.Unlock()

	switch {
	case readErr == nil:
		return &errors.TransportError{Op: "receive", Err: errors.ErrWorkerNotConnected}
	case stderrors.Is(readErr, io.EOF):
		return &errors.TransportError{Op: "receive", Err: io.ErrUnexpectedEOF}
	}

	if _, ok := stderrors.AsType[errors.RelayError](readErr); ok {
		return readErr
	}

	return &errors.TransportError{Op: "receive", Err: readErr}
}

func (w *ProcessWorker) exitError() error {
	if w.process == nil {
		return nil
	}

	select {
	case <-w.process.Done():
	default:
		return nil
	}

	if err := w.process.Err(); err != nil {
		return err
	}

	return &errors.ProcessError{ExitCode: 0, Err: errors.ErrWorkerNotConnected}
}

// Kill terminates the process and releases the session and endpoint.
func (w *ProcessWorker) Kill() error {
	w.killOnce.Do(func() {
		close(w.stop)

		if w.session != nil {
			_ = w.session.Close()
		}

		if w.listener != nil {
			_ = w.listener.Close()
		}

		if w.process != nil {
			w.killErr = w.process.Kill()
		}

		if err := w.eg.Wait(); err != nil {
			w.log.Debug("Worker exited with error", "error", err)
		}

		w.markDone()
	})

	return w.killErr
}
