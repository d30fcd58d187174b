package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"vawter.tech/stopper"

	"github.com/wagiedev/cgsdk-relay/internal/config"
	"github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// result is what a cycle hands back to a waiting caller.
type result struct {
	resp protocol.Response
	err  error
}

// pendingCall is one request travelling from Call to the cycle goroutine.
// ctx ends when the caller stops waiting.
type pendingCall struct {
	ctx  context.Context
	req  protocol.Request
	done chan result
}

// Supervisor owns the worker lifecycle and relays calls to the current worker.
type Supervisor struct {
	log     *slog.Logger
	opts    *config.Options
	factory config.WorkerFactory
	metrics *metrics

	// callMu serializes whole exchanges: at most one call is in flight.
	callMu sync.Mutex
	calls  chan *pendingCall

	mu          sync.Mutex
	state       config.State
	cancelCycle context.CancelCauseFunc
	cancelRun   context.CancelCauseFunc
	sctx        *stopper.Context
	closed      chan struct{}
	closeOnce   sync.Once

	// held is a call taken off the queue by a cycle that was already ending.
	// Only the loop goroutine touches it.
	held *pendingCall
}

// New creates a supervisor. No worker is spawned until Start.
func New(opts *config.Options) *Supervisor {
	opts = opts.WithDefaults()

	s := &Supervisor{
		log:     opts.Logger.With("component", "supervisor"),
		opts:    opts,
		factory: opts.WorkerFactory,
		metrics: newMetrics(opts.Registerer),
		calls:   make(chan *pendingCall),
		state:   config.StateStopped,
		closed:  make(chan struct{}),
	}

	if s.factory == nil {
		s.factory = func(log *slog.Logger) config.Worker {
			return NewProcessWorker(log, opts)
		}
	}

	return s
}

// Start launches the cycle loop. It returns once the loop is running; the
// first worker connects in the background and calls wait for it. The loop
// runs until Close or until ctx is cancelled.
func (s *Supervisor) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	select {
	case <-s.closed:
		return errors.ErrClientClosed
	default:
	}

	if s.sctx != nil {
		return errors.ErrClientAlreadyStarted
	}

	s.sctx = stopper.WithContext(ctx)

	runCtx, cancel := context.WithCancelCause(s.sctx)
	s.cancelRun = cancel

	s.sctx.Go(func(*stopper.Context) error {
		s.run(runCtx)

		return nil
	})

	s.log.Info("Supervisor started", "channel", s.opts.ChannelName)

	return nil
}

// run executes cycles until the supervisor closes.
func (s *Supervisor) run(ctx context.Context) {
	delay := s.opts.RestartDelay

	defer func() {
		if s.held != nil {
			s.held.done <- result{err: errors.ErrClientClosed}
			s.held = nil
		}
	}()

	for ctx.Err() == nil {
		reason := s.runCycle(ctx)
		s.metrics.cycles.WithLabelValues(reason).Inc()

		switch reason {
		case reasonClosed:
			return
		case reasonStartFailed:
			s.log.Warn("Retrying worker start", "delay", delay)

			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}

			delay = min(2*delay, s.opts.MaxRestartDelay)
		default:
			delay = s.opts.RestartDelay

			if reason == reasonReset {
				s.setState(config.StateResetting)
			}
		}
	}
}

// runCycle creates a fresh worker, serves calls with it and tears it down.
// It reports why the cycle ended.
func (s *Supervisor) runCycle(parent context.Context) string {
	ctx, cancel := context.WithCancelCause(parent)
	defer cancel(nil)

	defer func() {
		s.mu.Lock()
		s.cancelCycle = nil
		s.mu.Unlock()
	}()

	s.setState(config.StateStarting)

	w := s.factory(s.log)

	defer func() {
		if err := w.Kill(); err != nil {
			s.log.Warn("Failed to kill worker", "error", err)
		}
	}()

	startCtx, startCancel := context.WithTimeout(ctx, s.opts.ConnectTimeout)
	err := w.Start(startCtx)

	startCancel()

	if err != nil {
		if ctx.Err() != nil {
			return s.endReason(ctx)
		}

		s.log.Error("Worker failed to start", "error", err)

		if pc := s.held; pc != nil {
			s.held = nil
			pc.done <- result{err: err}
		}

		return reasonStartFailed
	}

	s.metrics.workerUp.Set(1)
	defer s.metrics.workerUp.Set(0)

	// Reset only reaches a cycle whose worker is up; while starting, the
	// worker being spawned is already fresh.
	s.mu.Lock()
	s.cancelCycle = cancel
	s.mu.Unlock()

	s.setState(config.StateReady)

	if pc := s.held; pc != nil {
		s.held = nil

		if reason := s.serve(ctx, w, pc); reason != "" {
			return reason
		}
	}

	for {
		select {
		case <-ctx.Done():
			return s.endReason(ctx)
		case <-w.Done():
			_, err := w.Receive(ctx)
			s.log.Warn("Worker went away", "error", err)

			return reasonWorkerExit
		case pc := <-s.calls:
			if ctx.Err() != nil {
				// Not sent yet: the next worker serves it.
				s.held = pc

				return s.endReason(ctx)
			}

			if reason := s.serve(ctx, w, pc); reason != "" {
				return reason
			}
		}
	}
}

// serve runs one call unless its caller already gave up.
func (s *Supervisor) serve(ctx context.Context, w config.Worker, pc *pendingCall) string {
	if err := pc.ctx.Err(); err != nil {
		pc.done <- result{err: err}

		return ""
	}

	res, reason := s.exchange(ctx, w, pc.req)
	pc.done <- res

	return reason
}

// exchange sends one request and waits for its response. A non-empty reason
// means the cycle must end.
func (s *Supervisor) exchange(ctx context.Context, w config.Worker, req protocol.Request) (result, string) {
	log := s.log.With("id", req.ID, "command", req.Command())
	start := time.Now()

	log.Debug("Relaying request")

	// CallTimeout bounds the whole exchange, send included.
	callCtx, cancel := context.WithTimeout(ctx, s.opts.CallTimeout)
	defer cancel()

	if err := w.Send(callCtx, req); err != nil {
		return s.failExchange(ctx, log, req, "send", err)
	}

	resp, err := w.Receive(callCtx)
	if err != nil {
		return s.failExchange(ctx, log, req, "receive", err)
	}

	if resp.ID != req.ID {
		log.Error("Response does not match request", "response_id", resp.ID)
		s.metrics.calls.WithLabelValues(resultFault).Inc()

		return result{
			err: &errors.TransportError{
				Op:  "receive",
				Err: fmt.Errorf("%w: id %q", errors.ErrUnexpectedResponse, resp.ID),
			},
		}, reasonFault
	}

	s.metrics.callDuration.Observe(time.Since(start).Seconds())

	if resp.IsError() {
		s.metrics.calls.WithLabelValues(resultRejected).Inc()
	} else {
		s.metrics.calls.WithLabelValues(resultOK).Inc()
	}

	log.Debug("Relayed response", "kind", resp.Kind, "value", resp.Value)

	return result{resp: resp}, ""
}

// failExchange classifies a failed send or receive. A cancelled cycle
// abandons the call, a missed deadline marks the worker unresponsive, and
// anything else is a transport fault handed to the caller as is.
func (s *Supervisor) failExchange(
	ctx context.Context, log *slog.Logger, req protocol.Request, op string, err error,
) (result, string) {
	switch {
	case ctx.Err() != nil:
		return s.abandon(ctx, req)
	case stderrors.Is(err, context.DeadlineExceeded):
		log.Error("Worker did not answer in time", "op", op, "timeout", s.opts.CallTimeout)
		s.metrics.calls.WithLabelValues(resultTimeout).Inc()

		return result{err: errors.ErrWorkerUnresponsive}, reasonUnresponsive
	default:
		log.Error("Lost worker during call", "op", op, "error", err)
		s.metrics.calls.WithLabelValues(resultFault).Inc()

		return result{err: err}, reasonFault
	}
}

// abandon answers a caller whose exchange was cut short by a reset or by Close.
func (s *Supervisor) abandon(ctx context.Context, req protocol.Request) (result, string) {
	reason := s.endReason(ctx)

	if reason == reasonReset {
		s.metrics.calls.WithLabelValues(resultResetting).Inc()

		return result{resp: protocol.ResettingResponse(req.ID)}, reason
	}

	s.metrics.calls.WithLabelValues(resultClosed).Inc()

	return result{err: errors.ErrClientClosed}, reason
}

// endReason maps the cause of a cancelled cycle to a reason.
func (s *Supervisor) endReason(ctx context.Context) string {
	if stderrors.Is(context.Cause(ctx), errors.ErrResetRequested) {
		return reasonReset
	}

	return reasonClosed
}

// Call relays req to the current worker and returns its response. Calls made
// while no worker is connected wait for the next one.
//
// A reset during the exchange yields the resetting response with a nil error.
// A call that gets no answer within ConnectTimeout plus CallTimeout returns
// ErrCallTimeout.
func (s *Supervisor) Call(ctx context.Context, req protocol.Request) (protocol.Response, error) {
	s.callMu.Lock()
	defer s.callMu.Unlock()

	s.mu.Lock()
	started := s.sctx != nil
	s.mu.Unlock()

	if !started {
		select {
		case <-s.closed:
			return protocol.Response{}, errors.ErrClientClosed
		default:
			return protocol.Response{}, errors.ErrClientNotStarted
		}
	}

	// A call may wait for one worker start and one exchange.
	waitCtx, cancel := context.WithTimeout(ctx, s.opts.ConnectTimeout+s.opts.CallTimeout)
	defer cancel()

	pc := &pendingCall{ctx: waitCtx, req: req, done: make(chan result, 1)}

	handoff := time.NewTimer(s.opts.CallTimeout)
	defer handoff.Stop()

	select {
	case s.calls <- pc:
	case <-handoff.C:
		return protocol.Response{}, errors.ErrCallTimeout
	case <-s.closed:
		return protocol.Response{}, errors.ErrClientClosed
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}

	select {
	case res := <-pc.done:
		return res.resp, res.err
	case <-waitCtx.Done():
		if err := ctx.Err(); err != nil {
			return protocol.Response{}, err
		}

		return protocol.Response{}, errors.ErrCallTimeout
	}
}

// Reset tears down the current worker and starts a fresh one. It is a no-op
// until a worker is ready (before Start, while starting or backing off), and
// repeated resets within one cycle cause one restart.
func (s *Supervisor) Reset() {
	s.mu.Lock()
	cancel := s.cancelCycle
	s.cancelCycle = nil
	s.mu.Unlock()

	if cancel == nil {
		s.log.Debug("Reset ignored, no active cycle")

		return
	}

	s.log.Info("Resetting worker")
	cancel(errors.ErrResetRequested)
}

// State returns the current lifecycle state.
func (s *Supervisor) State() config.State {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.state
}

func (s *Supervisor) setState(to config.State) {
	s.mu.Lock()
	from := s.state

	if from == to || from == config.StateClosed {
		s.mu.Unlock()

		return
	}

	s.state = to
	s.mu.Unlock()

	s.log.Debug("State changed", "from", from, "to", to)

	if s.opts.OnStateChange != nil {
		s.opts.OnStateChange(from, to)
	}
}

// Close stops the loop, kills the worker and releases the channel.
// It's safe to call Close multiple times.
func (s *Supervisor) Close() error {
	var err error

	s.closeOnce.Do(func() {
		close(s.closed)

		s.mu.Lock()
		sctx := s.sctx
		cancelRun := s.cancelRun
		s.mu.Unlock()

		if sctx != nil {
			cancelRun(errors.ErrClientClosed)
			sctx.Stop(s.opts.ShutdownGrace)
			err = sctx.Wait()
		}

		s.setState(config.StateClosed)
		s.log.Info("Supervisor closed")
	})

	return err
}
