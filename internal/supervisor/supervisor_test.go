package supervisor

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/cgsdk-relay/internal/config"
	"github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
	"github.com/wagiedev/cgsdk-relay/internal/sdk"
	"github.com/wagiedev/cgsdk-relay/internal/worker"
)

type behavior int

const (
	behaviorRespond behavior = iota
	behaviorHang
	behaviorFault
	behaviorMismatch
	behaviorStuckSend
)

// fakeWorker is an in-process worker with its own simulated SDK, so each
// instance behaves like a fresh process.
type fakeWorker struct {
	behavior  behavior
	startErr  error
	startGate chan struct{}

	sim        *sdk.Simulator
	dispatcher *worker.Dispatcher

	received  chan protocol.Request
	responses chan protocol.Response
	done      chan struct{}
	doneOnce  sync.Once

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
	killed      atomic.Bool
}

var _ config.Worker = (*fakeWorker)(nil)

func newFakeWorker(b behavior) *fakeWorker {
	sim := sdk.NewSimulator(nil)

	return &fakeWorker{
		behavior:   b,
		sim:        sim,
		dispatcher: worker.NewDispatcher(sim),
		received:   make(chan protocol.Request, 16),
		responses:  make(chan protocol.Response, 1),
		done:       make(chan struct{}),
	}
}

func (w *fakeWorker) Start(ctx context.Context) error {
	if w.startErr != nil {
		return w.startErr
	}

	if w.startGate != nil {
		select {
		case <-w.startGate:
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	w.sim.PerformProtocolHandshake()

	return ctx.Err()
}

func (w *fakeWorker) Send(ctx context.Context, req protocol.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	if w.behavior == behaviorStuckSend {
		<-ctx.Done()

		return ctx.Err()
	}

	n := w.inFlight.Add(1)
	if n > w.maxInFlight.Load() {
		w.maxInFlight.Store(n)
	}

	w.received <- req

	switch w.behavior {
	case behaviorRespond:
		// Widen the window in which overlapping calls would be visible.
		time.Sleep(time.Millisecond)

		w.responses <- w.dispatcher.Dispatch(req)
	case behaviorMismatch:
		w.responses <- protocol.BoolResponse("not-"+req.ID, true)
	case behaviorFault:
		w.close()
	case behaviorHang:
	}

	return nil
}

func (w *fakeWorker) Receive(ctx context.Context) (protocol.Response, error) {
	defer w.inFlight.Add(-1)

	select {
	case resp := <-w.responses:
		return resp, nil
	case <-w.done:
		return protocol.Response{}, &errors.TransportError{Op: "receive", Err: io.ErrUnexpectedEOF}
	case <-ctx.Done():
		return protocol.Response{}, ctx.Err()
	}
}

func (w *fakeWorker) Done() <-chan struct{} {
	return w.done
}

func (w *fakeWorker) Kill() error {
	w.killed.Store(true)
	w.close()

	return nil
}

func (w *fakeWorker) close() {
	w.doneOnce.Do(func() { close(w.done) })
}

// fleet hands out fake workers and remembers them.
type fleet struct {
	mu      sync.Mutex
	workers []*fakeWorker
	plan    func(n int) *fakeWorker
}

func newFleet(plan func(n int) *fakeWorker) *fleet {
	if plan == nil {
		plan = func(int) *fakeWorker { return newFakeWorker(behaviorRespond) }
	}

	return &fleet{plan: plan}
}

func (f *fleet) factory(*slog.Logger) config.Worker {
	f.mu.Lock()
	defer f.mu.Unlock()

	w := f.plan(len(f.workers))
	f.workers = append(f.workers, w)

	return w
}

func (f *fleet) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()

	return len(f.workers)
}

func (f *fleet) get(i int) *fakeWorker {
	f.mu.Lock()
	defer f.mu.Unlock()

	return f.workers[i]
}

func startSupervisor(t *testing.T, f *fleet, opts *config.Options) *Supervisor {
	t.Helper()

	if opts == nil {
		opts = &config.Options{}
	}

	opts.WorkerFactory = f.factory
	if opts.CallTimeout == 0 {
		opts.CallTimeout = 2 * time.Second
	}

	if opts.RestartDelay == 0 {
		opts.RestartDelay = time.Millisecond
	}

	s := New(opts)
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() {
		require.NoError(t, s.Close())
	})

	return s
}

func call(t *testing.T, s *Supervisor, command string) protocol.Response {
	t.Helper()

	req, err := protocol.ParseCommand(command)
	require.NoError(t, err)

	resp, err := s.Call(context.Background(), req)
	require.NoError(t, err)
	require.Equal(t, req.ID, resp.ID)

	return resp
}

func TestSupervisor_SetGameOncePerWorker(t *testing.T) {
	f := newFleet(nil)
	s := startSupervisor(t, f, nil)

	require.Equal(t, "true", call(t, s, "setGame CS2").Text())
	require.Equal(t, "false", call(t, s, "setGame CS2").Text())
	require.Equal(t, "7", call(t, s, "getLastError").Text())

	s.Reset()

	require.Equal(t, "true", call(t, s, "setGame CS2").Text())
	require.Equal(t, 2, f.count())
	require.True(t, f.get(0).killed.Load())
	require.Equal(t, 1, f.get(1).sim.Handshakes())
}

func TestSupervisor_ResetDuringCall(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		if n == 0 {
			return newFakeWorker(behaviorHang)
		}

		return newFakeWorker(behaviorRespond)
	})
	s := startSupervisor(t, f, nil)

	type outcome struct {
		resp protocol.Response
		err  error
	}

	done := make(chan outcome, 1)

	go func() {
		resp, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
		done <- outcome{resp, err}
	}()

	require.Eventually(t, func() bool { return f.count() == 1 }, time.Second, time.Millisecond)

	select {
	case <-f.get(0).received:
	case <-time.After(time.Second):
		t.Fatal("request never reached the worker")
	}

	s.Reset()

	select {
	case out := <-done:
		require.NoError(t, out.err)
		require.True(t, out.resp.IsResetting())
		require.Equal(t, protocol.Resetting, out.resp.Text())
	case <-time.After(2 * time.Second):
		t.Fatal("call did not return after reset")
	}

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.Equal(t, 2, f.count())
}

func TestSupervisor_ResetTwiceRestartsOnce(t *testing.T) {
	f := newFleet(nil)
	s := startSupervisor(t, f, nil)

	call(t, s, "requestControl")

	s.Reset()
	s.Reset()

	call(t, s, "requestControl")
	require.Equal(t, 2, f.count())
}

func TestSupervisor_ResetBeforeStartIsNoop(t *testing.T) {
	s := New(&config.Options{WorkerFactory: newFleet(nil).factory})

	s.Reset()
	require.Equal(t, config.StateStopped, s.State())
}

func TestSupervisor_UnresponsiveWorkerIsReplaced(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		if n == 0 {
			return newFakeWorker(behaviorHang)
		}

		return newFakeWorker(behaviorRespond)
	})
	s := startSupervisor(t, f, &config.Options{CallTimeout: 50 * time.Millisecond})

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
	require.ErrorIs(t, err, errors.ErrWorkerUnresponsive)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.True(t, f.get(0).killed.Load())
}

func TestSupervisor_TransportFaultRestartsWorker(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		if n == 0 {
			return newFakeWorker(behaviorFault)
		}

		return newFakeWorker(behaviorRespond)
	})
	s := startSupervisor(t, f, &config.Options{Registerer: prometheus.NewRegistry()})

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
	require.NotErrorIs(t, err, errors.ErrWorkerUnresponsive)

	transportErr, ok := stderrors.AsType[*errors.TransportError](err)
	require.True(t, ok, "expected TransportError, got %v", err)
	require.Equal(t, "receive", transportErr.Op)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.Equal(t, 2, f.count())

	require.InDelta(t, 1, testutil.ToFloat64(s.metrics.cycles.WithLabelValues(reasonFault)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(s.metrics.cycles.WithLabelValues(reasonUnresponsive)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(s.metrics.calls.WithLabelValues(resultFault)), 0)
	require.InDelta(t, 0, testutil.ToFloat64(s.metrics.calls.WithLabelValues(resultTimeout)), 0)
}

func TestSupervisor_StuckSendIsUnresponsive(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		if n == 0 {
			return newFakeWorker(behaviorStuckSend)
		}

		return newFakeWorker(behaviorRespond)
	})
	s := startSupervisor(t, f, &config.Options{CallTimeout: 50 * time.Millisecond})

	start := time.Now()

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
	require.ErrorIs(t, err, errors.ErrWorkerUnresponsive)
	require.Less(t, time.Since(start), 2*time.Second)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.True(t, f.get(0).killed.Load())
}

func TestSupervisor_ResetWhileStartingIsNoop(t *testing.T) {
	gate := make(chan struct{})
	f := newFleet(func(n int) *fakeWorker {
		w := newFakeWorker(behaviorRespond)
		if n == 0 {
			w.startGate = gate
		}

		return w
	})
	s := startSupervisor(t, f, nil)

	require.Eventually(t, func() bool {
		return f.count() == 1 && s.State() == config.StateStarting
	}, time.Second, time.Millisecond)

	s.Reset()
	close(gate)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.Equal(t, 1, f.count())
	require.False(t, f.get(0).killed.Load())
}

func TestSupervisor_CallWithoutWorkerTimesOut(t *testing.T) {
	f := newFleet(func(int) *fakeWorker {
		w := newFakeWorker(behaviorRespond)
		w.startGate = make(chan struct{})

		return w
	})
	s := startSupervisor(t, f, &config.Options{
		ConnectTimeout: 20 * time.Millisecond,
		CallTimeout:    30 * time.Millisecond,
	})

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
	require.ErrorIs(t, err, errors.ErrCallTimeout)
}

func TestSupervisor_MismatchedResponseIsFault(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		if n == 0 {
			return newFakeWorker(behaviorMismatch)
		}

		return newFakeWorker(behaviorRespond)
	})
	s := startSupervisor(t, f, nil)

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpRequestControl))
	require.ErrorIs(t, err, errors.ErrUnexpectedResponse)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
}

func TestSupervisor_WorkerExitWhileIdle(t *testing.T) {
	f := newFleet(nil)
	s := startSupervisor(t, f, nil)

	call(t, s, "requestControl")
	f.get(0).close()

	require.Eventually(t, func() bool {
		return f.count() == 2 && s.State() == config.StateReady
	}, 2*time.Second, time.Millisecond)

	require.Equal(t, "true", call(t, s, "setGame CS2").Text())
}

func TestSupervisor_StartFailureBacksOff(t *testing.T) {
	f := newFleet(func(n int) *fakeWorker {
		w := newFakeWorker(behaviorRespond)
		if n < 2 {
			w.startErr = fmt.Errorf("spawn failed")
		}

		return w
	})
	s := startSupervisor(t, f, nil)

	require.Equal(t, "true", call(t, s, "requestControl").Text())
	require.Equal(t, 3, f.count())
}

func TestSupervisor_UnknownCommandKeepsWorker(t *testing.T) {
	f := newFleet(nil)
	s := startSupervisor(t, f, nil)

	resp := call(t, s, "explode")
	require.True(t, resp.IsError())
	require.Equal(t, "unknown operation", resp.Error)

	call(t, s, "requestControl")
	require.Equal(t, 1, f.count())
}

func TestSupervisor_SerializesCalls(t *testing.T) {
	f := newFleet(nil)
	s := startSupervisor(t, f, nil)

	var wg sync.WaitGroup

	for range 16 {
		wg.Go(func() {
			_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpGetLastError))
			assert.NoError(t, err)
		})
	}

	wg.Wait()

	require.Equal(t, int32(1), f.get(0).maxInFlight.Load())
}

func TestSupervisor_Lifecycle(t *testing.T) {
	s := New(&config.Options{WorkerFactory: newFleet(nil).factory})

	_, err := s.Call(context.Background(), protocol.NewRequest(protocol.OpGetLastError))
	require.ErrorIs(t, err, errors.ErrClientNotStarted)

	require.NoError(t, s.Start(context.Background()))
	require.ErrorIs(t, s.Start(context.Background()), errors.ErrClientAlreadyStarted)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())
	require.Equal(t, config.StateClosed, s.State())

	_, err = s.Call(context.Background(), protocol.NewRequest(protocol.OpGetLastError))
	require.ErrorIs(t, err, errors.ErrClientClosed)

	require.ErrorIs(t, s.Start(context.Background()), errors.ErrClientClosed)
}

func TestSupervisor_StateHookAndMetrics(t *testing.T) {
	var (
		mu          sync.Mutex
		transitions []config.State
	)

	reg := prometheus.NewRegistry()
	f := newFleet(nil)
	s := startSupervisor(t, f, &config.Options{
		Registerer: reg,
		OnStateChange: func(_, to config.State) {
			mu.Lock()
			transitions = append(transitions, to)
			mu.Unlock()
		},
	})

	call(t, s, "requestControl")
	call(t, s, "explode")

	s.Reset()
	call(t, s, "requestControl")

	mu.Lock()
	got := append([]config.State(nil), transitions...)
	mu.Unlock()

	require.Equal(t, []config.State{
		config.StateStarting,
		config.StateReady,
		config.StateResetting,
		config.StateStarting,
		config.StateReady,
	}, got)

	require.InDelta(t, 2, testutil.ToFloat64(s.metrics.calls.WithLabelValues(resultOK)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(s.metrics.calls.WithLabelValues(resultRejected)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(s.metrics.cycles.WithLabelValues(reasonReset)), 0)
	require.InDelta(t, 1, testutil.ToFloat64(s.metrics.workerUp), 0)

	families, err := reg.Gather()
	require.NoError(t, err)
	require.NotEmpty(t, families)
}

func TestSupervisor_CallHonorsContext(t *testing.T) {
	f := newFleet(func(int) *fakeWorker { return newFakeWorker(behaviorHang) })
	s := startSupervisor(t, f, nil)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := s.Call(ctx, protocol.NewRequest(protocol.OpRequestControl))
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
