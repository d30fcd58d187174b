package cgrelay

import (
	"context"
	"sync"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
	"github.com/wagiedev/cgsdk-relay/internal/subprocess"
	"github.com/wagiedev/cgsdk-relay/internal/supervisor"
)

// clientWrapper adapts the internal supervisor to the public interface.
type clientWrapper struct {
	mu     sync.Mutex
	sup    *supervisor.Supervisor
	closed bool
}

// Compile-time check that *clientWrapper implements the Client interface.
var _ Client = (*clientWrapper)(nil)

func newClientImpl() Client {
	return &clientWrapper{}
}

// Start launches the supervisor. The client outlives ctx; only Close stops it.
func (c *clientWrapper) Start(ctx context.Context, opts ...Option) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return errors.ErrClientClosed
	}

	if c.sup != nil {
		return errors.ErrClientAlreadyStarted
	}

	options := applyOptions(opts)

	// Fail fast on a missing worker binary instead of retrying forever.
	if options.WorkerFactory == nil {
		discoverer := &subprocess.Discoverer{WorkerPath: options.WorkerPath, Logger: options.Logger}

		path, err := discoverer.Discover()
		if err != nil {
			return err
		}

		options.WorkerPath = path
	}

	sup := supervisor.New(options)
	if err := sup.Start(context.WithoutCancel(ctx)); err != nil {
		return err
	}

	c.sup = sup

	return nil
}

func (c *clientWrapper) current() (*supervisor.Supervisor, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return nil, errors.ErrClientClosed
	case c.sup == nil:
		return nil, errors.ErrClientNotStarted
	}

	return c.sup, nil
}

// Do relays req and returns the raw response.
func (c *clientWrapper) Do(ctx context.Context, req Request) (Response, error) {
	sup, err := c.current()
	if err != nil {
		return Response{}, err
	}

	return sup.Call(ctx, req)
}

// Call relays a command line and returns its text result.
func (c *clientWrapper) Call(ctx context.Context, command string) (string, error) {
	req, err := protocol.ParseCommand(command)
	if err != nil {
		return "", err
	}

	resp, err := c.Do(ctx, req)
	if err != nil {
		return "", err
	}

	if resp.IsError() {
		return "", &errors.WorkerError{Op: req.Command(), Message: resp.Error}
	}

	return resp.Text(), nil
}

// exchange relays a typed call. The resetting sentinel becomes ErrResetting.
func (c *clientWrapper) exchange(ctx context.Context, op string, arg ...string) (Response, error) {
	req := protocol.NewRequest(op, arg...)

	resp, err := c.Do(ctx, req)
	if err != nil {
		return Response{}, err
	}

	switch {
	case resp.IsResetting():
		return resp, errors.ErrResetting
	case resp.IsError():
		return resp, &errors.WorkerError{Op: req.Command(), Message: resp.Error}
	}

	return resp, nil
}

func (c *clientWrapper) boolCall(ctx context.Context, op string, arg ...string) (bool, error) {
	resp, err := c.exchange(ctx, op, arg...)
	if err != nil {
		return false, err
	}

	return protocol.ParseBool(resp.Value), nil
}

// GetLastError returns the SDK's last error code.
func (c *clientWrapper) GetLastError(ctx context.Context) (int, error) {
	resp, err := c.exchange(ctx, protocol.OpGetLastError)
	if err != nil {
		return 0, err
	}

	return protocol.ParseInt(resp.Value)
}

func (c *clientWrapper) RequestControl(ctx context.Context) (bool, error) {
	return c.boolCall(ctx, protocol.OpRequestControl)
}

func (c *clientWrapper) ReleaseControl(ctx context.Context) (bool, error) {
	return c.boolCall(ctx, protocol.OpReleaseControl)
}

func (c *clientWrapper) SetGame(ctx context.Context, name string) (bool, error) {
	return c.boolCall(ctx, protocol.OpSetGame, name)
}

func (c *clientWrapper) SetState(ctx context.Context, name string) (bool, error) {
	return c.boolCall(ctx, protocol.OpSetState, name)
}

func (c *clientWrapper) SetEvent(ctx context.Context, name string) (bool, error) {
	return c.boolCall(ctx, protocol.OpSetEvent, name)
}

func (c *clientWrapper) ClearState(ctx context.Context, name string) (bool, error) {
	return c.boolCall(ctx, protocol.OpClearState, name)
}

func (c *clientWrapper) ClearAllStates(ctx context.Context) (bool, error) {
	return c.boolCall(ctx, protocol.OpClearAllStates)
}

func (c *clientWrapper) ClearAllEvents(ctx context.Context) (bool, error) {
	return c.boolCall(ctx, protocol.OpClearAllEvents)
}

// Reset replaces the worker. It is a no-op before Start and after Close.
func (c *clientWrapper) Reset() {
	sup, err := c.current()
	if err != nil {
		return
	}

	sup.Reset()
}

// State returns the supervisor state.
func (c *clientWrapper) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch {
	case c.closed:
		return StateClosed
	case c.sup == nil:
		return StateStopped
	}

	return c.sup.State()
}

// Close stops the supervisor.
func (c *clientWrapper) Close() error {
	c.mu.Lock()
	sup := c.sup
	alreadyClosed := c.closed
	c.closed = true
	c.mu.Unlock()

	if alreadyClosed || sup == nil {
		return nil
	}

	return sup.Close()
}
