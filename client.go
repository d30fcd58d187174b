package cgrelay

import "context"

// Client relays commands to a constrained SDK running in a disposable worker
// process.
//
// The SDK allows some operations (setGame) only once per process. The client
// keeps one worker alive at a time and replaces it on Reset, so the host can
// start over as often as it needs to.
//
// Lifecycle: Clients are single-use. After Close(), create a new client with NewClient().
//
// Example usage:
//
//	client := cgrelay.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx, cgrelay.WithLogger(slog.Default())); err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := client.SetGame(ctx, "CS2")
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	// A second SetGame fails inside the same worker...
//	client.Reset()
//
//	// ...and succeeds again in the fresh one.
//	ok, err = client.SetGame(ctx, "CS2")
type Client interface {
	// Start launches the supervisor. The first worker connects in the
	// background; calls made before it is ready wait for it.
	// Returns WorkerNotFoundError if the worker binary cannot be located.
	Start(ctx context.Context, opts ...Option) error

	// Call relays a command line such as "setGame CS2" and returns the
	// worker's text result: a decimal integer, "true"/"false", or
	// "resetting" when a reset abandoned the exchange. Commands the worker
	// rejects return a *WorkerError.
	Call(ctx context.Context, command string) (string, error)

	// Do relays a prepared request and returns the full response.
	Do(ctx context.Context, req Request) (Response, error)

	// GetLastError returns the SDK's last error code.
	GetLastError(ctx context.Context) (int, error)

	RequestControl(ctx context.Context) (bool, error)
	ReleaseControl(ctx context.Context) (bool, error)

	// SetGame selects the game profile. It can succeed once per worker.
	SetGame(ctx context.Context, name string) (bool, error)

	SetState(ctx context.Context, name string) (bool, error)
	SetEvent(ctx context.Context, name string) (bool, error)
	ClearState(ctx context.Context, name string) (bool, error)
	ClearAllStates(ctx context.Context) (bool, error)
	ClearAllEvents(ctx context.Context) (bool, error)

	// Reset replaces the worker with a fresh process. A call waiting on the
	// old worker receives the resetting result (ErrResetting from the typed
	// methods). Never blocks.
	Reset()

	// State returns the supervisor's lifecycle state.
	State() State

	// Close kills the worker and releases the channel.
	// After Close(), the client cannot be reused. Safe to call multiple times.
	Close() error
}

// NewClient creates a new relay client.
//
// Call Start() with options to launch the worker:
//
//	client := NewClient()
//	err := client.Start(ctx,
//	    WithWorkerPath("/usr/local/bin/cgsdk-worker"),
//	    WithCallTimeout(5*time.Second),
//	)
func NewClient() Client {
	return newClientImpl()
}
