// Package cgrelay relays commands to a once-per-process native SDK through a
// disposable worker process.
//
// The SDK may only be initialized once per process, and some calls (SetGame)
// succeed only once per initialization. The client therefore runs the SDK in a
// child worker, talks to it over a local channel, and replaces it whenever the
// host calls Reset.
//
// # Basic Usage
//
// Create a client, start it and call the typed operations:
//
//	client := cgrelay.NewClient()
//	defer client.Close()
//
//	if err := client.Start(ctx, cgrelay.WithLogger(slog.Default())); err != nil {
//	    log.Fatal(err)
//	}
//
//	ok, err := client.SetGame(ctx, "CS2")
//
// Or let WithClient manage the lifecycle:
//
//	err := cgrelay.WithClient(ctx, func(c cgrelay.Client) error {
//	    _, err := c.SetState(ctx, "low_health")
//	    return err
//	},
//	    cgrelay.WithWorkerPath("/opt/cgrelay/cgsdk-worker"),
//	)
//
// # Raw Commands
//
// Call accepts a command line such as "setGame CS2" and returns the result as
// text. A call cut short by Reset returns the text "resetting" with a nil
// error; the typed methods report the same case as ErrResetting.
//
// # Resetting
//
// Reset is idempotent. It kills the current worker and spawns a fresh one.
// Calls made while the new worker connects wait for it.
//
// # Error Handling
//
// The package exposes typed errors that can be checked with errors.As:
//
//	if _, err := client.SetGame(ctx, "CS2"); err != nil {
//	    var workerErr *cgrelay.WorkerError
//	    if errors.As(err, &workerErr) {
//	        fmt.Println("worker rejected:", workerErr.Message)
//	    }
//	}
//
// # Logging
//
// Logging is disabled by default. Pass WithLogger to enable it.
package cgrelay
