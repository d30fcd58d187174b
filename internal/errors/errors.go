package errors

import (
	"errors"
	"fmt"
)

// RelayError is the base interface for all relay errors.
type RelayError interface {
	error
	IsRelayError() bool
}

// Compile-time verification that all error types implement RelayError.
var (
	_ RelayError = (*WorkerNotFoundError)(nil)
	_ RelayError = (*WorkerConnectionError)(nil)
	_ RelayError = (*ProcessError)(nil)
	_ RelayError = (*TransportError)(nil)
	_ RelayError = (*FrameDecodeError)(nil)
	_ RelayError = (*DecodeError)(nil)
	_ RelayError = (*WorkerError)(nil)
)

// Sentinel errors for commonly checked conditions.
var (
	// ErrClientNotStarted indicates the client has not been started.
	ErrClientNotStarted = errors.New("client not started")

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.New("client already started")

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.New("client closed: clients are single-use, create a new one with NewClient()")

	// ErrCallTimeout indicates a call did not complete within the configured timeout.
	ErrCallTimeout = errors.New("call timeout")

	// ErrConnectTimeout indicates the worker did not connect to the channel in time.
	ErrConnectTimeout = errors.New("worker connect timeout")

	// ErrWorkerUnresponsive indicates the worker did not answer a sent command in time.
	ErrWorkerUnresponsive = errors.New("worker unresponsive")

	// ErrResetRequested is the cancellation cause of a cycle ended by Reset.
	ErrResetRequested = errors.New("reset requested")

	// ErrResetting indicates a typed call was abandoned because the worker was reset.
	ErrResetting = errors.New("call abandoned: worker resetting")

	// ErrWorkerNotConnected indicates Send or Receive was used before Start.
	ErrWorkerNotConnected = errors.New("worker not connected")

	// ErrChannelInUse indicates another live process owns the channel name.
	ErrChannelInUse = errors.New("channel already in use")

	// ErrEmptyCommand indicates a blank command line.
	ErrEmptyCommand = errors.New("empty command")

	// ErrUnexpectedResponse indicates a response that does not answer the outstanding request.
	ErrUnexpectedResponse = errors.New("unexpected response")
)

// WorkerNotFoundError indicates the worker binary was not found.
type WorkerNotFoundError struct {
	SearchedPaths []string
}

func (e *WorkerNotFoundError) Error() string {
	return fmt.Sprintf("worker binary not found in: %v", e.SearchedPaths)
}

// IsRelayError implements RelayError.
func (e *WorkerNotFoundError) IsRelayError() bool { return true }

// WorkerConnectionError indicates failure to spawn the worker or to establish
// its channel session.
type WorkerConnectionError struct {
	Err error
}

func (e *WorkerConnectionError) Error() string {
	return fmt.Sprintf("failed to connect to worker: %v", e.Err)
}

func (e *WorkerConnectionError) Unwrap() error {
	return e.Err
}

// IsRelayError implements RelayError.
func (e *WorkerConnectionError) IsRelayError() bool { return true }

// ProcessError indicates the worker process exited on its own.
type ProcessError struct {
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("worker process failed (exit %d): %v", e.ExitCode, e.Err)
	}

	return fmt.Sprintf("worker process failed (exit %d): %s", e.ExitCode, e.Stderr)
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// IsRelayError implements RelayError.
func (e *ProcessError) IsRelayError() bool { return true }

// TransportError indicates the channel broke while sending or receiving.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("channel %s failed: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsRelayError implements RelayError.
func (e *TransportError) IsRelayError() bool { return true }

// FrameDecodeError indicates a line read from the channel is not a valid message.
// It preserves the raw line that failed to parse.
type FrameDecodeError struct {
	RawData string
	Err     error
}

func (e *FrameDecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame from channel: %v", e.Err)
}

func (e *FrameDecodeError) Unwrap() error {
	return e.Err
}

// IsRelayError implements RelayError.
func (e *FrameDecodeError) IsRelayError() bool { return true }

// DecodeError indicates a response value could not be decoded as the
// operation's declared return kind.
type DecodeError struct {
	Kind  string
	Value string
	Err   error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %q as %s: %v", e.Value, e.Kind, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// IsRelayError implements RelayError.
func (e *DecodeError) IsRelayError() bool { return true }

// WorkerError is an error response produced by the worker itself, such as an
// unknown operation or a missing argument. SDK-level failures are not
// reported this way; they are read back with getLastError.
type WorkerError struct {
	Op      string
	Message string
}

func (e *WorkerError) Error() string {
	return fmt.Sprintf("worker rejected %s: %s", e.Op, e.Message)
}

// IsRelayError implements RelayError.
func (e *WorkerError) IsRelayError() bool { return true }
