package cgrelay

import "github.com/wagiedev/cgsdk-relay/internal/errors"

// Re-export error types from internal package

// WorkerNotFoundError indicates the worker binary was not found.
type WorkerNotFoundError = errors.WorkerNotFoundError

// WorkerConnectionError indicates failure to start or connect to a worker.
type WorkerConnectionError = errors.WorkerConnectionError

// ProcessError indicates the worker process failed.
type ProcessError = errors.ProcessError

// TransportError indicates the channel to the worker broke.
type TransportError = errors.TransportError

// FrameDecodeError indicates a malformed frame on the channel.
type FrameDecodeError = errors.FrameDecodeError

// DecodeError indicates a result could not be decoded as its declared kind.
type DecodeError = errors.DecodeError

// WorkerError indicates the worker rejected a command.
type WorkerError = errors.WorkerError

// RelayError is the base interface for all relay errors.
type RelayError = errors.RelayError

// Re-export sentinel errors from internal package.
var (
	// ErrClientNotStarted indicates the client has not been started.
	ErrClientNotStarted = errors.ErrClientNotStarted

	// ErrClientAlreadyStarted indicates Start was called twice.
	ErrClientAlreadyStarted = errors.ErrClientAlreadyStarted

	// ErrClientClosed indicates the client has been closed and cannot be reused.
	ErrClientClosed = errors.ErrClientClosed

	// ErrCallTimeout indicates no worker became available within the call timeout.
	ErrCallTimeout = errors.ErrCallTimeout

	// ErrConnectTimeout indicates a worker did not connect in time.
	ErrConnectTimeout = errors.ErrConnectTimeout

	// ErrWorkerUnresponsive indicates the worker did not answer in time and was replaced.
	ErrWorkerUnresponsive = errors.ErrWorkerUnresponsive

	// ErrResetting indicates a typed call was abandoned by a reset.
	ErrResetting = errors.ErrResetting

	// ErrChannelInUse indicates another live process owns the channel name.
	ErrChannelInUse = errors.ErrChannelInUse

	// ErrEmptyCommand indicates a blank command line.
	ErrEmptyCommand = errors.ErrEmptyCommand

	// ErrUnexpectedResponse indicates a response that does not answer the request.
	ErrUnexpectedResponse = errors.ErrUnexpectedResponse
)
