package cgrelay

import (
	"github.com/wagiedev/cgsdk-relay/internal/config"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// Re-export types from internal packages

// ===== Options and Configuration =====

// Options configures a relay client.
type Options = config.Options

// Worker is one incarnation of the SDK worker. Implement it to replace the
// process-backed worker.
type Worker = config.Worker

// WorkerFactory creates the Worker for one cycle.
type WorkerFactory = config.WorkerFactory

// ===== State =====

// State is the supervisor's lifecycle state.
type State = config.State

const (
	// StateStopped means Start has not been called.
	StateStopped = config.StateStopped
	// StateStarting means a worker is being spawned or is connecting.
	StateStarting = config.StateStarting
	// StateReady means a worker is connected and accepting calls.
	StateReady = config.StateReady
	// StateResetting means the current worker is being torn down.
	StateResetting = config.StateResetting
	// StateClosed means the client has shut down.
	StateClosed = config.StateClosed
)

// ===== Protocol =====

// Request is a command sent to the worker.
type Request = protocol.Request

// Response is the worker's answer to a Request.
type Response = protocol.Response

// Kind is the declared return kind of an operation.
type Kind = protocol.Kind

const (
	KindVoid      = protocol.KindVoid
	KindBool      = protocol.KindBool
	KindInt       = protocol.KindInt
	KindError     = protocol.KindError
	KindResetting = protocol.KindResetting
)

// Resetting is the text result of a call abandoned by a reset.
const Resetting = protocol.Resetting

// Operation describes one SDK operation.
type Operation = protocol.Operation

// Operations returns the SDK operations the worker understands.
func Operations() []Operation {
	return protocol.Operations()
}

// NewRequest builds a request for op with an optional argument.
func NewRequest(op string, arg ...string) Request {
	return protocol.NewRequest(op, arg...)
}

// ParseCommand parses a command line such as "setGame CS2".
func ParseCommand(line string) (Request, error) {
	return protocol.ParseCommand(line)
}
