package worker

import (
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
	"github.com/wagiedev/cgsdk-relay/internal/sdk"
)

// handler runs one SDK operation and encodes its result.
type handler func(id, arg string) protocol.Response

// Dispatcher maps operation names to SDK calls.
type Dispatcher struct {
	handlers map[string]handler
}

// NewDispatcher binds the operation table to s.
func NewDispatcher(s sdk.SDK) *Dispatcher {
	boolOp := func(fn func() bool) handler {
		return func(id, _ string) protocol.Response {
			return protocol.BoolResponse(id, fn())
		}
	}

	boolArgOp := func(fn func(string) bool) handler {
		return func(id, arg string) protocol.Response {
			return protocol.BoolResponse(id, fn(arg))
		}
	}

	return &Dispatcher{
		handlers: map[string]handler{
			protocol.OpGetLastError: func(id, _ string) protocol.Response {
				return protocol.IntResponse(id, s.GetLastError())
			},
			protocol.OpRequestControl: boolOp(s.RequestControl),
			protocol.OpReleaseControl: boolOp(s.ReleaseControl),
			protocol.OpSetGame:        boolArgOp(s.SetGame),
			protocol.OpSetState:       boolArgOp(s.SetState),
			protocol.OpSetEvent:       boolArgOp(s.SetEvent),
			protocol.OpClearState:     boolArgOp(s.ClearState),
			protocol.OpClearAllStates: boolOp(s.ClearAllStates),
			protocol.OpClearAllEvents: boolOp(s.ClearAllEvents),
		},
	}
}

// Dispatch executes req. Unknown operations and argument mismatches produce
// an error response; the SDK is not called.
func (d *Dispatcher) Dispatch(req protocol.Request) protocol.Response {
	op, known := protocol.Lookup(req.Op)
	h, bound := d.handlers[req.Op]

	if !known || !bound {
		return protocol.ErrorResponse(req.ID, "unknown operation")
	}

	arg, hasArg := req.Argument()

	switch {
	case op.HasArg && !hasArg:
		return protocol.ErrorResponse(req.ID, "missing argument")
	case !op.HasArg && hasArg:
		return protocol.ErrorResponse(req.ID, "unexpected argument")
	}

	return h(req.ID, arg)
}
