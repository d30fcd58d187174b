package protocol

import (
	"strconv"
	"strings"

	"github.com/oklog/ulid/v2"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

// Message types carried in the "type" field.
const (
	TypeRequest  = "request"
	TypeResponse = "response"
	TypeHello    = "hello"
)

// Resetting is the value delivered to a caller whose exchange was abandoned
// by a reset.
const Resetting = "resetting"

// Kind is the declared return kind of an operation, and the tag of a response.
type Kind string

const (
	KindVoid      Kind = "void"
	KindBool      Kind = "bool"
	KindInt       Kind = "int"
	KindError     Kind = "error"
	KindResetting Kind = "resetting"
)

// Request is a command sent from the supervisor to the worker.
//
// Wire format:
//
//	{"type":"request","id":"01J9Z3...","op":"setGame","arg":"CS2"}
type Request struct {
	// Type is always "request"
	Type string `json:"type"`

	// ID correlates the response with this request
	ID string `json:"id"`

	// Op names the SDK operation
	Op string `json:"op"`

	// Arg is the single optional string argument
	Arg *string `json:"arg,omitempty"`
}

// NewRequest builds a request with a fresh correlation id.
// At most one argument is used.
func NewRequest(op string, arg ...string) Request {
	req := Request{
		Type: TypeRequest,
		ID:   ulid.Make().String(),
		Op:   op,
	}

	if len(arg) > 0 {
		a := arg[0]
		req.Arg = &a
	}

	return req
}

// ParseCommand parses a command line of the form "op" or "op arg".
// Everything after the first space is the argument, so arguments may
// themselves contain spaces.
func ParseCommand(line string) (Request, error) {
	line = strings.TrimSpace(line)
	if line == "" {
		return Request{}, errors.ErrEmptyCommand
	}

	op, arg, found := strings.Cut(line, " ")
	if !found {
		return NewRequest(op), nil
	}

	return NewRequest(op, strings.TrimSpace(arg)), nil
}

// Command renders the request as a command line, e.g. "setGame CS2".
func (r Request) Command() string {
	if r.Arg == nil {
		return r.Op
	}

	return r.Op + " " + *r.Arg
}

// Argument returns the argument and whether one was supplied.
func (r Request) Argument() (string, bool) {
	if r.Arg == nil {
		return "", false
	}

	return *r.Arg, true
}

// Response is a result sent from the worker to the supervisor.
//
// Wire format for success:
//
//	{"type":"response","id":"01J9Z3...","kind":"bool","value":"true"}
//
// Wire format for error:
//
//	{"type":"response","id":"01J9Z3...","kind":"error","error":"unknown operation"}
//
// The first message of every session is a hello:
//
//	{"type":"hello","kind":"void","value":"1","pid":4242}
type Response struct {
	Type  string `json:"type"`
	ID    string `json:"id,omitempty"`
	Kind  Kind   `json:"kind"`
	Value string `json:"value,omitempty"`
	Error string `json:"error,omitempty"`
	PID   int    `json:"pid,omitempty"`
}

// IsError reports whether the worker rejected the request.
func (r Response) IsError() bool {
	return r.Kind == KindError
}

// IsResetting reports whether the exchange was abandoned by a reset.
func (r Response) IsResetting() bool {
	return r.Kind == KindResetting
}

// Text returns the result as text: a decimal integer, true/false, or the
// resetting sentinel.
func (r Response) Text() string {
	if r.IsResetting() {
		return Resetting
	}

	return r.Value
}

// BoolResponse answers id with a boolean.
func BoolResponse(id string, v bool) Response {
	return Response{Type: TypeResponse, ID: id, Kind: KindBool, Value: strconv.FormatBool(v)}
}

// IntResponse answers id with an integer.
func IntResponse(id string, v int) Response {
	return Response{Type: TypeResponse, ID: id, Kind: KindInt, Value: strconv.Itoa(v)}
}

// VoidResponse answers id with no value.
func VoidResponse(id string) Response {
	return Response{Type: TypeResponse, ID: id, Kind: KindVoid}
}

// ErrorResponse rejects id with a message.
func ErrorResponse(id, message string) Response {
	return Response{Type: TypeResponse, ID: id, Kind: KindError, Error: message}
}

// ResettingResponse is the sentinel delivered to a caller when a reset
// abandons its exchange.
func ResettingResponse(id string) Response {
	return Response{Type: TypeResponse, ID: id, Kind: KindResetting, Value: Resetting}
}

// Hello is the first message a worker sends after its one-time handshake.
// handshakes is the number of handshakes performed in the worker's lifetime.
func Hello(pid, handshakes int) Response {
	return Response{Type: TypeHello, Kind: KindVoid, Value: strconv.Itoa(handshakes), PID: pid}
}
