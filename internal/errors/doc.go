// Package errors defines error types for the relay.
//
// This package provides structured error types for the failure scenarios of a
// supervised worker: a missing worker binary, a worker that never connects,
// a channel that breaks mid-exchange, and responses that cannot be decoded.
// All error types support unwrapping and can be checked using errors.Is,
// errors.As, and errors.AsType.
package errors
