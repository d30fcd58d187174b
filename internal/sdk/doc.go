// Package sdk describes the constrained lighting SDK driven by the worker.
//
// The native library is an external collaborator; this package defines the
// surface the worker dispatches to and a Simulator that reproduces the
// library's once-per-process SetGame rule for development and tests.
package sdk
