// Package channel provides the named local channel between supervisor and
// worker.
//
// The supervisor creates a unix socket under a fixed, shared name and accepts
// exactly one connection per worker lifetime; the worker resolves the same
// name and connects to it without any command-line coordination. Messages are
// framed by the protocol package, one JSON object per line.
package channel
