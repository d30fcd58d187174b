// Package worker implements the disposable side of the relay.
//
// A worker process connects to the supervisor's channel, performs the SDK's
// one-time handshake, announces itself with a hello message, and then answers
// one request at a time until the supervisor closes the channel. It holds no
// state across restarts: every "can this be called twice" question is settled
// by the worker being a fresh process.
package worker
