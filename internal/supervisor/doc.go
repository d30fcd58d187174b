// Package supervisor keeps a disposable SDK worker alive and relays calls to it.
//
// Each cycle creates a fresh worker, waits for it to connect, serves calls one
// at a time and tears the worker down when the cycle ends. A cycle ends on
// Reset, on Close, on a transport fault, when the worker stops answering, or
// when the worker process exits on its own. Only Close stops the loop; every
// other ending is followed by a new cycle.
//
// Call is serialized: the whole request/response exchange holds a mutex, so
// the worker never sees more than one outstanding request.
package supervisor
