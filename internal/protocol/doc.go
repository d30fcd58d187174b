// Package protocol defines the messages exchanged between the supervisor and
// its worker process.
//
// Every message is one JSON object on its own line. The supervisor sends
// requests naming an SDK operation with at most one string argument; the
// worker answers each request with a response carrying the same id and a
// kind-tagged result. The worker's first message on a new session is a hello
// sent after its one-time SDK handshake.
//
// Example exchange:
//
//	-> {"type":"request","id":"01J9Z3","op":"setGame","arg":"CS2"}
//	<- {"type":"response","id":"01J9Z3","kind":"bool","value":"true"}
//
// Only one request is outstanding at a time, so responses are strictly
// ordered; the id is checked only to detect a confused peer.
package protocol
