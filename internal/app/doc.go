// Package app implements the cgrelay host command: configuration, logging,
// the line-oriented REPL and the MCP tool server, with optional gRPC health
// and Prometheus endpoints.
package app
