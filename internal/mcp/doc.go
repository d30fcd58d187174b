// Package mcp exposes relay operations as Model Context Protocol tools.
//
// Every SDK operation becomes one tool, plus "call" for raw command lines,
// "reset" and "state". The server keeps its own thread-safe tool registry so
// tools can be listed and invoked directly, and builds an official MCP SDK
// server from the same registry for serving over stdio.
package mcp
