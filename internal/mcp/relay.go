package mcp

import (
	"context"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/wagiedev/cgsdk-relay/internal/config"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// ServerName is the MCP implementation name of the relay tool server.
const ServerName = "cgrelay"

// Relay executes requests against the current worker.
type Relay interface {
	Do(ctx context.Context, req protocol.Request) (protocol.Response, error)
	Reset()
	State() config.State
}

// NewRelayServer registers one tool per SDK operation plus "call", "reset"
// and "state".
func NewRelayServer(relay Relay, version string) *Server {
	s := NewServer(ServerName, version)

	for _, op := range protocol.Operations() {
		schema := &jsonschema.Schema{Type: "object"}
		if op.HasArg {
			schema = SimpleSchema(map[string]string{"arg": "string"})
		}

		s.AddTool(NewTool(op.Name, op.Description, schema), operationHandler(relay, op))
	}

	s.AddTool(
		NewTool("call", "Relay a raw command line such as \"setGame CS2\"",
			SimpleSchema(map[string]string{"command": "string"})),
		func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			command, _ := args["command"].(string)

			parsed, err := protocol.ParseCommand(command)
			if err != nil {
				return ErrorResult(err.Error()), nil
			}

			return relayRequest(ctx, relay, parsed), nil
		},
	)

	s.AddTool(
		NewTool("reset", "Restart the SDK worker with a fresh process", &jsonschema.Schema{Type: "object"}),
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			relay.Reset()

			return TextResult("ok"), nil
		},
	)

	s.AddTool(
		NewTool("state", "Report the supervisor state", &jsonschema.Schema{Type: "object"}),
		func(context.Context, *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return TextResult(string(relay.State())), nil
		},
	)

	return s
}

func operationHandler(relay Relay, op protocol.Operation) mcp.ToolHandler {
	return func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		if !op.HasArg {
			return relayRequest(ctx, relay, protocol.NewRequest(op.Name)), nil
		}

		args, err := ParseArguments(req)
		if err != nil {
			return ErrorResult(err.Error()), nil
		}

		arg, ok := args["arg"].(string)
		if !ok {
			return ErrorResult(op.Name + " requires a string \"arg\""), nil
		}

		return relayRequest(ctx, relay, protocol.NewRequest(op.Name, arg)), nil
	}
}

// relayRequest runs req and renders the outcome as a tool result.
func relayRequest(ctx context.Context, relay Relay, req protocol.Request) *mcp.CallToolResult {
	resp, err := relay.Do(ctx, req)
	if err != nil {
		return ErrorResult(err.Error())
	}

	if resp.IsError() {
		return ErrorResult(resp.Error)
	}

	return TextResult(resp.Text())
}
