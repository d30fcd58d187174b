package mcp

import (
	"context"
	"errors"
	"sync"
	"testing"

	mcpgo "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/require"

	"github.com/wagiedev/cgsdk-relay/internal/config"
	relayerrors "github.com/wagiedev/cgsdk-relay/internal/errors"
	"github.com/wagiedev/cgsdk-relay/internal/protocol"
)

// fakeRelay records requests and answers from a script.
type fakeRelay struct {
	mu       sync.Mutex
	requests []protocol.Request
	resets   int
	answer   func(protocol.Request) (protocol.Response, error)
}

func (r *fakeRelay) Do(_ context.Context, req protocol.Request) (protocol.Response, error) {
	r.mu.Lock()
	r.requests = append(r.requests, req)
	r.mu.Unlock()

	if r.answer != nil {
		return r.answer(req)
	}

	return protocol.BoolResponse(req.ID, true), nil
}

func (r *fakeRelay) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.resets++
}

func (r *fakeRelay) State() config.State {
	return config.StateReady
}

func TestServer_ListAndCallTool(t *testing.T) {
	server := NewServer("demo", "1.0.0")
	server.AddTool(
		NewTool("echo", "echoes text", SimpleSchema(map[string]string{"text": "string"})),
		func(_ context.Context, req *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			args, err := ParseArguments(req)
			if err != nil {
				return nil, err
			}

			text, _ := args["text"].(string)

			return TextResult("echo: " + text), nil
		},
	)

	require.Equal(t, "demo", server.Name())
	require.Equal(t, "1.0.0", server.Version())

	tools := server.ListTools()
	require.Len(t, tools, 1)
	require.Equal(t, "echo", tools[0].Name)

	result, err := server.CallTool(context.Background(), "echo", map[string]any{"text": "hello"})
	require.NoError(t, err)
	require.False(t, result.IsError)
	require.Equal(t, "echo: hello", ResultText(result))

	missing, err := server.CallTool(context.Background(), "unknown", map[string]any{})
	require.NoError(t, err)
	require.True(t, missing.IsError)
}

func TestServer_CallTool_HandlerError(t *testing.T) {
	server := NewServer("demo", "1.0.0")
	server.AddTool(
		NewTool("fails", "always fails", SimpleSchema(nil)),
		func(context.Context, *mcpgo.CallToolRequest) (*mcpgo.CallToolResult, error) {
			return nil, errors.New("boom")
		},
	)

	result, err := server.CallTool(context.Background(), "fails", map[string]any{})
	require.NoError(t, err)
	require.True(t, result.IsError)
	require.Contains(t, ResultText(result), "boom")
}

func TestRelayServer_Tools(t *testing.T) {
	server := NewRelayServer(&fakeRelay{}, "test")

	names := make([]string, 0)
	for _, tool := range server.ListTools() {
		names = append(names, tool.Name)
	}

	require.Len(t, names, len(protocol.Operations())+3)
	require.Contains(t, names, "setGame")
	require.Contains(t, names, "call")
	require.Contains(t, names, "reset")
	require.Contains(t, names, "state")
	require.IsIncreasing(t, names)

	require.NotNil(t, server.MCPServer())
}

func TestRelayServer_OperationTools(t *testing.T) {
	relay := &fakeRelay{}
	server := NewRelayServer(relay, "test")
	ctx := context.Background()

	result, err := server.CallTool(ctx, "setGame", map[string]any{"arg": "CS2"})
	require.NoError(t, err)
	require.Equal(t, "true", ResultText(result))

	result, err = server.CallTool(ctx, "requestControl", map[string]any{})
	require.NoError(t, err)
	require.Equal(t, "true", ResultText(result))

	result, err = server.CallTool(ctx, "setState", map[string]any{})
	require.NoError(t, err)
	require.True(t, result.IsError)

	require.Len(t, relay.requests, 2)
	require.Equal(t, "setGame CS2", relay.requests[0].Command())
	require.Equal(t, "requestControl", relay.requests[1].Command())
}

func TestRelayServer_CallResetState(t *testing.T) {
	relay := &fakeRelay{
		answer: func(req protocol.Request) (protocol.Response, error) {
			switch req.Op {
			case protocol.OpGetLastError:
				return protocol.IntResponse(req.ID, 7), nil
			case protocol.OpSetEvent:
				return protocol.ResettingResponse(req.ID), nil
			case protocol.OpClearAllEvents:
				return protocol.Response{}, relayerrors.ErrCallTimeout
			default:
				return protocol.ErrorResponse(req.ID, "unknown operation"), nil
			}
		},
	}
	server := NewRelayServer(relay, "test")
	ctx := context.Background()

	tests := []struct {
		name    string
		tool    string
		input   map[string]any
		want    string
		isError bool
	}{
		{name: "int result", tool: "call", input: map[string]any{"command": "getLastError"}, want: "7"},
		{name: "resetting sentinel", tool: "setEvent", input: map[string]any{"arg": "kill"}, want: "resetting"},
		{name: "relay error", tool: "clearAllEvents", want: "call timeout", isError: true},
		{name: "worker rejection", tool: "call", input: map[string]any{"command": "explode"}, want: "unknown operation", isError: true},
		{name: "empty command", tool: "call", input: map[string]any{"command": "  "}, isError: true},
		{name: "state", tool: "state", want: "ready"},
		{name: "reset", tool: "reset", want: "ok"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := server.CallTool(ctx, tt.tool, tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.isError, result.IsError)

			if tt.want != "" {
				require.Contains(t, ResultText(result), tt.want)
			}
		})
	}

	require.Equal(t, 1, relay.resets)
}

func TestSimpleSchema(t *testing.T) {
	schema := SimpleSchema(map[string]string{
		"name":   "string",
		"active": "bool",
		"scores": "[]float64",
	})

	require.Equal(t, "object", schema.Type)
	require.Equal(t, []string{"active", "name", "scores"}, schema.Required)
	require.Equal(t, "string", schema.Properties["name"].Type)
	require.Equal(t, "boolean", schema.Properties["active"].Type)
	require.Equal(t, "array", schema.Properties["scores"].Type)
	require.Equal(t, "number", schema.Properties["scores"].Items.Type)
}

func TestParseArguments(t *testing.T) {
	args, err := ParseArguments(nil)
	require.NoError(t, err)
	require.Empty(t, args)

	args, err = ParseArguments(&mcpgo.CallToolRequest{
		Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"arg":"CS2"}`)},
	})
	require.NoError(t, err)
	require.Equal(t, "CS2", args["arg"])

	_, err = ParseArguments(&mcpgo.CallToolRequest{
		Params: &mcpgo.CallToolParamsRaw{Arguments: []byte(`{"arg":`)},
	})
	require.ErrorContains(t, err, "failed to unmarshal arguments")
}
