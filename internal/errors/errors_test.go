package errors

import (
	"errors"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestWorkerNotFoundError(t *testing.T) {
	err := &WorkerNotFoundError{
		SearchedPaths: []string{"/opt/cgrelay/cgsdk-worker", "$PATH"},
	}

	require.Equal(
		t,
		"worker binary not found in: [/opt/cgrelay/cgsdk-worker $PATH]",
		err.Error(),
	)
	require.True(t, err.IsRelayError())
}

func TestWorkerConnectionError(t *testing.T) {
	root := errors.New("accept failed")
	err := &WorkerConnectionError{Err: root}

	require.Equal(t, "failed to connect to worker: accept failed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsRelayError())
}

func TestWorkerConnectionError_WrapsConnectTimeout(t *testing.T) {
	err := &WorkerConnectionError{Err: ErrConnectTimeout}

	require.ErrorIs(t, err, ErrConnectTimeout)
}

func TestProcessError_WithUnderlyingError(t *testing.T) {
	root := errors.New("signal: killed")
	err := &ProcessError{
		ExitCode: -1,
		Stderr:   "ignored when Err is set",
		Err:      root,
	}

	require.Equal(t, "worker process failed (exit -1): signal: killed", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsRelayError())
}

func TestProcessError_WithStderrOnly(t *testing.T) {
	err := &ProcessError{
		ExitCode: 3,
		Stderr:   "sdk dll missing",
	}

	require.Equal(t, "worker process failed (exit 3): sdk dll missing", err.Error())
	require.NoError(t, err.Unwrap())
}

func TestTransportError(t *testing.T) {
	root := errors.New("broken pipe")
	err := &TransportError{Op: "send", Err: root}

	require.Equal(t, "channel send failed: broken pipe", err.Error())
	require.ErrorIs(t, err, root)
	require.True(t, err.IsRelayError())
}

func TestFrameDecodeError(t *testing.T) {
	root := errors.New("unexpected end of JSON input")
	err := &FrameDecodeError{RawData: `{"type":`, Err: root}

	require.Equal(t, "failed to decode frame from channel: unexpected end of JSON input", err.Error())
	require.Equal(t, `{"type":`, err.RawData)
	require.ErrorIs(t, err, root)
}

func TestDecodeError(t *testing.T) {
	_, root := strconv.Atoi("resetting")
	err := &DecodeError{Kind: "int", Value: "resetting", Err: root}

	require.Contains(t, err.Error(), `decode "resetting" as int`)
	require.ErrorIs(t, err, strconv.ErrSyntax)
	require.True(t, err.IsRelayError())
}

func TestWorkerError(t *testing.T) {
	err := &WorkerError{Op: "setColor", Message: "unknown operation"}

	require.Equal(t, "worker rejected setColor: unknown operation", err.Error())
	require.True(t, err.IsRelayError())
}

func TestErrorsAsType(t *testing.T) {
	var err error = &TransportError{Op: "receive", Err: &FrameDecodeError{RawData: "x", Err: errors.New("bad")}}

	frameErr, ok := errors.AsType[*FrameDecodeError](err)
	require.True(t, ok)
	require.Equal(t, "x", frameErr.RawData)

	relayErr, ok := errors.AsType[RelayError](err)
	require.True(t, ok)
	require.True(t, relayErr.IsRelayError())
}
