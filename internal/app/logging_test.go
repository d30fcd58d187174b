package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer

	log, err := NewLogger(&buf, "warn", "json")
	require.NoError(t, err)

	log.Info("hidden")
	log.Warn("shown", "component", "supervisor")

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	require.Equal(t, "shown", record["msg"])
	require.Equal(t, "supervisor", record["component"])

	buf.Reset()

	log, err = NewLogger(&buf, "DEBUG", "")
	require.NoError(t, err)

	log.Debug("text record")
	require.Contains(t, buf.String(), "msg=\"text record\"")

	_, err = NewLogger(&buf, "loud", "text")
	require.ErrorContains(t, err, "invalid log level")

	_, err = NewLogger(&buf, "info", "xml")
	require.ErrorContains(t, err, "invalid log format")
}
