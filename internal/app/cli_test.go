package app

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		args    []string
		want    Parsed
		wantErr string
	}{
		{name: "default repl", args: nil, want: Parsed{Command: CommandREPL}},
		{name: "mcp", args: []string{"mcp"}, want: Parsed{Command: CommandMCP}},
		{name: "help flag", args: []string{"--help"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "help command", args: []string{"help"}, want: Parsed{Command: CommandHelp, ShowHelp: true}},
		{name: "version", args: []string{"--version"}, want: Parsed{Command: CommandVersion}},
		{
			name: "flags with separate values",
			args: []string{"--worker", "/opt/w", "--channel", "cg", "--log-level", "debug", "repl"},
			want: Parsed{Command: CommandREPL, WorkerPath: "/opt/w", Channel: "cg", LogLevel: "debug"},
		},
		{
			name: "flags with equals",
			args: []string{"--config=/etc/cg.toml", "--metrics-addr=:9464", "--health-socket=/tmp/h.sock", "--log-format=json", "mcp"},
			want: Parsed{
				Command:      CommandMCP,
				ConfigPath:   "/etc/cg.toml",
				MetricsAddr:  ":9464",
				HealthSocket: "/tmp/h.sock",
				LogFormat:    "json",
			},
		},
		{name: "missing value", args: []string{"--worker"}, wantErr: "--worker requires a value"},
		{name: "unknown flag", args: []string{"--nope"}, wantErr: "unknown flag"},
		{name: "unknown command", args: []string{"serve"}, wantErr: "unknown command"},
		{name: "trailing args", args: []string{"repl", "extra"}, wantErr: "unexpected arguments"},
		{name: "bad log format", args: []string{"--log-format", "xml"}, wantErr: "--log-format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.args)
			if tt.wantErr != "" {
				require.ErrorContains(t, err, tt.wantErr)

				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestHelpText(t *testing.T) {
	text := HelpText("cgrelay")

	for _, want := range []string{"repl", "mcp", "--worker PATH", "--health-socket", "CGRELAY_CONFIG"} {
		require.Contains(t, text, want)
	}
}
