package app

import (
	"errors"
	"fmt"
	"strings"
)

type Command string

const (
	CommandREPL    Command = "repl"
	CommandMCP     Command = "mcp"
	CommandVersion Command = "version"
	CommandHelp    Command = "help"
)

var validCommands = map[Command]struct{}{
	CommandREPL:    {},
	CommandMCP:     {},
	CommandVersion: {},
	CommandHelp:    {},
}

// Parsed holds the command and the flags given on the command line. Empty
// flag values leave the configured value untouched.
type Parsed struct {
	Command      Command
	ConfigPath   string
	WorkerPath   string
	Channel      string
	HealthSocket string
	MetricsAddr  string
	LogLevel     string
	LogFormat    string
	ShowHelp     bool
}

// valueFlags maps each flag that takes a value to its destination.
func (p *Parsed) valueFlags() map[string]*string {
	return map[string]*string{
		"--config":        &p.ConfigPath,
		"--worker":        &p.WorkerPath,
		"--channel":       &p.Channel,
		"--health-socket": &p.HealthSocket,
		"--metrics-addr":  &p.MetricsAddr,
		"--log-level":     &p.LogLevel,
		"--log-format":    &p.LogFormat,
	}
}

func Parse(args []string) (Parsed, error) {
	parsed := Parsed{Command: CommandREPL}
	flags := parsed.valueFlags()

	for i := 0; i < len(args); i++ {
		arg := args[i]

		name, value, hasValue := strings.Cut(arg, "=")
		if dest, ok := flags[name]; ok {
			if !hasValue {
				i++
				if i >= len(args) {
					return Parsed{}, fmt.Errorf("%s requires a value", name)
				}

				value = args[i]
			}

			*dest = value

			continue
		}

		switch arg {
		case "-h", "--help":
			parsed.ShowHelp = true
			parsed.Command = CommandHelp
		case "--version":
			parsed.Command = CommandVersion
		default:
			if strings.HasPrefix(arg, "-") {
				return Parsed{}, fmt.Errorf("unknown flag: %s", arg)
			}

			cmd := Command(arg)
			if _, ok := validCommands[cmd]; !ok {
				return Parsed{}, fmt.Errorf("unknown command: %s", arg)
			}

			if i != len(args)-1 {
				return Parsed{}, fmt.Errorf("unexpected arguments after command %q", arg)
			}

			parsed.Command = cmd
			parsed.ShowHelp = cmd == CommandHelp
		}
	}

	if parsed.LogFormat != "" && parsed.LogFormat != "text" && parsed.LogFormat != "json" {
		return Parsed{}, errors.New("--log-format must be text or json")
	}

	return parsed, nil
}

func HelpText(binaryName string) string {
	return fmt.Sprintf(`Usage:
  %[1]s [flags] [command]

Commands:
  repl      Read commands from stdin, one per line (default)
  mcp       Serve relay operations as MCP tools over stdio
  version   Print version information
  help      Show this help

REPL commands:
  <op> [arg]   Relay an SDK operation, e.g. "setGame CS2"
  reset        Replace the worker process
  state        Print the supervisor state
  quit         Exit

Flags:
  --config PATH          Config file path (default: $XDG_CONFIG_HOME/cgrelay/config.toml)
  --worker PATH          Worker binary (default: next to %[1]s, then $PATH)
  --channel NAME         Channel name or absolute socket path
  --health-socket PATH   Serve gRPC health checks on a unix socket
  --metrics-addr ADDR    Serve Prometheus metrics on ADDR, e.g. 127.0.0.1:9464
  --log-level LEVEL      debug, info, warn or error (default: info)
  --log-format FORMAT    text or json (default: text)
  -h, --help             Show help
  --version              Show version

Environment:
  CGRELAY_CONFIG selects the config file. Any config key can be overridden
  with CGRELAY_<SECTION>_<KEY>, e.g. CGRELAY_TIMEOUTS_CALL=5s.
`, binaryName)
}
