package app

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	cgrelay "github.com/wagiedev/cgsdk-relay"
)

// runREPL relays one command per input line and prints one result per line.
// It returns when in is exhausted, on quit, or when ctx is cancelled.
func runREPL(ctx context.Context, client cgrelay.Client, in io.Reader, out io.Writer, log *slog.Logger) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lines := make(chan string)
	scanErr := make(chan error, 1)

	// A read blocked on stdin outlives cancel; it ends with the process.
	go func() {
		defer close(lines)

		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}

		scanErr <- scanner.Err()
	}()

	for {
		var (
			line string
			ok   bool
		)

		select {
		case <-ctx.Done():
			return nil
		case line, ok = <-lines:
		}

		if !ok {
			select {
			case err := <-scanErr:
				return err
			default:
				return nil
			}
		}

		line = strings.TrimSpace(line)

		switch line {
		case "":
			continue
		case "quit", "exit":
			return nil
		case "reset":
			client.Reset()
			fmt.Fprintln(out, "ok")
		case "state":
			fmt.Fprintln(out, client.State())
		default:
			text, err := client.Call(ctx, line)
			if err != nil {
				log.Debug("Command failed", "command", line, "error", err)
				fmt.Fprintf(out, "error: %v\n", err)

				continue
			}

			fmt.Fprintln(out, text)
		}
	}
}
