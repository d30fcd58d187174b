package subprocess

import (
	"bufio"
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

const (
	// maxScanTokenSize is the maximum buffer size for reading worker output lines.
	maxScanTokenSize = 64 * 1024
	// maxStderrBufferSize caps the stderr kept for error reporting.
	// Lines beyond the cap are still logged.
	maxStderrBufferSize = 64 * 1024
)

// Process is the supervisor-owned handle to one worker process.
type Process struct {
	log  *slog.Logger
	path string
	args []string
	env  []string

	mu      sync.Mutex
	cmd     *exec.Cmd
	killed  bool
	done    chan struct{}
	waitErr error

	stderrMu  sync.Mutex
	stderrBuf strings.Builder
}

// NewProcess creates a handle for the worker binary at path. The worker
// inherits the host environment plus env ("KEY=value" entries).
func NewProcess(log *slog.Logger, path string, env []string, args ...string) *Process {
	return &Process{
		log:  log.With("component", "worker_process"),
		path: path,
		args: args,
		env:  env,
		done: make(chan struct{}),
	}
}

// Start spawns the worker process. Output on stdout and stderr is forwarded
// line by line to the logger.
func (p *Process) Start(_ context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd != nil {
		return fmt.Errorf("worker process already started")
	}

	//nolint:gosec // G204: launching the configured worker binary is the purpose of this type
	cmd := exec.Command(p.path, p.args...)
	cmd.Env = append(os.Environ(), p.env...)

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return &errors.WorkerConnectionError{Err: fmt.Errorf("stdout pipe: %w", err)}
	}

	stderr, err := cmd.StderrPipe()
	if err != nil {
		return &errors.WorkerConnectionError{Err: fmt.Errorf("stderr pipe: %w", err)}
	}

	if err := cmd.Start(); err != nil {
		p.log.Error("Failed to start worker process", "path", p.path, "error", err)

		return &errors.WorkerConnectionError{Err: fmt.Errorf("start process: %w", err)}
	}

	p.cmd = cmd
	p.log = p.log.With("pid", cmd.Process.Pid)
	p.log.Info("Started worker process", "path", p.path)

	var pipes sync.WaitGroup

	pipes.Go(func() { p.forward(stdout, false) })
	pipes.Go(func() { p.forward(stderr, true) })

	go func() {
		// Pipes must be drained before Wait.
		// See: https://pkg.go.dev/os/exec#Cmd.StdoutPipe
		pipes.Wait()

		err := cmd.Wait()

		p.mu.Lock()
		p.waitErr = err
		p.mu.Unlock()

		close(p.done)
	}()

	return nil
}

// forward logs each line the worker writes.
func (p *Process) forward(r io.Reader, isStderr bool) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 4096), maxScanTokenSize)

	for scanner.Scan() {
		line := scanner.Text()

		if isStderr {
			p.stderrMu.Lock()

			if p.stderrBuf.Len() < maxStderrBufferSize {
				if p.stderrBuf.Len() > 0 {
					p.stderrBuf.WriteString("\n")
				}

				p.stderrBuf.WriteString(line)
			}

			p.stderrMu.Unlock()
		}

		p.log.Debug("Worker output", "line", line, "stderr", isStderr)
	}

	if err := scanner.Err(); err != nil {
		p.log.Debug("Worker output scanner error", "error", err)
	}
}

// Pid returns the worker's process id, or 0 before Start.
func (p *Process) Pid() int {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.cmd == nil || p.cmd.Process == nil {
		return 0
	}

	return p.cmd.Process.Pid
}

// Done returns a channel closed once the process has exited and been reaped.
func (p *Process) Done() <-chan struct{} {
	return p.done
}

// Err returns why the process exited. It is nil while the process runs,
// after a clean exit, and after Kill.
func (p *Process) Err() error {
	select {
	case <-p.done:
	default:
		return nil
	}

	p.mu.Lock()
	killed := p.killed
	waitErr := p.waitErr
	p.mu.Unlock()

	if killed || waitErr == nil {
		return nil
	}

	exitCode := -1
	if exitErr, ok := stderrors.AsType[*exec.ExitError](waitErr); ok {
		exitCode = exitErr.ExitCode()
	}

	p.stderrMu.Lock()
	stderr := strings.TrimSpace(p.stderrBuf.String())
	p.stderrMu.Unlock()

	return &errors.ProcessError{ExitCode: exitCode, Stderr: stderr, Err: waitErr}
}

// Kill forcibly terminates the worker and waits until it is reaped.
// It's safe to call Kill multiple times or on an exited process.
func (p *Process) Kill() error {
	p.mu.Lock()
	cmd := p.cmd
	p.killed = true
	p.mu.Unlock()

	if cmd == nil || cmd.Process == nil {
		return nil
	}

	select {
	case <-p.done:
		return nil
	default:
	}

	p.log.Debug("Killing worker process")

	if err := cmd.Process.Kill(); err != nil && !stderrors.Is(err, os.ErrProcessDone) {
		return fmt.Errorf("kill worker process (pid %d): %w", cmd.Process.Pid, err)
	}

	<-p.done

	return nil
}
