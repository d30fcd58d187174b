package channel

import (
	"context"
	stderrors "errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

const (
	// DefaultName is the channel name shared by supervisor and worker.
	DefaultName = "CgPipe"

	// EnvChannel overrides the channel name or path on both sides.
	EnvChannel = "CGRELAY_CHANNEL"

	// probeTimeout bounds the liveness probe of an existing socket file.
	probeTimeout = 200 * time.Millisecond

	// dialRetryInterval is the pause between connect attempts while the
	// supervisor's endpoint is not up yet.
	dialRetryInterval = 25 * time.Millisecond
)

// Path resolves a channel name to a socket path. Names containing a path
// separator are used as-is; bare names live in $XDG_RUNTIME_DIR, falling back
// to the system temp directory.
func Path(name string) string {
	if name == "" {
		name = DefaultName
	}

	if strings.ContainsRune(name, filepath.Separator) || strings.ContainsRune(name, '/') {
		return name
	}

	dir := strings.TrimSpace(os.Getenv("XDG_RUNTIME_DIR"))
	if dir == "" {
		dir = os.TempDir()
	}

	return filepath.Join(dir, name+".sock")
}

// FromEnv returns the channel path a worker should connect to.
func FromEnv() string {
	return Path(strings.TrimSpace(os.Getenv(EnvChannel)))
}

// ListenUnix creates a unix socket at path, recovering a stale socket file
// left by a crashed owner. A socket with a live owner yields ErrChannelInUse.
func ListenUnix(ctx context.Context, path string) (*net.UnixListener, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("ensure channel dir: %w", err)
	}

	addr := &net.UnixAddr{Name: path, Net: "unix"}

	for attempt := 0; attempt < 2; attempt++ {
		listener, err := net.ListenUnix("unix", addr)
		if err == nil {
			_ = os.Chmod(path, 0o600)

			return listener, nil
		}

		if !isAddrInUse(err) {
			return nil, fmt.Errorf("listen unix %s: %w", path, err)
		}

		if probe(ctx, path) {
			return nil, fmt.Errorf("%w: %s", errors.ErrChannelInUse, path)
		}

		if removeErr := os.Remove(path); removeErr != nil && !stderrors.Is(removeErr, os.ErrNotExist) {
			return nil, fmt.Errorf("remove stale socket %s: %w", path, removeErr)
		}
	}

	return nil, fmt.Errorf("failed to acquire socket %s", path)
}

// Dial connects to the supervisor's endpoint at path, retrying while the
// socket is missing or refusing connections until ctx ends.
func Dial(ctx context.Context, path string) (*Session, error) {
	var dialer net.Dialer

	for {
		conn, err := dialer.DialContext(ctx, "unix", path)
		if err == nil {
			return NewSession(conn), nil
		}

		if ctx.Err() != nil {
			return nil, fmt.Errorf("dial channel %s: %w", path, ctx.Err())
		}

		if !isSocketMissing(err) && !isConnectionRefused(err) {
			return nil, fmt.Errorf("dial channel %s: %w", path, err)
		}

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("dial channel %s: %w", path, ctx.Err())
		case <-time.After(dialRetryInterval):
		}
	}
}

// probe reports whether something is accepting connections on path.
func probe(ctx context.Context, path string) bool {
	dialer := net.Dialer{Timeout: probeTimeout}

	conn, err := dialer.DialContext(ctx, "unix", path)
	if err != nil {
		return false
	}

	_ = conn.Close()

	return true
}

// isSocketMissing reports absent-socket failures.
func isSocketMissing(err error) bool {
	return stderrors.Is(err, os.ErrNotExist) || stderrors.Is(err, syscall.ENOENT)
}

// isConnectionRefused reports no-listener failures.
func isConnectionRefused(err error) bool {
	return stderrors.Is(err, syscall.ECONNREFUSED)
}

func isAddrInUse(err error) bool {
	return stderrors.Is(err, syscall.EADDRINUSE) || strings.Contains(err.Error(), "address already in use")
}
