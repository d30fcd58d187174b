package subprocess

import (
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	"github.com/wagiedev/cgsdk-relay/internal/errors"
)

// WorkerBinaryName is the default file name of the worker executable.
const WorkerBinaryName = "cgsdk-worker"

// Discoverer locates the worker binary.
type Discoverer struct {
	// WorkerPath is an explicit path that skips the search.
	WorkerPath string

	// Logger is an optional logger for discovery operations.
	Logger *slog.Logger
}

// Discover returns the path of the worker binary. The search order is:
//  1. The explicit WorkerPath (if set, it is the only candidate)
//  2. The directory of the running executable
//  3. The system PATH
func (d *Discoverer) Discover() (string, error) {
	log := d.Logger
	if log == nil {
		log = slog.New(slog.DiscardHandler)
	}

	if d.WorkerPath != "" {
		if isExecutableFile(d.WorkerPath) {
			return d.WorkerPath, nil
		}

		log.Debug("Explicit worker path not usable", "worker_path", d.WorkerPath)

		return "", &errors.WorkerNotFoundError{SearchedPaths: []string{d.WorkerPath}}
	}

	name := WorkerBinaryName
	if runtime.GOOS == "windows" {
		name += ".exe"
	}

	searchedPaths := make([]string, 0, 2)

	if self, err := os.Executable(); err == nil {
		candidate := filepath.Join(filepath.Dir(self), name)
		searchedPaths = append(searchedPaths, candidate)

		if isExecutableFile(candidate) {
			log.Debug("Found worker next to executable", "path", candidate)

			return candidate, nil
		}
	}

	searchedPaths = append(searchedPaths, "$PATH")

	if path, err := exec.LookPath(name); err == nil {
		log.Debug("Found worker in PATH", "path", path)

		return path, nil
	}

	log.Warn("Worker binary not found", "searched_paths", searchedPaths)

	return "", &errors.WorkerNotFoundError{SearchedPaths: searchedPaths}
}

func isExecutableFile(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}

	if runtime.GOOS == "windows" {
		return true
	}

	return info.Mode()&0o111 != 0
}
