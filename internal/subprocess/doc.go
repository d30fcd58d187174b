// Package subprocess manages the worker child process.
//
// A Process is the supervisor's handle to one worker instance: it spawns the
// binary, forwards the worker's output to the logger, records how it exited,
// and kills it on demand. The package also locates the worker binary.
package subprocess
