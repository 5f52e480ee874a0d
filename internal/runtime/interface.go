// Package runtime provides the Runtime interface for launching the external editor.
package runtime

import (
	"context"
)

// Runtime defines the interface for executing an external process.
type Runtime interface {
	// Start begins execution and returns a handle.
	Start(ctx context.Context, opts StartOptions) (Handle, error)
}

// StartOptions contains the parameters for starting a process.
type StartOptions struct {
	// Command is the argv; Command[0] is the binary.
	Command []string
	// Env is added on top of the current process environment.
	Env map[string]string
	// Dir is the working directory. Empty means the current one.
	Dir string
}

// ExitResult holds the exit status and the full captured output.
type ExitResult struct {
	ExitCode int
	Stdout   []byte
	Stderr   []byte
}

// Handle represents a running process.
type Handle interface {
	// Wait blocks until the process completes and returns its result.
	// Cancelling ctx kills the process group.
	Wait(ctx context.Context) (ExitResult, error)
}
