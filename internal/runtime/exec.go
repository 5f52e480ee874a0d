package runtime

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
)

// ExecRuntime implements the Runtime interface using raw OS processes.
// Output is buffered in full; nothing is streamed or truncated.
type ExecRuntime struct{}

// NewExecRuntime creates a new process-based runtime.
func NewExecRuntime() *ExecRuntime {
	return &ExecRuntime{}
}

type execHandle struct {
	cmd    *exec.Cmd
	stdout bytes.Buffer
	stderr bytes.Buffer

	done    chan struct{}
	waitErr error
}

// Start implements Runtime.Start using os/exec.
func (e *ExecRuntime) Start(ctx context.Context, opts StartOptions) (Handle, error) {
	if len(opts.Command) == 0 {
		return nil, fmt.Errorf("command is required")
	}

	h := &execHandle{done: make(chan struct{})}

	cmd := exec.Command(opts.Command[0], opts.Command[1:]...)
	cmd.Dir = opts.Dir
	cmd.Env = mergeEnv(os.Environ(), opts.Env)
	cmd.Stdout = &h.stdout
	cmd.Stderr = &h.stderr
	configureProcess(cmd)
	h.cmd = cmd

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", opts.Command[0], err)
	}

	go func() {
		h.waitErr = cmd.Wait()
		close(h.done)
	}()

	return h, nil
}

// Wait blocks until the process exits. A cancelled context kills the process
// group and reports exit code -1.
func (h *execHandle) Wait(ctx context.Context) (ExitResult, error) {
	select {
	case <-ctx.Done():
		terminateProcess(h.cmd)
		<-h.done
		return h.result(-1), ctx.Err()
	case <-h.done:
	}

	if h.waitErr != nil {
		var exitErr *exec.ExitError
		if errors.As(h.waitErr, &exitErr) {
			return h.result(exitErr.ExitCode()), nil
		}
		return h.result(-1), h.waitErr
	}
	return h.result(0), nil
}

func (h *execHandle) result(code int) ExitResult {
	return ExitResult{
		ExitCode: code,
		Stdout:   h.stdout.Bytes(),
		Stderr:   h.stderr.Bytes(),
	}
}

func mergeEnv(base []string, extra map[string]string) []string {
	if len(extra) == 0 {
		return base
	}
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	env := append([]string{}, base...)
	for _, k := range keys {
		env = append(env, k+"="+extra[k])
	}
	return env
}
