package runtime

import (
	"context"
	"strings"
	"testing"
	"time"

	"spritefactory/internal/testutil"
)

func TestStart_Success(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{Command: []string{"echo", "hello"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if result.ExitCode != 0 {
		t.Errorf("expected exit code 0, got %d", result.ExitCode)
	}
	if strings.TrimSpace(string(result.Stdout)) != "hello" {
		t.Errorf("expected stdout 'hello', got %q", result.Stdout)
	}
}

func TestStart_EmptyCommand(t *testing.T) {
	rt := NewExecRuntime()

	_, err := rt.Start(context.Background(), StartOptions{Command: []string{}})
	if err == nil {
		t.Fatal("expected error for empty command")
	}
	if !strings.Contains(err.Error(), "command is required") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestStart_CommandNotFound(t *testing.T) {
	rt := NewExecRuntime()

	_, err := rt.Start(context.Background(), StartOptions{Command: []string{"nonexistent-binary-xyz"}})
	if err == nil {
		t.Fatal("expected error for non-existent command")
	}
}

func TestWait_ExitCodeNonZero(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{Command: []string{"sh", "-c", "exit 2"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}
	if result.ExitCode != 2 {
		t.Errorf("expected exit code 2, got %d", result.ExitCode)
	}
}

func TestWait_CapturesStdoutAndStderrSeparately(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{
		Command: []string{"sh", "-c", "echo out-line; echo err-line >&2"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	if strings.TrimSpace(string(result.Stdout)) != "out-line" {
		t.Errorf("unexpected stdout: %q", result.Stdout)
	}
	if strings.TrimSpace(string(result.Stderr)) != "err-line" {
		t.Errorf("unexpected stderr: %q", result.Stderr)
	}
}

func TestWait_LargeOutputNotTruncated(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{
		Command: []string{"sh", "-c", "i=0; while [ $i -lt 5000 ]; do echo line-$i; i=$((i+1)); done"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := handle.Wait(ctx)
	if err != nil {
		t.Fatalf("Wait failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(result.Stdout)), "\n")
	if len(lines) != 5000 || lines[4999] != "line-4999" {
		t.Errorf("expected 5000 lines ending in line-4999, got %d", len(lines))
	}
}

func TestWait_ContextCancellation(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	handle, err := rt.Start(ctx, StartOptions{Command: []string{"sleep", "10"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, err := handle.Wait(ctx)
	if err != context.DeadlineExceeded {
		t.Errorf("expected DeadlineExceeded, got %v", err)
	}
	if result.ExitCode != -1 {
		t.Errorf("expected exit code -1 on timeout, got %d", result.ExitCode)
	}
}

func TestWait_CancelKillsProcessGroup(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	// The child sleep keeps the pipes open unless the whole group is killed.
	handle, err := rt.Start(context.Background(), StartOptions{Command: []string{"sh", "-c", "sleep 30 & wait"}})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	done := make(chan ExitResult, 1)
	go func() {
		result, _ := handle.Wait(ctx)
		done <- result
	}()

	select {
	case result := <-done:
		if result.ExitCode != -1 {
			t.Errorf("expected exit code -1, got %d", result.ExitCode)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Wait did not return after cancellation")
	}
}

func TestStart_PassesEnvironment(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{
		Command: []string{"sh", "-c", "echo $SPRITEFACTORY_TEST_VAR"},
		Env:     map[string]string{"SPRITEFACTORY_TEST_VAR": "custom-value"},
	})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, _ := handle.Wait(ctx)
	if got := strings.TrimSpace(string(result.Stdout)); got != "custom-value" {
		t.Errorf("expected 'custom-value', got: '%s'", got)
	}
}

func TestStart_WorkingDirectory(t *testing.T) {
	testutil.RequireUnix(t)
	rt := NewExecRuntime()
	dir := t.TempDir()

	ctx := context.Background()
	handle, err := rt.Start(ctx, StartOptions{Command: []string{"pwd", "-P"}, Dir: dir})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	result, _ := handle.Wait(ctx)
	if !strings.HasSuffix(strings.TrimSpace(string(result.Stdout)), strings.TrimPrefix(dir, "/private")) {
		t.Errorf("expected pwd under %s, got %q", dir, result.Stdout)
	}
}
