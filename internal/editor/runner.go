package editor

import (
	"context"
	"fmt"
	"os"
	"strings"

	"spritefactory/internal/errors"
	"spritefactory/internal/logger"
	"spritefactory/internal/pathconv"
	"spritefactory/internal/runtime"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// LogFile is the name of the invocation log inside a bundle.
const LogFile = "logs.txt"

// ScriptParam is one --script-param argument.
type ScriptParam struct {
	Key   string
	Value string
}

func (p ScriptParam) String() string {
	return p.Key + "=" + p.Value
}

// Runner launches the editor in batch mode and records what happened.
type Runner struct {
	runtime runtime.Runtime
	paths   pathconv.Converter
	log     *logger.Logger
}

// NewRunner creates a Runner. A nil logger discards output.
func NewRunner(rt runtime.Runtime, paths pathconv.Converter, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{runtime: rt, paths: paths, log: log.WithComponent("editor")}
}

// Run executes script with params and writes the log to logPath. The exit
// code is returned as-is; a process that never started reports -1. The log
// is written before any error is returned.
func (r *Runner) Run(ctx context.Context, exe Location, script string, params []ScriptParam, logPath string) (int, error) {
	ctx, span := otel.Tracer("spritefactory/editor").Start(ctx, "editor.run",
		trace.WithAttributes(
			attribute.String("editor.exe", exe.Windows),
			attribute.String("editor.script", script),
		),
	)
	defer span.End()

	winScript, err := r.paths.ToWindows(ctx, script)
	if err != nil {
		span.RecordError(err)
		return -1, err
	}

	argv := BuildArgs(exe, winScript, params)
	log := r.log.FromContext(ctx)
	log.Debug("starting editor", "argv", strings.Join(argv, " "))

	result, waitErr := r.execute(ctx, argv)

	if err := WriteLog(logPath, argv, result.Stdout, result.Stderr); err != nil {
		span.RecordError(err)
		return result.ExitCode, errors.WrapWithCode(err, errors.CodeInternal, "editor.run", "failed to write "+LogFile)
	}

	span.SetAttributes(attribute.Int("exit_code", result.ExitCode))
	if waitErr != nil {
		span.RecordError(waitErr)
		span.SetStatus(codes.Error, waitErr.Error())
		return result.ExitCode, errors.WrapWithCode(waitErr, errors.CodeExecution, "editor.run", "editor did not finish")
	}

	log.Info("editor finished", "exit_code", result.ExitCode)
	return result.ExitCode, nil
}

func (r *Runner) execute(ctx context.Context, argv []string) (runtime.ExitResult, error) {
	handle, err := r.runtime.Start(ctx, runtime.StartOptions{Command: argv})
	if err != nil {
		return runtime.ExitResult{ExitCode: -1, Stderr: []byte(err.Error())}, nil
	}
	return handle.Wait(ctx)
}

// BuildArgs returns the batch-mode argv for the editor.
func BuildArgs(exe Location, winScript string, params []ScriptParam) []string {
	argv := []string{exe.Unix, "-b", "--script", winScript}
	for _, p := range params {
		argv = append(argv, "--script-param", p.String())
	}
	return argv
}

// WriteLog writes the command line followed by the labeled output streams.
func WriteLog(path string, argv []string, stdout, stderr []byte) error {
	content := fmt.Sprintf("Command:\n%s\n\n--- stdout ---\n%s\n--- stderr ---\n%s",
		strings.Join(argv, " "), stdout, stderr)
	return os.WriteFile(path, []byte(content), 0o644)
}
