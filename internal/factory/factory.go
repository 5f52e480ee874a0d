// Package factory runs one job end to end: validate, prepare the bundle,
// dispatch, locate the editor, run it and check the result.
package factory

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"spritefactory/internal/artifact"
	"spritefactory/internal/catalog"
	"spritefactory/internal/command"
	"spritefactory/internal/editor"
	"spritefactory/internal/errors"
	"spritefactory/internal/job"
	"spritefactory/internal/logger"
	"spritefactory/internal/observability"
	"spritefactory/internal/pathconv"
	"spritefactory/internal/runtime"
)

// Config holds the directories and editor override for a factory.
type Config struct {
	ArtifactsDir string
	ScriptsDir   string
	AsepriteExe  string
	// Candidates replaces the well-known editor install locations when non-nil.
	Candidates []string
}

// Result describes a successful run.
type Result struct {
	JobID    string
	Task     job.Task
	Dir      string
	ExitCode int
}

// Factory wires the stages together. It holds no per-job state.
type Factory struct {
	cfg        Config
	dispatcher *command.Dispatcher
	locator    *editor.Locator
	runner     *editor.Runner

	catalog catalog.Recorder
	metrics *observability.Metrics
	log     *logger.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

// Option configures optional collaborators.
type Option func(*Factory)

// WithCatalog records every run that reached the bundle stage.
func WithCatalog(c catalog.Recorder) Option {
	return func(f *Factory) { f.catalog = c }
}

// WithMetrics counts runs by task and outcome.
func WithMetrics(m *observability.Metrics) Option {
	return func(f *Factory) { f.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(f *Factory) { f.log = l }
}

// WithClock overrides time.Now for catalog timestamps.
func WithClock(now func() time.Time) Option {
	return func(f *Factory) { f.now = now }
}

// New creates a Factory.
func New(cfg Config, paths pathconv.Converter, rt runtime.Runtime, opts ...Option) *Factory {
	f := &Factory{
		cfg:    cfg,
		log:    logger.Nop(),
		tracer: otel.Tracer("spritefactory/factory"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.log = f.log.WithComponent("factory")

	f.dispatcher = command.NewDispatcher(cfg.ScriptsDir, paths)
	f.locator = editor.NewLocator(paths, cfg.AsepriteExe)
	f.locator.Candidates = cfg.Candidates
	f.runner = editor.NewRunner(rt, paths, f.log)
	return f
}

// RunFile loads the job spec at path and runs it.
func (f *Factory) RunFile(ctx context.Context, path string) (*Result, error) {
	spec, err := job.Load(path)
	if err != nil {
		f.rejected(ctx, err)
		return nil, err
	}
	return f.run(ctx, spec)
}

// Run validates raw and runs it. Nothing touches the filesystem until raw
// has passed validation.
func (f *Factory) Run(ctx context.Context, raw any) (*Result, error) {
	spec, err := job.Validate(raw)
	if err != nil {
		f.rejected(ctx, err)
		return nil, err
	}
	return f.run(ctx, spec)
}

// rejected counts a spec that never reached a bundle.
func (f *Factory) rejected(ctx context.Context, err error) {
	f.metrics.RecordJob(ctx, "invalid", observability.OutcomeFailure, 0)

	attrs := []any{"error", err}
	if field, ok := errors.GetFields(err)["field"]; ok {
		attrs = append(attrs, "field", field)
	}
	f.log.FromContext(ctx).Warn("job spec rejected", attrs...)
}

func (f *Factory) run(ctx context.Context, spec job.Spec) (*Result, error) {
	ctx = logger.ContextWithJobID(ctx, spec.JobID)
	ctx, span := f.tracer.Start(ctx, "factory.run",
		trace.WithAttributes(
			attribute.String("job.id", spec.JobID),
			attribute.String("job.task", string(spec.Task)),
		),
	)
	defer span.End()

	log := f.log.FromContext(ctx)
	started := f.now()
	log.Info("job started", "task", spec.Task)

	bundle := artifact.New(f.cfg.ArtifactsDir, spec.JobID)
	exitCode, err := f.execute(ctx, spec, bundle)

	outcome := observability.OutcomeSuccess
	if err != nil {
		outcome = observability.OutcomeFailure
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("job failed", "error", err)
	} else {
		log.Info("job finished", "dir", bundle.Dir)
	}
	f.metrics.RecordJob(ctx, string(spec.Task), outcome, f.now().Sub(started))
	f.record(ctx, spec, bundle, exitCode, err, started)

	if err != nil {
		return nil, err
	}
	return &Result{JobID: spec.JobID, Task: spec.Task, Dir: bundle.Dir, ExitCode: *exitCode}, nil
}

// execute returns the editor's exit code, or nil when it never ran.
func (f *Factory) execute(ctx context.Context, spec job.Spec, bundle *artifact.Bundle) (*int, error) {
	if err := f.stage(ctx, "ensure_bundle", func(context.Context) error {
		return bundle.Ensure()
	}); err != nil {
		return nil, err
	}

	var cmd command.Command
	if err := f.stage(ctx, "dispatch", func(context.Context) error {
		var err error
		cmd, err = f.dispatcher.Dispatch(command.Context{Spec: spec, Dir: bundle.Dir})
		if err != nil {
			return err
		}
		return bundle.WriteMeta(cmd.Meta())
	}); err != nil {
		return nil, err
	}

	var exe editor.Location
	if err := f.stage(ctx, "locate", func(ctx context.Context) error {
		var err error
		exe, err = f.locator.Locate(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	var params []editor.ScriptParam
	if err := f.stage(ctx, "script_params", func(ctx context.Context) error {
		var err error
		params, err = cmd.ScriptParams(ctx)
		return err
	}); err != nil {
		return nil, err
	}

	code, err := f.runner.Run(ctx, exe, cmd.Script(), params, bundle.Path(editor.LogFile))
	if err != nil {
		return &code, err
	}
	if code != 0 {
		return &code, errors.Execution("Aseprite exited with code %d. See %s for details.", code, editor.LogFile)
	}
	return &code, nil
}

func (f *Factory) stage(ctx context.Context, name string, fn func(ctx context.Context) error) error {
	ctx, span := f.tracer.Start(ctx, "factory."+name)
	defer span.End()

	if err := fn(ctx); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return err
	}
	return nil
}

// record writes the catalog entry. Failures are logged, never returned.
func (f *Factory) record(ctx context.Context, spec job.Spec, bundle *artifact.Bundle, exitCode *int, runErr error, started time.Time) {
	if f.catalog == nil {
		return
	}

	files, err := bundle.Files()
	if err != nil {
		// The bundle was never created; nothing to index.
		return
	}

	entry := catalog.Entry{
		JobID:       spec.JobID,
		Task:        string(spec.Task),
		ArtifactDir: bundle.Dir,
		Files:       files,
		ExitCode:    exitCode,
		Status:      catalog.StatusSucceeded,
		StartedAt:   started,
		FinishedAt:  f.now(),
	}
	if runErr != nil {
		entry.Status = catalog.StatusFailed
		entry.Error = runErr.Error()
	}

	if err := f.catalog.Record(ctx, entry); err != nil {
		f.log.FromContext(ctx).Warn("catalog record failed", "error", err)
	}
}
