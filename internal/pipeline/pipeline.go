// Package pipeline chains image generation to a factory run and adds the
// source image and generation parameters to the resulting bundle.
package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"spritefactory/internal/artifact"
	"spritefactory/internal/errors"
	"spritefactory/internal/factory"
	"spritefactory/internal/generation"
	"spritefactory/internal/job"
	"spritefactory/internal/logger"
)

// Generator produces an image from a prompt.
type Generator interface {
	Generate(ctx context.Context, req generation.Request) (generation.Result, error)
}

// JobRunner runs an unvalidated job description through the factory.
type JobRunner interface {
	Run(ctx context.Context, raw any) (*factory.Result, error)
}

// TilesetOptions configures a tileset flow. Zero sizes take the defaults;
// Seed is sent as-is, so callers wanting a random seed pass generation.RandomSeed.
type TilesetOptions struct {
	Prompt      string
	JobID       string
	Width       int
	Height      int
	TileSize    int
	PaletteSize int
	Seed        int64
}

// SpriteOptions configures a sprite flow. Zero sizes take the defaults;
// Seed is sent as-is.
type SpriteOptions struct {
	Prompt       string
	JobID        string
	SDSize       int
	TargetWidth  int
	TargetHeight int
	PaletteSize  int
	Walkcycle    bool
	Seed         int64
}

// Pipeline runs one generated job at a time.
type Pipeline struct {
	gen     Generator
	factory JobRunner
	tempDir string
	now     func() time.Time
	log     *logger.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithClock overrides time.Now for generated job ids.
func WithClock(now func() time.Time) Option {
	return func(p *Pipeline) { p.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *logger.Logger) Option {
	return func(p *Pipeline) { p.log = l }
}

// New creates a Pipeline writing scratch images under tempDir.
func New(gen Generator, runner JobRunner, tempDir string, opts ...Option) *Pipeline {
	p := &Pipeline{
		gen:     gen,
		factory: runner,
		tempDir: tempDir,
		now:     time.Now,
		log:     logger.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.WithComponent("pipeline")
	return p
}

// flow is what differs between the tileset and sprite runs.
type flow struct {
	kind     string
	jobID    string
	prompt   string
	request  generation.Request
	task     job.Task
	basename string
	params   map[string]any
	info     func(seed int64) map[string]any
}

// Tileset generates a scene and slices it into a tileset. It returns the
// bundle directory.
func (p *Pipeline) Tileset(ctx context.Context, opts TilesetOptions) (string, error) {
	width := orDefault(opts.Width, 512)
	height := orDefault(opts.Height, 512)
	tile := orDefault(opts.TileSize, 16)
	palette := orDefault(opts.PaletteSize, 32)

	return p.run(ctx, flow{
		kind:     "tileset",
		jobID:    opts.JobID,
		prompt:   opts.Prompt,
		request:  generation.Request{Prompt: opts.Prompt, Width: width, Height: height, Seed: opts.Seed},
		task:     job.TaskSliceTileset,
		basename: "tileset",
		params: map[string]any{
			"tile_width":   tile,
			"tile_height":  tile,
			"palette_size": palette,
			"remove_dupes": true,
		},
		info: func(seed int64) map[string]any {
			return map[string]any{
				"prompt":       opts.Prompt,
				"seed":         seed,
				"width":        width,
				"height":       height,
				"tile_size":    tile,
				"palette_size": palette,
			}
		},
	})
}

// Sprite generates a square image and turns it into a game sprite. It
// returns the bundle directory.
func (p *Pipeline) Sprite(ctx context.Context, opts SpriteOptions) (string, error) {
	sdSize := orDefault(opts.SDSize, 512)
	width := orDefault(opts.TargetWidth, 32)
	height := orDefault(opts.TargetHeight, 32)
	palette := orDefault(opts.PaletteSize, 16)

	return p.run(ctx, flow{
		kind:     "sprite",
		jobID:    opts.JobID,
		prompt:   opts.Prompt,
		request:  generation.Request{Prompt: opts.Prompt, Width: sdSize, Height: sdSize, Seed: opts.Seed},
		task:     job.TaskProcessSprite,
		basename: "sprite",
		params: map[string]any{
			"target_width":  width,
			"target_height": height,
			"palette_size":  palette,
			"gen_walkcycle": opts.Walkcycle,
		},
		info: func(seed int64) map[string]any {
			return map[string]any{
				"prompt":        opts.Prompt,
				"seed":          seed,
				"sd_size":       sdSize,
				"target_size":   []int{width, height},
				"palette_size":  palette,
				"gen_walkcycle": opts.Walkcycle,
			}
		},
	})
}

func (p *Pipeline) run(ctx context.Context, f flow) (string, error) {
	if f.jobID == "" {
		f.jobID = JobID(f.kind, p.now())
	}
	// The id names the temp source file, so it is checked before anything runs.
	if err := job.ValidateJobID(f.jobID); err != nil {
		return "", err
	}

	ctx = logger.ContextWithJobID(ctx, f.jobID)
	ctx, span := otel.Tracer("spritefactory/pipeline").Start(ctx, "pipeline."+f.kind,
		trace.WithAttributes(
			attribute.String("job.id", f.jobID),
			attribute.String("job.task", string(f.task)),
		),
	)
	defer span.End()

	dir, err := p.execute(ctx, f)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return "", err
	}
	return dir, nil
}

func (p *Pipeline) execute(ctx context.Context, f flow) (string, error) {
	log := p.log.FromContext(ctx)

	if err := os.MkdirAll(p.tempDir, 0o755); err != nil {
		return "", errors.Wrap(err, "pipeline."+f.kind, "failed to create temp directory")
	}

	generated, err := p.gen.Generate(ctx, f.request)
	if err != nil {
		return "", err
	}

	source := filepath.Join(p.tempDir, f.jobID+"_source.png")
	if err := os.WriteFile(source, generated.Image, 0o644); err != nil {
		return "", errors.Wrap(err, "pipeline."+f.kind, "failed to save generated image")
	}
	log.Info("saved source", "path", source, "seed", generated.Seed)

	params := map[string]any{"input_file": source}
	for k, v := range f.params {
		params[k] = v
	}
	res, err := p.factory.Run(ctx, map[string]any{
		"job_id":          f.jobID,
		"task":            string(f.task),
		"output_basename": f.basename,
		"params":          params,
	})
	if err != nil {
		return "", err
	}

	bundle := &artifact.Bundle{Dir: res.Dir}
	if err := bundle.CopyIn(source, artifact.SourceFile); err != nil {
		return "", err
	}
	if err := bundle.WriteJSON(artifact.GenerationInfoFile, f.info(generated.Seed)); err != nil {
		return "", err
	}

	if err := os.Remove(source); err != nil {
		log.Warn("failed to remove temp source", "path", source, "error", err)
	}

	log.Info(f.kind+" generated", "dir", res.Dir)
	return res.Dir, nil
}

// JobID returns sd_<kind>_YYYYMMDD_HHMMSS for t.
func JobID(kind string, t time.Time) string {
	return fmt.Sprintf("sd_%s_%s", kind, t.Format("20060102_150405"))
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
