package cmd

import (
	"context"

	"github.com/google/uuid"
	"github.com/spf13/viper"

	"spritefactory/internal/catalog"
	"spritefactory/internal/catalog/postgres"
	"spritefactory/internal/config"
	"spritefactory/internal/errors"
	"spritefactory/internal/factory"
	"spritefactory/internal/generation"
	"spritefactory/internal/logger"
	"spritefactory/internal/observability"
	"spritefactory/internal/pathconv"
	"spritefactory/internal/pipeline"
	"spritefactory/internal/runtime"
)

// catalogStore is the part of the asset catalog the CLI uses.
type catalogStore interface {
	catalog.Recorder
	Get(ctx context.Context, jobID string) (*catalog.Entry, error)
	Close() error
}

// openCatalog connects to the catalog database. Tests replace it.
var openCatalog = func(ctx context.Context, dsn string) (catalogStore, error) {
	store, err := postgres.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return store, nil
}

// app holds everything one invocation needs. close must run before exit.
type app struct {
	cfg     *config.Config
	log     *logger.Logger
	metrics *observability.Metrics
	catalog catalogStore

	shutdownTracer func(context.Context) error
}

// newApp loads configuration and starts the ambient services. The returned
// context carries the run id.
func newApp(ctx context.Context) (*app, context.Context, error) {
	cfg, err := config.FromViper(viper.GetViper(), configPath())
	if err != nil {
		return nil, ctx, err
	}

	runID := uuid.NewString()
	log := logger.New(logger.Config{Level: cfg.LogLevel, Format: cfg.LogFormat}).WithRunID(runID)
	ctx = logger.ContextWithRunID(ctx, runID)

	shutdownTracer, err := observability.InitTracer(ctx, observability.TracingConfig{
		ServiceName: "spritefactory",
		Endpoint:    cfg.OTELEndpoint,
		RunID:       runID,
	})
	if err != nil {
		return nil, ctx, err
	}

	a := &app{cfg: cfg, log: log, shutdownTracer: shutdownTracer}

	if cfg.MetricsFile != "" {
		if a.metrics, err = observability.InitMetrics(); err != nil {
			a.close(ctx)
			return nil, ctx, err
		}
	}
	return a, ctx, nil
}

// factory builds the job runner, connecting the catalog when configured.
func (a *app) factory(ctx context.Context) *factory.Factory {
	opts := []factory.Option{
		factory.WithLogger(a.log),
		factory.WithMetrics(a.metrics),
	}

	if a.cfg.CatalogDSN != "" {
		store, err := a.openCatalog(ctx)
		if err != nil {
			a.log.Warn("catalog unavailable, continuing without it", "error", err)
		} else {
			opts = append(opts, factory.WithCatalog(store))
		}
	}

	return factory.New(factory.Config{
		ArtifactsDir: a.cfg.ArtifactsDir,
		ScriptsDir:   a.cfg.ScriptsDir,
		AsepriteExe:  a.cfg.AsepriteExe,
	}, pathconv.New(a.cfg.PathTool), runtime.NewExecRuntime(), opts...)
}

// openCatalog connects once per invocation; close releases it.
func (a *app) openCatalog(ctx context.Context) (catalogStore, error) {
	if a.catalog != nil {
		return a.catalog, nil
	}
	if a.cfg.CatalogDSN == "" {
		return nil, errors.Config("catalog_dsn is not set")
	}
	store, err := openCatalog(ctx, a.cfg.CatalogDSN)
	if err != nil {
		return nil, err
	}
	a.catalog = store
	return store, nil
}

func (a *app) generator() *generation.Client {
	return generation.New(generation.Config{
		BaseURL:           a.cfg.SDAPIURL,
		GenerationTimeout: a.cfg.GenerationTimeout,
		StatusTimeout:     a.cfg.StatusTimeout,
		Metrics:           a.metrics,
		Logger:            a.log,
	})
}

func (a *app) pipeline(ctx context.Context) *pipeline.Pipeline {
	return pipeline.New(a.generator(), a.factory(ctx), a.cfg.TempDir, pipeline.WithLogger(a.log))
}

// close flushes metrics and traces. Failures are logged only.
func (a *app) close(ctx context.Context) {
	if a.metrics != nil {
		if err := a.metrics.WriteTextfile(a.cfg.MetricsFile); err != nil {
			a.log.Warn("failed to write metrics", "error", err)
		}
		if err := a.metrics.Shutdown(context.Background()); err != nil {
			a.log.Warn("failed to shutdown metrics", "error", err)
		}
	}
	if a.catalog != nil {
		if err := a.catalog.Close(); err != nil {
			a.log.Warn("failed to close catalog", "error", err)
		}
	}
	if a.shutdownTracer != nil {
		if err := a.shutdownTracer(context.Background()); err != nil {
			a.log.Warn("failed to shutdown tracer", "error", err)
		}
	}
}
