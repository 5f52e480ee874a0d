// Package generation talks to a Stable Diffusion WebUI compatible service.
package generation

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"spritefactory/internal/errors"
	"spritefactory/internal/logger"
	"spritefactory/internal/observability"
	"spritefactory/pkg/api"
)

const (
	// DefaultBaseURL is the Windows host as seen from WSL.
	DefaultBaseURL = "http://172.26.32.1:7860"

	DefaultSteps    = 25
	DefaultCFGScale = 7.0
	// RandomSeed asks the service to choose the seed.
	RandomSeed = -1
	Sampler    = "DPM++ 2M Karras"

	promptHints   = "game asset, clean pixels"
	negativeHints = "blurry, noisy, artifacts"
)

// Request holds the caller-controlled generation parameters.
type Request struct {
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	// Steps and CFGScale fall back to the defaults when zero.
	Steps    int
	CFGScale float64
	Seed     int64
}

// Result is the first generated image and the seed the service used.
type Result struct {
	Image []byte
	Seed  int64
}

// Status describes the service's loaded model.
type Status struct {
	BaseURL      string
	CurrentModel string
	ModelCount   int
}

// Config configures a Client.
type Config struct {
	BaseURL           string
	GenerationTimeout time.Duration
	StatusTimeout     time.Duration
	Metrics           *observability.Metrics
	Logger            *logger.Logger
}

// Client handles API calls to the generation service. Nothing is retried.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client

	generationTimeout time.Duration
	statusTimeout     time.Duration
	metrics           *observability.Metrics
	log               *logger.Logger
}

// APIError represents a non-2xx response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}

// New creates a client. Zero timeouts become 300s for generation and 120s
// for status checks.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.GenerationTimeout <= 0 {
		cfg.GenerationTimeout = 300 * time.Second
	}
	if cfg.StatusTimeout <= 0 {
		cfg.StatusTimeout = 120 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.Nop()
	}

	return &Client{
		BaseURL:           strings.TrimRight(cfg.BaseURL, "/"),
		HTTPClient:        &http.Client{},
		generationTimeout: cfg.GenerationTimeout,
		statusTimeout:     cfg.StatusTimeout,
		metrics:           cfg.Metrics,
		log:               cfg.Logger.WithComponent("generation"),
	}
}

// BuildRequest applies the style hints and defaults to req.
func BuildRequest(req Request) api.Txt2ImgRequest {
	negative := negativeHints
	if req.NegativePrompt != "" {
		negative = req.NegativePrompt + ", " + negativeHints
	}
	steps := req.Steps
	if steps <= 0 {
		steps = DefaultSteps
	}
	cfgScale := req.CFGScale
	if cfgScale <= 0 {
		cfgScale = DefaultCFGScale
	}

	return api.Txt2ImgRequest{
		Prompt:         req.Prompt + ", " + promptHints,
		NegativePrompt: negative,
		Width:          req.Width,
		Height:         req.Height,
		Steps:          steps,
		CFGScale:       cfgScale,
		Seed:           req.Seed,
		SamplerName:    Sampler,
	}
}

// Generate sends POST /sdapi/v1/txt2img and decodes the first image.
func (c *Client) Generate(ctx context.Context, req Request) (Result, error) {
	ctx, span := otel.Tracer("spritefactory/generation").Start(ctx, "generation.txt2img",
		trace.WithAttributes(
			attribute.Int("generation.width", req.Width),
			attribute.Int("generation.height", req.Height),
			attribute.Int64("generation.seed", req.Seed),
		),
		trace.WithSpanKind(trace.SpanKindClient),
	)
	defer span.End()

	result, err := c.generate(ctx, req)
	if err != nil {
		span.RecordError(err)
		c.metrics.RecordGeneration(ctx, observability.OutcomeFailure)
		return Result{}, err
	}

	span.SetAttributes(attribute.Int64("generation.actual_seed", result.Seed))
	c.metrics.RecordGeneration(ctx, observability.OutcomeSuccess)
	return result, nil
}

func (c *Client) generate(ctx context.Context, req Request) (Result, error) {
	ctx, cancel := context.WithTimeout(ctx, c.generationTimeout)
	defer cancel()

	body := BuildRequest(req)
	c.log.FromContext(ctx).Info("generating image",
		"prompt", req.Prompt, "width", body.Width, "height", body.Height,
		"steps", body.Steps, "cfg_scale", body.CFGScale)

	var resp api.Txt2ImgResponse
	if err := c.do(ctx, http.MethodPost, "/sdapi/v1/txt2img", body, &resp); err != nil {
		return Result{}, err
	}

	if len(resp.Images) == 0 {
		return Result{}, errors.Transport(nil, "No images returned from SD")
	}

	image, err := decodeImage(resp.Images[0])
	if err != nil {
		return Result{}, errors.Transport(err, "SD API error: invalid image data")
	}

	seed, err := parseSeed(resp.Info)
	if err != nil {
		return Result{}, errors.Transport(err, "SD API error: no seed in generation info")
	}

	c.log.FromContext(ctx).Info("image generated", "seed", seed, "bytes", len(image))
	return Result{Image: image, Seed: seed}, nil
}

// Status reports the active model and model count.
func (c *Client) Status(ctx context.Context) (Status, error) {
	ctx, cancel := context.WithTimeout(ctx, c.statusTimeout)
	defer cancel()

	var models []api.SDModel
	if err := c.do(ctx, http.MethodGet, "/sdapi/v1/sd-models", nil, &models); err != nil {
		return Status{}, err
	}

	var opts api.Options
	if err := c.do(ctx, http.MethodGet, "/sdapi/v1/options", nil, &opts); err != nil {
		return Status{}, err
	}

	current := opts.SDModelCheckpoint
	if current == "" {
		current = "unknown"
	}
	return Status{BaseURL: c.BaseURL, CurrentModel: current, ModelCount: len(models)}, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var reader io.Reader
	if in != nil {
		bodyBytes, err := json.Marshal(in)
		if err != nil {
			return errors.WrapWithCode(err, errors.CodeInternal, "", "failed to marshal request")
		}
		reader = bytes.NewReader(bodyBytes)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, reader)
	if err != nil {
		return errors.Transport(err, "SD API error")
	}
	if in != nil {
		httpReq.Header.Add("Content-Type", "application/json")
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return errors.Transport(err, "SD API error")
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Transport(err, "SD API error")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return errors.Transport(&APIError{StatusCode: resp.StatusCode, Message: errorMessage(respBody)}, "SD API error")
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return errors.Transport(err, "SD API error: failed to parse response")
	}
	return nil
}

func errorMessage(body []byte) string {
	var e api.ErrorResponse
	if err := json.Unmarshal(body, &e); err == nil {
		for _, s := range []string{e.Detail, e.Errors, e.Error} {
			if s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(string(body))
}

func decodeImage(data string) ([]byte, error) {
	// Some servers prefix a data URI header.
	if i := strings.Index(data, ";base64,"); i >= 0 {
		data = data[i+len(";base64,"):]
	}
	return base64.StdEncoding.DecodeString(data)
}

func parseSeed(info string) (int64, error) {
	if info == "" {
		return 0, fmt.Errorf("empty info")
	}
	var gi api.GenerationInfo
	dec := json.NewDecoder(strings.NewReader(info))
	dec.UseNumber()
	if err := dec.Decode(&gi); err != nil {
		return 0, err
	}
	if gi.Seed == "" {
		return 0, fmt.Errorf("seed missing")
	}
	if n, err := gi.Seed.Int64(); err == nil {
		return n, nil
	}
	f, err := gi.Seed.Float64()
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}
