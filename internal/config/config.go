// Package config loads the factory configuration from defaults, an optional
// yaml file and environment variables.
package config

import (
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"spritefactory/internal/errors"
)

// EnvPrefix is the prefix for environment variables mapped onto config keys.
const EnvPrefix = "SPRITEFACTORY"

// Config holds all configuration values for a factory run.
type Config struct {
	// Root directory holding one artifact bundle per job_id.
	ArtifactsDir string

	// Directory holding the editor scripts, one <task>.lua per task.
	ScriptsDir string

	// Scratch directory for generated images before they are bundled.
	TempDir string

	// Override for the editor binary, in either path convention.
	AsepriteExe string

	// Path conversion utility (wslpath, or a stub in tests).
	PathTool string

	// Base URL of the generation service.
	SDAPIURL string

	GenerationTimeout time.Duration
	StatusTimeout     time.Duration

	LogLevel  string
	LogFormat string

	// OTLP gRPC collector address. Empty disables tracing.
	OTELEndpoint string

	// node_exporter textfile written at exit. Empty disables metrics.
	MetricsFile string

	// PostgreSQL DSN for the asset catalog. Empty disables the catalog.
	CatalogDSN string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("artifacts_dir", "artifacts")
	v.SetDefault("scripts_dir", "lua")
	v.SetDefault("temp_dir", "")
	v.SetDefault("aseprite_exe", "")
	v.SetDefault("path_tool", "wslpath")
	v.SetDefault("sd_api_url", "http://172.26.32.1:7860")
	v.SetDefault("generation_timeout", "300s")
	v.SetDefault("status_timeout", "120s")
	v.SetDefault("log_level", "warn")
	v.SetDefault("log_format", "text")
	v.SetDefault("otel_endpoint", "")
	v.SetDefault("metrics_file", "")
	v.SetDefault("catalog_dsn", "")
}

// FromViper reads configuration from v, which may already carry bound CLI flags.
// path is optional; when set the file must exist.
// Precedence: flags, env, config file, defaults.
func FromViper(v *viper.Viper, path string) (*Config, error) {
	SetDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()
	// Legacy variable names take effect when the prefixed ones are unset.
	_ = v.BindEnv("aseprite_exe", EnvPrefix+"_ASEPRITE_EXE", "ASEPRITE_EXE")
	_ = v.BindEnv("sd_api_url", EnvPrefix+"_SD_API_URL", "SD_API_URL")

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.WrapWithCode(err, errors.CodeConfig, "", "failed to read config file "+path)
		}
	}

	genTimeout, err := duration(v, "generation_timeout")
	if err != nil {
		return nil, err
	}
	statusTimeout, err := duration(v, "status_timeout")
	if err != nil {
		return nil, err
	}

	format := strings.ToLower(strings.TrimSpace(v.GetString("log_format")))
	if format != "json" && format != "text" {
		return nil, errors.Config("invalid log_format %q: must be json or text", format)
	}

	artifactsDir, err := absPath(v.GetString("artifacts_dir"), "artifacts_dir")
	if err != nil {
		return nil, err
	}
	scriptsDir, err := absPath(v.GetString("scripts_dir"), "scripts_dir")
	if err != nil {
		return nil, err
	}

	tempDir := v.GetString("temp_dir")
	if tempDir == "" {
		tempDir = filepath.Join(artifactsDir, "_sd_temp")
	}

	return &Config{
		ArtifactsDir:      artifactsDir,
		ScriptsDir:        scriptsDir,
		TempDir:           tempDir,
		AsepriteExe:       strings.TrimSpace(v.GetString("aseprite_exe")),
		PathTool:          v.GetString("path_tool"),
		SDAPIURL:          strings.TrimRight(v.GetString("sd_api_url"), "/"),
		GenerationTimeout: genTimeout,
		StatusTimeout:     statusTimeout,
		LogLevel:          v.GetString("log_level"),
		LogFormat:         format,
		OTELEndpoint:      v.GetString("otel_endpoint"),
		MetricsFile:       v.GetString("metrics_file"),
		CatalogDSN:        v.GetString("catalog_dsn"),
	}, nil
}

func duration(v *viper.Viper, key string) (time.Duration, error) {
	raw := v.GetString(key)
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, errors.WrapWithCode(err, errors.CodeConfig, "", "invalid "+key)
	}
	if d <= 0 {
		return 0, errors.Config("invalid %s: must be positive, got %s", key, raw)
	}
	return d, nil
}

func absPath(p, key string) (string, error) {
	if p == "" {
		return "", errors.Config("%s is required", key)
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", errors.WrapWithCode(err, errors.CodeConfig, "", "invalid "+key)
	}
	return abs, nil
}
