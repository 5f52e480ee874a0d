package cmd

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"spritefactory/internal/errors"
)

var cfgFile string

// errReported marks a failure the command already printed. It carries no
// code so it never matches a coded error.
var errReported = stderrors.New("already reported")

var rootCmd = &cobra.Command{
	Use:   "spritefactory [job_spec.json]",
	Short: "spritefactory turns job specs and prompts into pixel-art asset bundles",
	Long: `spritefactory drives Aseprite in batch mode to produce game assets.

Each job gets a bundle directory <artifacts_dir>/<job_id> holding meta.json,
logs.txt and whatever the Lua script writes. The tileset and sprite commands
generate a source image with a Stable Diffusion WebUI first.

Common workflows:

  Run a job spec:
    spritefactory run job.json
    spritefactory job.json

  Generate a tileset:
    spritefactory tileset "mossy dungeon floor" --tile-size 16 --palette 32

  Generate a sprite with a walk cycle:
    spritefactory sprite "small knight" --width 32 --height 32 --walkcycle

  Check the generation service:
    spritefactory status

  Look up a recorded job in the asset catalog:
    spritefactory show sd_tileset_20240309_140507

Configuration:
  Values come from flags, environment variables and an optional yaml file:
    ASEPRITE_EXE                 Editor binary (Windows or WSL path)
    SD_API_URL                   Generation service (default: http://172.26.32.1:7860)
    SPRITEFACTORY_ARTIFACTS_DIR  Bundle root (default: ./artifacts)
    SPRITEFACTORY_SCRIPTS_DIR    Lua script directory (default: ./lua)
    SPRITEFACTORY_CATALOG_DSN    PostgreSQL asset catalog (default: disabled)`,
	Args:          cobra.MaximumNArgs(1),
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return bindFlags(cmd.Root())
	},
	RunE: func(cmd *cobra.Command, args []string) error {
		if len(args) == 0 {
			return cmd.Help()
		}
		return runSpec(cmd, args[0])
	},
}

// Execute runs the CLI. Errors are printed as a single "Error: ..." line,
// followed by the stack of internal failures when log_level is debug.
func Execute(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if err == nil || errors.Is(err, errReported) {
		return err
	}

	stderr := rootCmd.ErrOrStderr()
	fmt.Fprintf(stderr, "Error: %s\n", err)

	var e *errors.Error
	if viper.GetString("log_level") == "debug" && !errors.IsValidation(err) && errors.As(err, &e) {
		fmt.Fprint(stderr, e.StackTrace())
	}
	return err
}

func bindFlags(root *cobra.Command) error {
	flags := root.PersistentFlags()
	bindings := map[string]string{
		"artifacts_dir": "artifacts-dir",
		"sd_api_url":    "sd-url",
		"log_level":     "log-level",
	}
	for key, flag := range bindings {
		if err := viper.BindPFlag(key, flags.Lookup(flag)); err != nil {
			return err
		}
	}
	return nil
}

// configPath returns the explicit --config file, or $HOME/.spritefactory.yaml
// when it exists.
func configPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	path := filepath.Join(home, ".spritefactory.yaml")
	if _, err := os.Stat(path); err != nil {
		return ""
	}
	return path
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is $HOME/.spritefactory.yaml)")
	rootCmd.PersistentFlags().String("artifacts-dir", "artifacts", "Root directory for artifact bundles")
	rootCmd.PersistentFlags().String("sd-url", "http://172.26.32.1:7860", "Stable Diffusion WebUI base URL")
	rootCmd.PersistentFlags().String("log-level", "warn", "Log level (debug, info, warn, error)")
}
