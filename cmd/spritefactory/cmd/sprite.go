package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"spritefactory/internal/generation"
	"spritefactory/internal/pipeline"
)

var spriteOpts pipeline.SpriteOptions

var spriteCmd = &cobra.Command{
	Use:   "sprite [prompt]",
	Short: "Generate a character or object sprite",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		opts := spriteOpts
		opts.Prompt = args[0]

		fmt.Fprintf(cmd.OutOrStdout(), "Generating: %s\n", opts.Prompt)
		dir, err := a.pipeline(ctx).Sprite(ctx, opts)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Sprite generated: %s\n", dir)
		return nil
	},
}

func init() {
	f := spriteCmd.Flags()
	f.StringVar(&spriteOpts.JobID, "job-id", "", "Custom job ID (default: sd_sprite_<timestamp>)")
	f.IntVar(&spriteOpts.SDSize, "sd-size", 512, "SD output size")
	f.IntVar(&spriteOpts.TargetWidth, "width", 32, "Target sprite width")
	f.IntVar(&spriteOpts.TargetHeight, "height", 32, "Target sprite height")
	f.IntVar(&spriteOpts.PaletteSize, "palette", 16, "Max colors in palette")
	f.BoolVar(&spriteOpts.Walkcycle, "walkcycle", false, "Generate walk cycle")
	f.Int64Var(&spriteOpts.Seed, "seed", generation.RandomSeed, "Generation seed (-1 for random)")
	rootCmd.AddCommand(spriteCmd)
}
