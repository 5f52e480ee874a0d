package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"spritefactory/internal/generation"
	"spritefactory/internal/pipeline"
)

var tilesetOpts pipeline.TilesetOptions

var tilesetCmd = &cobra.Command{
	Use:   "tileset [prompt]",
	Short: "Generate a scene and slice it into a tileset",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		opts := tilesetOpts
		opts.Prompt = args[0]

		fmt.Fprintf(cmd.OutOrStdout(), "Generating: %s\n", opts.Prompt)
		dir, err := a.pipeline(ctx).Tileset(ctx, opts)
		if err != nil {
			return err
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ Tileset generated: %s\n", dir)
		return nil
	},
}

func init() {
	f := tilesetCmd.Flags()
	f.StringVar(&tilesetOpts.JobID, "job-id", "", "Custom job ID (default: sd_tileset_<timestamp>)")
	f.IntVar(&tilesetOpts.Width, "width", 512, "SD output width")
	f.IntVar(&tilesetOpts.Height, "height", 512, "SD output height")
	f.IntVar(&tilesetOpts.TileSize, "tile-size", 16, "Tile size in pixels")
	f.IntVar(&tilesetOpts.PaletteSize, "palette", 32, "Max colors in palette")
	f.Int64Var(&tilesetOpts.Seed, "seed", generation.RandomSeed, "Generation seed (-1 for random)")
	rootCmd.AddCommand(tilesetCmd)
}
