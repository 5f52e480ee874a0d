package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check the Stable Diffusion WebUI connection",
	Long:  `Query the generation service for its loaded checkpoint and the number of available models.`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		client := a.generator()
		status, err := client.Status(ctx)
		if err != nil {
			fmt.Fprintf(cmd.OutOrStdout(), "✗ Cannot connect to SD WebUI: %v\n", err)
			return errReported
		}

		fmt.Fprintf(cmd.OutOrStdout(), "✓ SD WebUI connected at %s\n", status.BaseURL)
		fmt.Fprintf(cmd.OutOrStdout(), "Current model: %s\n", status.CurrentModel)
		fmt.Fprintf(cmd.OutOrStdout(), "Available models: %d\n", status.ModelCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
