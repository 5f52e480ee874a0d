package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [job_spec.json]",
	Short: "Run a job spec through Aseprite",
	Long: `Validate a job spec, write meta.json, run the task's Lua script in
Aseprite batch mode and capture its output in logs.txt.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSpec(cmd, args[0])
	},
}

// runSpec runs the job spec at path. The root command shares it so that
// "spritefactory job.json" behaves like "spritefactory run job.json".
func runSpec(cmd *cobra.Command, path string) error {
	a, ctx, err := newApp(cmd.Context())
	if err != nil {
		return err
	}
	defer a.close(ctx)

	res, err := a.factory(ctx).RunFile(ctx, path)
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "✓ Job %s completed: %s\n", res.JobID, res.Dir)
	return nil
}

func init() {
	rootCmd.AddCommand(runCmd)
}
