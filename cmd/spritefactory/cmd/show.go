package cmd

import (
	"database/sql"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"spritefactory/internal/errors"
)

var showCmd = &cobra.Command{
	Use:   "show [job_id]",
	Short: "Show the catalog entry for a job",
	Long:  `Look up a recorded bundle in the asset catalog. Requires catalog_dsn.`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, ctx, err := newApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.close(ctx)

		store, err := a.openCatalog(ctx)
		if err != nil {
			return err
		}

		entry, err := store.Get(ctx, args[0])
		if errors.Is(err, sql.ErrNoRows) {
			return errors.Newf(errors.CodeValidation, "no catalog entry for job %s", args[0])
		}
		if err != nil {
			return errors.Wrap(err, "catalog.get", "failed to read catalog entry")
		}

		exitCode := "-"
		if entry.ExitCode != nil {
			exitCode = fmt.Sprint(*entry.ExitCode)
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "Job:\t%s\n", entry.JobID)
		fmt.Fprintf(w, "Task:\t%s\n", entry.Task)
		fmt.Fprintf(w, "Status:\t%s\n", entry.Status)
		fmt.Fprintf(w, "Exit code:\t%s\n", exitCode)
		fmt.Fprintf(w, "Directory:\t%s\n", entry.ArtifactDir)
		fmt.Fprintf(w, "Files:\t%s\n", strings.Join(entry.Files, ", "))
		fmt.Fprintf(w, "Started:\t%s\n", entry.StartedAt.UTC().Format(time.RFC3339))
		fmt.Fprintf(w, "Finished:\t%s\n", entry.FinishedAt.UTC().Format(time.RFC3339))
		if entry.Error != "" {
			fmt.Fprintf(w, "Failure:\t%s\n", entry.Error)
		}
		return w.Flush()
	},
}

func init() {
	rootCmd.AddCommand(showCmd)
}
