package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tigerroll/orgdigestor/internal/app"
	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
)

// NewRootCommand builds the orgdigestor command tree over the given default configuration.
func NewRootCommand(embedded []byte) *cobra.Command {
	opts := app.Options{EmbeddedConfig: embedded}

	root := &cobra.Command{
		Use:           "orgdigestor",
		Short:         "Digest organization CSV exports into the organization store",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.EnvFilePath, "env-file", os.Getenv("ENV_FILE_PATH"), ".env file loaded before the configuration")

	root.AddCommand(newDigestCommand(&opts), newMigrateCommand(&opts))
	return root
}

func newDigestCommand(opts *app.Options) *cobra.Command {
	var file string
	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Split a CSV (or ZIP) export into chunks and upsert every organization",
		RunE: func(cmd *cobra.Command, args []string) error {
			summary, err := app.Digest(cmd.Context(), *opts, file)
			if err != nil {
				return err
			}
			printSummary(cmd, summary)
			if !summary.Complete() {
				return fmt.Errorf("%d chunk(s) lost", len(summary.LostChunks))
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "", "source CSV or ZIP file")
	cmd.Flags().IntVar(&opts.RowsPerTask, "rows-per-task", 0, "rows per chunk (overrides batch.rows_per_task)")
	cmd.Flags().IntVar(&opts.Workers, "workers", 0, "chunks processed concurrently (overrides batch.max_workers)")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "keep organizations in memory")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func newMigrateCommand(opts *app.Options) *cobra.Command {
	var down bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return app.Migrate(cmd.Context(), *opts, down)
		},
	}
	cmd.Flags().BoolVar(&down, "down", false, "roll back every migration")
	return cmd
}

func printSummary(cmd *cobra.Command, s *model.SummaryReport) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "job:      %s\n", s.JobID)
	fmt.Fprintf(out, "chunks:   %d\n", s.Chunks)
	fmt.Fprintf(out, "created:  %d\n", s.Created)
	fmt.Fprintf(out, "updated:  %d\n", s.Updated)
	fmt.Fprintf(out, "errors:   %d\n", s.Errors)
	for _, m := range s.ErrorMessages {
		fmt.Fprintf(out, "  %s\n", m)
	}
	for _, l := range s.LostChunks {
		fmt.Fprintf(out, "lost:     chunk %d (%s): %s\n", l.ChunkIndex, l.Key, l.Message)
	}
}
