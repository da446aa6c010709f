package cli

import (
	"github.com/spf13/cobra"

	"dsjson/internal/config"
)

const exportLongDescription = `Command "export"

Read one dataset from the input library and write it as a JSON document
into the output directory (or s3://bucket/prefix).

Library locations:
  lib.db, lib.sqlite, sqlite://path       SQLite file
  postgres://user@host/db                 Postgres
  mysql://user@host/db                    MySQL
  mongodb://host/db                       MongoDB
  parquet://dir, any other path           directory of parquet files

With --schedule the export repeats on a cron expression until interrupted.`

func exportCommand(root *rootCommand) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export a dataset to a JSON document",
		Long:  exportLongDescription,
		Args:  cobra.NoArgs,
	}
	flags := config.AddFlags(cmd.Flags())
	cmd.Flags().StringVar(&schedule, "schedule", "", `cron expression, e.g. "0 * * * *"`)

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := root.options
		flags.Overlay(&opts)

		ctx, cancel := root.runContext("export")
		defer cancel()
		if schedule != "" {
			return root.app.ScheduleExport(ctx, opts, schedule)
		}
		_, err := root.app.Export(ctx, opts)
		return err
	}
	return cmd
}
