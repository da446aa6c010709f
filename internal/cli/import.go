package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"dsjson/internal/compare"
	"dsjson/internal/config"
)

const importLongDescription = `Command "import"

Read a JSON document from the input directory (or s3://bucket/prefix) and
write it as a dataset into the output library, replacing any dataset of
the same name.

With --compare YES the imported dataset is compared exactly against the
dataset of the same name in the --reference library, and the report is
printed. Differences are reported, they do not fail the command.`

func importCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Import a JSON document as a dataset",
		Long:  importLongDescription,
		Args:  cobra.NoArgs,
	}
	flags := config.AddFlags(cmd.Flags())

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := root.options
		flags.Overlay(&opts)

		ctx, cancel := root.runContext("import")
		defer cancel()
		res, err := root.app.Import(ctx, opts)
		if err != nil {
			return err
		}
		if len(res.Warnings) > 0 {
			fmt.Fprintf(root.stdout, "%d warning(s), see log\n", len(res.Warnings))
		}
		if res.Report != nil {
			return compare.WriteText(root.stdout, res.Report)
		}
		return nil
	}
	return cmd
}
