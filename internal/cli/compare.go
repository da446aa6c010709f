package cli

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"dsjson/internal/compare"
	"dsjson/internal/config"
	"dsjson/internal/service"
)

func compareCommand(root *rootCommand) *cobra.Command {
	var (
		in     service.CompareInput
		asJSON bool
		failOn config.YesNo
	)
	cmd := &cobra.Command{
		Use:   "compare",
		Short: "Compare two datasets exactly",
		Long: `Command "compare"

Compare a dataset in the base library with a dataset in the compare
library: column sets, column attributes, row counts and every value.`,
		Args: cobra.NoArgs,
	}
	fs := cmd.Flags()
	fs.StringVar(&in.Base, "base", "", "base library location")
	fs.StringVar(&in.BaseDataset, "base-dataset", "", "base dataset name")
	fs.StringVar(&in.Compare, "with", "", "compare library location")
	fs.StringVar(&in.CompareDataset, "with-dataset", "", "compare dataset name (default --base-dataset)")
	fs.BoolVar(&asJSON, "json", false, "print the report as JSON")
	fs.Var(&failOn, "fail-on-diff", "exit non-zero when differences are found (YES|NO)")
	_ = cmd.MarkFlagRequired("base")
	_ = cmd.MarkFlagRequired("base-dataset")
	_ = cmd.MarkFlagRequired("with")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := root.runContext("compare")
		defer cancel()
		report, err := root.app.Datasets.Compare(ctx, in)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(root.stdout)
			enc.SetIndent("", "  ")
			err = enc.Encode(report)
		} else {
			err = compare.WriteText(root.stdout, report)
		}
		if err != nil {
			return err
		}
		if bool(failOn) && !report.Equal() {
			return errDifferences
		}
		return nil
	}
	return cmd
}
