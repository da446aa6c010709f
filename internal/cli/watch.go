package cli

import (
	"github.com/spf13/cobra"

	"dsjson/internal/app"
)

func watchCommand(root *rootCommand) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Import every JSON document written into a directory",
		Long: `Command "watch"

Watch the input directory and import each *.json file that is written or
created into the output library. The dataset name is the file name without
its extension. Runs until interrupted.`,
		Args: cobra.NoArgs,
	}
	var reference string
	fs := cmd.Flags()
	fs.StringP("input", "i", "", "document directory to watch")
	fs.StringP("output", "o", "", "output library")
	fs.StringVar(&reference, "reference", "", "compare each import against this library")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		opts := root.options
		if v, _ := fs.GetString("input"); v != "" {
			opts.Input = v
		}
		if v, _ := fs.GetString("output"); v != "" {
			opts.Output = v
		}
		if reference == "" && opts.Compare {
			reference = opts.Reference
		}

		ctx, cancel := root.runContext("watch")
		defer cancel()
		return root.app.Watch(ctx, app.WatchOptions{Dir: opts.Input, Library: opts.Output, Reference: reference})
	}
	return cmd
}
