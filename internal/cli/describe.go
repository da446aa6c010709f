package cli

import (
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"dsjson/internal/domain"
	"dsjson/internal/jsondoc"
)

func describeCommand(root *rootCommand) *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "describe <document>",
		Short: "Summarize a JSON document without importing it",
		Long: `Command "describe"

Print the dataset label, column descriptors, row count and any decoding
warnings of a document. The argument is a path or an s3:// URL.`,
		Args: cobra.ExactArgs(1),
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the summary as JSON")

	cmd.RunE = func(cmd *cobra.Command, args []string) error {
		ctx, cancel := root.runContext("describe")
		defer cancel()

		dir, name := splitDocument(args[0])
		sum, err := root.app.Datasets.Describe(ctx, dir, name)
		if err != nil {
			return err
		}
		if asJSON {
			enc := json.NewEncoder(root.stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(sum)
		}
		return writeSummary(root, sum)
	}
	return cmd
}

// splitDocument splits a document path or s3:// URL into its location and
// file name.
func splitDocument(path string) (dir, name string) {
	if i := strings.LastIndexAny(path, "/"+string(filepath.Separator)); i >= 0 {
		return path[:i], path[i+1:]
	}
	return ".", path
}

func writeSummary(root *rootCommand, sum *jsondoc.Summary) error {
	out := root.stdout
	fmt.Fprintf(out, "Label:   %s\nRows:    %d\nColumns: %d\n\n", sum.DatasetLabel, sum.Rows, len(sum.Columns))

	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tTYPE\tLENGTH\tFORMAT\tINFORMAT\tLABEL")
	for _, c := range sum.Columns {
		typ := "char"
		if c.Type == domain.ColumnNumeric {
			typ = "num"
		}
		fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\t%s\n", c.Varnum, c.Name, typ, c.Length, c.Format, c.Informat, c.Label)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, w := range sum.Warnings {
		fmt.Fprintln(out, "warning:", w.String())
	}
	return nil
}
