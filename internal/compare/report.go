package compare

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/fatih/color"

	"dsjson/internal/domain"
)

// WriteText renders r for an operator. Colors follow color.NoColor, which
// is set automatically when w is not a terminal.
func WriteText(w io.Writer, r *domain.CompareReport) error {
	ok := color.New(color.FgGreen, color.Bold).SprintFunc()
	bad := color.New(color.FgRed, color.Bold).SprintFunc()

	fmt.Fprintf(w, "Comparison of %s (base) with %s (compare)\n", name(r.Base), name(r.Compare))
	fmt.Fprintf(w, "Rows: %d base, %d compare\n", r.BaseRows, r.CompareRows)
	if r.Equal() {
		_, err := fmt.Fprintln(w, ok("No differences found. All values compared are exactly equal."))
		return err
	}
	fmt.Fprintln(w, bad(fmt.Sprintf("Differences found: %d attribute, %d value", len(r.Attributes), len(r.Cells))))

	if r.BaseRows != r.CompareRows {
		fmt.Fprintf(w, "\nRow count differs by %d\n", r.CompareRows-r.BaseRows)
	}
	if len(r.OnlyInBase) > 0 {
		fmt.Fprintf(w, "\nColumns only in base: %s\n", strings.Join(r.OnlyInBase, ", "))
	}
	if len(r.OnlyInCompare) > 0 {
		fmt.Fprintf(w, "\nColumns only in compare: %s\n", strings.Join(r.OnlyInCompare, ", "))
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	if len(r.Attributes) > 0 {
		fmt.Fprintln(tw, "\nCOLUMN\tATTRIBUTE\tBASE\tCOMPARE")
		for _, a := range r.Attributes {
			fmt.Fprintf(tw, "%s\t%s\t%q\t%q\n", name(a.Column), a.Attribute, a.Base, a.Compare)
		}
	}
	if len(r.Cells) > 0 {
		fmt.Fprintln(tw, "\nROW\tCOLUMN\tBASE\tCOMPARE")
		for _, c := range r.Cells {
			fmt.Fprintf(tw, "%d\t%s\t%s\t%s\n", c.Row, c.Column, render(c.Base), render(c.Compare))
		}
	}
	return tw.Flush()
}

func name(s string) string {
	if s == "" {
		return "(dataset)"
	}
	return s
}

func render(v any) string {
	switch x := v.(type) {
	case nil:
		return "."
	case string:
		return fmt.Sprintf("%q", x)
	case float64:
		return domain.ToText(x)
	default:
		return fmt.Sprint(x)
	}
}
