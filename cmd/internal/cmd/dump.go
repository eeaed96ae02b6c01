package cmd

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/alecthomas/repr"

	dataprofiler "github.com/proflow/dataprofiler"
)

// dumpColumns renders a Profile's column table to stderr for --debug,
// tab-aligned the same way the teacher's query-result dumper laid out
// column/value pairs, with repr quoting string-typed fields for
// unambiguous whitespace/empty-string display.
func dumpColumns(prof *dataprofiler.Profile) {
	w := tabwriter.NewWriter(os.Stderr, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ordinal\tname\ttype\tnull_count\tdistinct_count\t")
	for _, c := range prof.Columns {
		fmt.Fprintf(w, "%d\t%s\t%s\t%d\t%d\t\n", c.Ordinal, repr.String(c.Name), c.Type, c.NullCount, c.DistinctCount)
	}
	w.Flush()
}
