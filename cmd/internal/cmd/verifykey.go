package cmd

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/proflow/dataprofiler/aggregator"
	"github.com/proflow/dataprofiler/ingest/bytesource"
	"github.com/proflow/dataprofiler/ingest/csv"
	"github.com/proflow/dataprofiler/ingest/lineending"
	"github.com/proflow/dataprofiler/ingest/utf8validate"
	"github.com/proflow/dataprofiler/keyengine"
)

var (
	verifyKeyConfigPath string
	verifyKeyColumns    string

	verifyKeyCmd = &cobra.Command{
		Use:   "verify-key <path>",
		Short: "Run the duplicate-confirmation pass for a given column tuple",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) != 1 {
				_ = cmd.Help()
				return errors.New("need to specify argument <path>")
			}
			return runVerifyKey(args[0])
		},
	}
)

func init() {
	verifyKeyCmd.Flags().StringVar(&verifyKeyConfigPath, "config", "", "path to a RunConfig YAML file")
	verifyKeyCmd.Flags().StringVar(&verifyKeyColumns, "columns", "", "comma-separated zero-based column ordinals, e.g. 0,2")
	rootCmd.AddCommand(verifyKeyCmd)
}

func runVerifyKey(path string) error {
	if verifyKeyColumns == "" {
		return errors.New("--columns is required, e.g. --columns 0,2")
	}
	columns, err := parseColumnList(verifyKeyColumns)
	if err != nil {
		return err
	}

	cfg, err := loadRunConfig(verifyKeyConfigPath)
	if err != nil {
		return err
	}

	proj, header, err := newStreamProjector(path, cfg.Delimiter, cfg.Quoting)
	if err != nil {
		return err
	}
	defer proj.Close()

	for _, c := range columns {
		if c < 0 || c >= len(header) {
			return fmt.Errorf("column ordinal %d out of range (file has %d columns)", c, len(header))
		}
	}

	groups, err := keyengine.ConfirmDuplicates(proj, columns)
	if err != nil {
		return err
	}

	if len(groups) == 0 {
		fmt.Println("no duplicates found; tuple is unique across every row")
		return nil
	}

	agg := aggregator.NewAggregator()
	for _, g := range groups {
		fmt.Printf("duplicate key=%s count=%d\n", g.KeySignature, g.Count)
		agg.Record(aggregator.ErrorEvent{
			Code:    aggregator.WDuplicateFound,
			Message: fmt.Sprintf("key=%s count=%d", g.KeySignature, g.Count),
		})
	}
	fmt.Printf("total duplicate rows: %d\n", keyengine.TotalDuplicateRows(groups))
	for _, r := range agg.Rollup() {
		fmt.Printf("%s: %d occurrence(s)\n", r.Code, r.Count)
	}
	return nil
}

func parseColumnList(s string) ([]int, error) {
	parts := strings.Split(s, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		n, err := strconv.Atoi(strings.TrimSpace(p))
		if err != nil {
			return nil, fmt.Errorf("invalid column ordinal %q: %w", p, err)
		}
		out = append(out, n)
	}
	return out, nil
}

// streamProjector is a keyengine.RowProjector backed by a fresh read of the
// byte source through the standard ingest pipeline, one row at a time —
// the CLI's verify-key never had a live profiler run to replay through, so
// it always takes the "re-open the byte source" path from SPEC_FULL.md
// §11(c).
type streamProjector struct {
	src     *bytesource.Source
	scanner *csv.Scanner
	cols    int
}

func newStreamProjector(path string, delimiter string, quoting bool) (*streamProjector, []string, error) {
	src, err := bytesource.Open(path)
	if err != nil {
		return nil, nil, err
	}
	if delimiter == "" {
		delimiter = ","
	}
	validator := utf8validate.New(src)
	normalizer := lineending.New(validator)
	scanner := csv.NewScanner(normalizer, delimiter[0], quoting)

	header, herr := scanner.NextRow()
	if herr != nil {
		src.Close()
		return nil, nil, fmt.Errorf("reading header: %w", herr)
	}
	return &streamProjector{src: src, scanner: scanner, cols: len(header.Fields)}, header.Fields, nil
}

func (p *streamProjector) Next(columns []int) ([]string, bool, error) {
	row, err := p.scanner.NextRow()
	if err == io.EOF {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	if row.Empty || len(row.Fields) != p.cols {
		return p.Next(columns)
	}
	values := make([]string, len(columns))
	for i, c := range columns {
		values[i] = row.Fields[c]
	}
	return values, true, nil
}

func (p *streamProjector) Close() error {
	return p.src.Close()
}
