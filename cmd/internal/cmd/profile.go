package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/alecthomas/repr"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	dataprofiler "github.com/proflow/dataprofiler"
)

var (
	profileConfigPath    string
	profileAuditOut      string
	profileMetricsOut    string
	profileTypeOverrides string
	profileDebug         bool

	profileCmd = &cobra.Command{
		Use:   "profile <path> [path...]",
		Short: "Profile one or more delimited text files without loading them into memory",
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				_ = cmd.Help()
				return errors.New("need to specify at least one <path>")
			}
			return runProfileAll(args)
		},
	}
)

func init() {
	profileCmd.Flags().StringVar(&profileConfigPath, "config", "", "path to a RunConfig YAML file")
	profileCmd.Flags().StringVar(&profileAuditOut, "audit-out", "", "write the audit record (JSON) to this path")
	profileCmd.Flags().StringVar(&profileMetricsOut, "metrics-out", "", "write the per-column metrics row stream (CSV) to this path")
	profileCmd.Flags().StringVar(&profileTypeOverrides, "type-overrides", "", "optional TOML file pinning a column's displayed type")
	profileCmd.Flags().BoolVar(&profileDebug, "debug", false, "dump the resolved RunConfig and error rollup with repr")
	rootCmd.AddCommand(profileCmd)
}

// runProfileAll runs every path's profile concurrently, one goroutine per
// run under an errgroup, returning the first failure; that failure cancels
// the context the other runs still in flight share, so they stop at their
// next cancellation check — each run is still processed on its
// own single dedicated worker internally (spec §5), errgroup only
// supervises across runs.
func runProfileAll(paths []string) error {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	g, gctx := errgroup.WithContext(ctx)
	multi := len(paths) > 1
	for _, path := range paths {
		path := path
		g.Go(func() error {
			return runProfile(gctx, path, multi)
		})
	}
	return g.Wait()
}

func runProfile(ctx context.Context, path string, multi bool) error {
	cfg, err := loadRunConfig(profileConfigPath)
	if err != nil {
		return err
	}
	overrides, err := loadTypeOverrides(profileTypeOverrides)
	if err != nil {
		return err
	}

	if profileDebug {
		repr.Println(cfg)
	}

	run, err := dataprofiler.NewRun(cfg)
	if err != nil {
		return err
	}

	prof, err := dataprofiler.RunProfile(ctx, run, path, dataprofiler.Deps{Logger: log.WithField("input", path)})
	if err != nil {
		var failed dataprofiler.RunFailedError
		if errors.As(err, &failed) && profileDebug {
			repr.Println(failed.Rollup)
		}
		return fmt.Errorf("%s: %w", path, err)
	}

	applyTypeOverrides(prof, overrides)

	if profileDebug {
		dumpColumns(prof)
	}

	if err := json.NewEncoder(os.Stdout).Encode(prof); err != nil {
		return fmt.Errorf("encoding profile for %s: %w", path, err)
	}

	if profileMetricsOut != "" {
		out := perFileOutputPath(profileMetricsOut, path, multi)
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating metrics output %s: %w", out, err)
		}
		defer f.Close()
		if err := dataprofiler.WriteMetricsCSV(f, prof); err != nil {
			return fmt.Errorf("writing metrics for %s: %w", path, err)
		}
	}

	if profileAuditOut != "" {
		audit := dataprofiler.BuildAuditRecord(run, prof)
		out := perFileOutputPath(profileAuditOut, path, multi)
		f, err := os.Create(out)
		if err != nil {
			return fmt.Errorf("creating audit output %s: %w", out, err)
		}
		defer f.Close()
		if err := json.NewEncoder(f).Encode(audit); err != nil {
			return fmt.Errorf("writing audit record for %s: %w", path, err)
		}
	}

	return nil
}

// perFileOutputPath disambiguates --audit-out/--metrics-out across a
// multi-file run by inserting the input file's base name before the
// output's extension; a single-file run uses the path verbatim.
func perFileOutputPath(out, inputPath string, multi bool) string {
	if !multi {
		return out
	}
	ext := filepath.Ext(out)
	base := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	return strings.TrimSuffix(out, ext) + "." + base + ext
}
