package dataprofiler

import (
	"context"
	"encoding/hex"
	"fmt"
	"io"
	"math"
	"path/filepath"
	"time"

	"github.com/gofrs/uuid"
	"github.com/sirupsen/logrus"

	"github.com/proflow/dataprofiler/aggregator"
	"github.com/proflow/dataprofiler/distinct"
	"github.com/proflow/dataprofiler/ingest/bytesource"
	"github.com/proflow/dataprofiler/ingest/csv"
	"github.com/proflow/dataprofiler/ingest/lineending"
	"github.com/proflow/dataprofiler/ingest/utf8validate"
	"github.com/proflow/dataprofiler/keyengine"
	"github.com/proflow/dataprofiler/profile"
)

// State is the lifecycle a Run moves through (spec §3).
type State int

const (
	StateQueued State = iota
	StateProcessing
	StateCompleted
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateProcessing:
		return "processing"
	case StateCompleted:
		return "completed"
	case StateFailed:
		return "failed"
	default:
		return "queued"
	}
}

// RunConfig is the immutable, YAML-deserializable configuration for one
// profiling execution — modeled on the teacher's DatabaseConfig: a flat
// struct with yaml tags, consumed by the CLI's cobra flags and overridable
// per-file.
type RunConfig struct {
	Delimiter           string            `yaml:"delimiter"`
	AutoDetectDelimiter  bool              `yaml:"auto_detect_delimiter"`
	Quoting             bool              `yaml:"quoting"`
	NullTokens          []string          `yaml:"null_tokens"`
	ExpectedLineEnding  string            `yaml:"expected_line_ending"`
	SpillBudgetBytes    int64             `yaml:"spill_budget_bytes"`
	DistinctInMemoryCap int               `yaml:"distinct_in_memory_cap"`
	TopK                int               `yaml:"top_k"`
	WorkspaceDir        string            `yaml:"workspace_dir"`
	TypeOverrides       map[string]string `yaml:"type_overrides,omitempty"`
}

// DefaultRunConfig returns the spec's documented defaults: comma-or-pipe
// auto-detection off, quoting on, the empty string as the only mandatory
// null token, a 1,000,000-value in-memory distinct cap, top-10.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Delimiter:           ",",
		AutoDetectDelimiter: false,
		Quoting:             true,
		NullTokens:          []string{""},
		DistinctInMemoryCap: 1_000_000,
		TopK:                10,
		WorkspaceDir:        ".",
	}
}

// Run identifies a single profiling execution (spec §3). The core borrows
// it for the duration of processing and does not own its lifecycle beyond
// that; the surrounding service created it and reclaims it afterward.
type Run struct {
	ID        string
	Config    RunConfig
	State     State
	Progress  float64
	StartedAt time.Time
	EndedAt   time.Time
}

// NewRun allocates a Run with a fresh ID in the queued state.
func NewRun(cfg RunConfig) (*Run, error) {
	id, err := uuid.NewV4()
	if err != nil {
		return nil, fmt.Errorf("dataprofiler: generating run id: %w", err)
	}
	return &Run{ID: id.String(), Config: cfg, State: StateQueued}, nil
}

// FileSummary is the Profile artifact's `file` block (spec §6).
type FileSummary struct {
	Rows          int64
	Columns       int
	Delimiter     string
	CRLFObserved  int
	LFObserved    int
	CRObserved    int
	ByteSize      int64
	SHA256        string
	BOMStripped   bool
}

// ColumnProfile is the Profile artifact's per-column entry, flattening a
// profile.ColumnProfiler into externally serializable fields and applying
// the NaN/Inf sanitization rule from spec §4.7.
type ColumnProfile struct {
	Ordinal       int
	Name          string
	Type          string
	NullCount     int64
	NonNullCount  int64
	DistinctCount int64
	LengthMin     int
	LengthMax     int
	LengthAvg     float64
	Mean          *float64
	Stddev        *float64
	Min           *float64
	Max           *float64
	Median        *float64
	DateFormat    string
	DateMin       string
	DateMax       string
	MoneyViolations int64
	TopK          []distinct.ValueCount
	InfinitySanitized bool
}

// Profile is the Profile artifact (spec §6's Produced/Profile artifact).
type Profile struct {
	RunID        string
	File         FileSummary
	Errors       []aggregator.Rollup
	Warnings     []aggregator.Rollup
	Columns      []ColumnProfile
	CandidateKeys []keyengine.CandidateKey
}

// Deps bundles the external collaborators RunProfile needs beyond the
// context, input path and run: a logger and a clock. Both are borrowed,
// not owned, matching the run-context ownership note in spec §3.
type Deps struct {
	Logger logrus.FieldLogger
	Now    func() time.Time // injectable for deterministic date-range checks in tests
}

// RunProfile executes the full pipeline described in spec §2 against path
// under run.Config, returning the completed Profile artifact or a RunFailedError
// carrying the partial error roll-up if a catastrophic event halted
// processing.
func RunProfile(ctx context.Context, run *Run, path string, deps Deps) (*Profile, error) {
	if deps.Logger == nil {
		deps.Logger = logrus.StandardLogger()
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	cfg := run.Config
	log := deps.Logger.WithFields(logrus.Fields{"run_id": run.ID, "path": path})

	run.State = StateProcessing
	run.StartedAt = deps.Now()

	src, err := bytesource.Open(path)
	if err != nil {
		run.State = StateFailed
		return nil, wrapIOFailure(run, err)
	}
	defer src.Close()

	agg := aggregator.NewAggregator()
	spillDir := filepath.Join(cfg.WorkspaceDir, run.ID)
	store := distinct.NewSpillingTracker(cfg.DistinctInMemoryCap, cfg.SpillBudgetBytes, func() (*distinct.PebbleStore, error) {
		return distinct.OpenPebbleStore(filepath.Join(spillDir, "distinct.db"))
	})
	defer store.Close()

	delimiter := cfg.Delimiter
	if cfg.AutoDetectDelimiter {
		detected, derr := detectDelimiterFromPrefix(path)
		if derr == nil {
			if delimiter != "" && string(detected.Delimiter) != delimiter && detected.Confidence >= 0.7 {
				agg.Record(aggregator.ErrorEvent{
					Code:    aggregator.WDelimiterMismatch,
					Message: fmt.Sprintf("configured delimiter %q disagrees with detected %q (confidence %.2f)", delimiter, detected.Delimiter, detected.Confidence),
				})
			}
			if delimiter == "" {
				delimiter = string(detected.Delimiter)
			}
		}
	}
	if delimiter == "" {
		delimiter = ","
	}

	validator := utf8validate.New(src)
	normalizer := lineending.New(validator)
	scanner := csv.NewScanner(normalizer, delimiter[0], cfg.Quoting)

	header, herr := readHeader(scanner)
	if herr != nil {
		return nil, finalizeCatastrophic(run, agg, herr)
	}

	for i, name := range header.names {
		if header.duplicates[i] {
			agg.Record(aggregator.ErrorEvent{
				Code:       aggregator.EHeaderDuplicate,
				ColOrdinal: i,
				Message:    fmt.Sprintf("duplicate header name %q at ordinal %d", name, i),
			})
		}
	}

	columns := make([]*profile.ColumnProfiler, len(header.names))
	for i, name := range header.names {
		columns[i] = profile.NewColumnProfiler(i, name, store, cfg.TopK)
	}

	nullTokenSet := make(map[string]bool, len(cfg.NullTokens))
	for _, t := range cfg.NullTokens {
		nullTokenSet[t] = true
	}
	nullTokenSet[""] = true

	var rowCount int64

	for {
		select {
		case <-ctx.Done():
			run.State = StateFailed
			return nil, CancelledError{RowsRead: rowCount}
		default:
		}

		row, rerr := scanner.NextRow()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, finalizeCatastrophic(run, agg, CatastrophicError{
				Code:    aggregator.EIOError,
				Message: "reading row",
				Cause:   rerr,
			})
		}

		if row.Empty {
			agg.Record(aggregator.ErrorEvent{Code: aggregator.ERowEmpty, RowNumber: int(rowCount) + 2})
			continue
		}

		for _, v := range row.Violations {
			agg.Record(aggregator.ErrorEvent{
				Code:      aggregator.EQuoteRuleViolation,
				RowNumber: v.Pos.Row,
				ColOrdinal: v.Pos.ColOrdinal,
				Message:   v.Message,
			})
		}
		if agg.HasCatastrophic() {
			return nil, finalizeRollup(run, agg, rowCount)
		}

		if len(row.Fields) != len(header.names) {
			return nil, finalizeCatastrophic(run, agg, CatastrophicError{
				Code: aggregator.EJaggedRow,
				Pos:  csv.Pos{Row: int(rowCount) + 2},
				Message: fmt.Sprintf("expected %d fields, got %d", len(header.names), len(row.Fields)),
			})
		}

		rowCount++
		for colIdx, raw := range row.Fields {
			cp := columns[colIdx]
			if nullTokenSet[raw] {
				cp.ObserveNull()
				continue
			}
			outcome, oerr := cp.ObserveValue(raw, deps.Now())
			if oerr != nil {
				return nil, finalizeCatastrophic(run, agg, CatastrophicError{
					Code:    aggregator.ESpillDirectoryFull,
					Message: "distinct store insert failed",
					Cause:   oerr,
				})
			}
			if store.ConsumeNearingFullWarning() {
				agg.Record(aggregator.ErrorEvent{
					Code:    aggregator.WSpillDirectoryNearingFull,
					Message: "spill directory usage crossed 80% of the configured budget",
				})
			}
			recordObservationEvents(agg, rowCount, colIdx, raw, outcome)
		}
	}

	hist := normalizer.Histogram()
	if hist.StylesObserved() >= 2 {
		agg.Record(aggregator.ErrorEvent{
			Code:    aggregator.WLineEndingInconsistent,
			Message: "more than one line-ending style observed",
		})
	}

	prof := &Profile{
		RunID: run.ID,
		File: FileSummary{
			Rows:         rowCount,
			Columns:      len(header.names),
			Delimiter:    delimiter,
			CRLFObserved: hist.CRLF,
			LFObserved:   hist.LF,
			CRObserved:   hist.CR,
			ByteSize:     src.TotalSize(),
			SHA256:       hex.EncodeToString(sumToSlice(src.SHA256())),
			BOMStripped:  validator.BOMStripped(),
		},
	}

	summaries := make([]keyengine.ColumnSummary, len(columns))
	for i, cp := range columns {
		dc, derr := cp.DistinctCount()
		if derr != nil {
			return nil, finalizeCatastrophic(run, agg, CatastrophicError{Code: aggregator.ESpillDirectoryFull, Message: "reading distinct count", Cause: derr})
		}
		cp.Flags.SetDistinctApprox(dc)
		finalType := cp.Flags.Resolve()
		cp.Descriptor.Type = finalType

		cprof := ColumnProfile{
			Ordinal:       i,
			Name:          cp.Descriptor.Name,
			Type:          finalType.String(),
			NullCount:     cp.NullCount,
			NonNullCount:  cp.NonNullCount,
			DistinctCount: dc,
			LengthMin:     cp.Length.Min,
			LengthMax:     cp.Length.Max,
			LengthAvg:     cp.Length.Avg(cp.NonNullCount),
			MoneyViolations: cp.Money.ViolationCount,
		}

		if finalType == profile.TypeNumeric || finalType == profile.TypeMoney {
			mean, ok, infSan := profile.Sanitize(cp.Welford.Mean, cp.Welford.Max, cp.Welford.Min, cp.Welford.Count > 0)
			if ok {
				cprof.Mean = &mean
			}
			cprof.InfinitySanitized = cprof.InfinitySanitized || infSan
			if sd := cp.Welford.Stddev(); !math.IsNaN(sd) {
				sdv, sok, sinf := profile.Sanitize(sd, cp.Welford.Max, cp.Welford.Min, true)
				if sok {
					cprof.Stddev = &sdv
				}
				cprof.InfinitySanitized = cprof.InfinitySanitized || sinf
			}
			if cp.Welford.Count > 0 {
				minV, maxV := cp.Welford.Min, cp.Welford.Max
				cprof.Min = &minV
				cprof.Max = &maxV
				if med, qerr := cp.Quantile(50); qerr == nil && !math.IsNaN(med) {
					cprof.Median = &med
				}
			}
		}

		if finalType == profile.TypeDate {
			cprof.DateFormat = profile.DateFormatName(cp.Flags.PinnedDateFormat())
			if min, max, ok := cp.Flags.DateMinMax(); ok {
				cprof.DateMin = min.Format("2006-01-02")
				cprof.DateMax = max.Format("2006-01-02")
			}
		}

		topk, terr := cp.FinalTopK(cfg.TopK)
		if terr == nil {
			cprof.TopK = topk
		}

		prof.Columns = append(prof.Columns, cprof)
		summaries[i] = keyengine.ColumnSummary{Ordinal: i, DistinctCount: dc, NullCount: cp.NullCount}
	}

	singleCandidates := keyengine.PhaseASingleColumn(summaries, rowCount)
	compoundCandidates, cerr := computeCompoundCandidates(path, cfg, delimiter, header, summaries, rowCount)
	if cerr != nil {
		return nil, finalizeCatastrophic(run, agg, CatastrophicError{Code: aggregator.ESpillDirectoryFull, Message: "compound hash count", Cause: cerr})
	}
	all := append(singleCandidates, compoundCandidates...)
	prof.CandidateKeys = keyengine.RankAndTrim(all)

	for _, r := range agg.Rollup() {
		if r.Severity == aggregator.SeverityWarning {
			prof.Warnings = append(prof.Warnings, r)
		} else {
			prof.Errors = append(prof.Errors, r)
		}
	}
	run.State = StateCompleted
	run.Progress = 1.0
	run.EndedAt = deps.Now()
	log.WithField("row_count", rowCount).Info("profile run completed")
	return prof, nil
}

func sumToSlice(a [32]byte) []byte {
	return a[:]
}

func wrapIOFailure(run *Run, err error) error {
	run.State = StateFailed
	return CatastrophicError{Code: aggregator.EIOError, Message: "opening input", Cause: err}
}

func finalizeCatastrophic(run *Run, agg *aggregator.Aggregator, err error) error {
	ce, ok := err.(CatastrophicError)
	if !ok {
		ce = CatastrophicError{Code: aggregator.EIOError, Message: err.Error(), Cause: err}
	}
	agg.Record(aggregator.ErrorEvent{Code: ce.Code, RowNumber: ce.Pos.Row, ColOrdinal: ce.Pos.ColOrdinal, Message: ce.Message})
	run.State = StateFailed
	return RunFailedError{Cause: ce, Rollup: agg.Rollup()}
}

func finalizeRollup(run *Run, agg *aggregator.Aggregator, rowsRead int64) error {
	run.State = StateFailed
	rollup := agg.Rollup()
	var cause CatastrophicError
	for _, r := range rollup {
		if r.Severity == aggregator.SeverityCatastrophic {
			cause = CatastrophicError{Code: r.Code, Message: r.Message}
			break
		}
	}
	return RunFailedError{Cause: cause, Rollup: rollup, RowsRead: rowsRead}
}

func recordObservationEvents(agg *aggregator.Aggregator, rowNum int64, colIdx int, raw string, outcome profile.ObserveOutcome) {
	if outcome.NumericViolation {
		agg.Record(aggregator.ErrorEvent{Code: aggregator.ENumericFormat, RowNumber: int(rowNum), ColOrdinal: colIdx, Sample: raw})
	}
	if outcome.MoneyViolation {
		agg.Record(aggregator.ErrorEvent{Code: aggregator.EMoneyFormat, RowNumber: int(rowNum), ColOrdinal: colIdx, Sample: raw})
	}
	if outcome.DateViolation {
		agg.Record(aggregator.ErrorEvent{Code: aggregator.EDateInvalid, RowNumber: int(rowNum), ColOrdinal: colIdx, Sample: raw})
	}
	if outcome.DateMixedNow {
		agg.Record(aggregator.ErrorEvent{Code: aggregator.EDateMixedFormat, RowNumber: int(rowNum), ColOrdinal: colIdx})
	}
	if outcome.DateRangeWarn {
		agg.Record(aggregator.ErrorEvent{Code: aggregator.WDateRange, RowNumber: int(rowNum), ColOrdinal: colIdx, Sample: raw})
	}
}

type headerInfo struct {
	names      []string
	duplicates []bool
}

func readHeader(scanner *csv.Scanner) (headerInfo, error) {
	row, err := scanner.NextRow()
	if err == io.EOF {
		return headerInfo{}, CatastrophicError{Code: aggregator.EHeaderMissing, Message: "file contains no rows"}
	}
	if err != nil {
		return headerInfo{}, CatastrophicError{Code: aggregator.EIOError, Message: "reading header", Cause: err}
	}
	if len(row.Fields) == 0 || (len(row.Fields) == 1 && row.Fields[0] == "") {
		return headerInfo{}, CatastrophicError{Code: aggregator.EHeaderEmpty, Message: "header row is empty"}
	}

	seen := make(map[string]bool, len(row.Fields))
	dup := make([]bool, len(row.Fields))
	for i, name := range row.Fields {
		if seen[name] {
			dup[i] = true
		}
		seen[name] = true
	}
	return headerInfo{names: row.Fields, duplicates: dup}, nil
}

func detectDelimiterFromPrefix(path string) (csv.DetectionResult, error) {
	src, err := bytesource.Open(path)
	if err != nil {
		return csv.DetectionResult{}, err
	}
	defer src.Close()

	const maxPrefix = 64 * 1024
	buf := make([]byte, maxPrefix)
	n, rerr := io.ReadFull(src, buf)
	if rerr != nil && rerr != io.ErrUnexpectedEOF && rerr != io.EOF {
		return csv.DetectionResult{}, rerr
	}
	return csv.DetectDelimiter(string(buf[:n])), nil
}

// computeCompoundCandidates implements spec §4.9's phase B: it re-opens
// the byte source and re-runs the ingest pipeline up to the CSV parser
// stage (the stateless-projection option from SPEC_FULL.md §11(c) — a
// fresh read rather than a distinct-store replay, since a compound key's
// joint tuples are never materialized together in the per-column
// trackers), and for every eligible column combination feeds each row's
// projected values through a dedicated distinct.CompoundHashCounter.
func computeCompoundCandidates(path string, cfg RunConfig, delimiter string, header headerInfo, summaries []keyengine.ColumnSummary, rowCount int64) ([]keyengine.CandidateKey, error) {
	eligible := keyengine.EligiblePhaseBColumns(summaries, rowCount)
	combos := keyengine.CompoundCombinations(eligible)
	if len(combos) == 0 {
		return nil, nil
	}

	scratch := distinct.NewInMemory()
	counters := make([]*distinct.CompoundHashCounter, len(combos))
	for i := range combos {
		counters[i] = distinct.NewCompoundHashCounter(scratch, i)
	}

	src, err := bytesource.Open(path)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	validator := utf8validate.New(src)
	normalizer := lineending.New(validator)
	scanner := csv.NewScanner(normalizer, delimiter[0], cfg.Quoting)
	if _, err := scanner.NextRow(); err != nil && err != io.EOF {
		return nil, err
	}

	for {
		row, rerr := scanner.NextRow()
		if rerr == io.EOF {
			break
		}
		if rerr != nil {
			return nil, rerr
		}
		if row.Empty || len(row.Fields) != len(header.names) {
			continue
		}
		for i, combo := range combos {
			values := make([]string, len(combo))
			for j, col := range combo {
				values[j] = row.Fields[col.Ordinal]
			}
			if _, err := counters[i].Add(0, values); err != nil {
				return nil, err
			}
		}
	}

	var out []keyengine.CandidateKey
	for i, combo := range combos {
		count, err := counters[i].Count()
		if err != nil {
			return nil, err
		}
		if ck, ok := keyengine.ScoreCompoundCandidate(combo, rowCount, count); ok {
			out = append(out, ck)
		}
	}
	return out, nil
}
