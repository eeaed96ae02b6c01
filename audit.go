package dataprofiler

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"time"
)

// AuditRecord is the Produced/Audit artifact from spec §6: a compact,
// reviewer-facing summary of one run that never carries raw field values,
// only shape and error counts — suitable for long-term retention once the
// full Profile has been consumed downstream.
type AuditRecord struct {
	InputSHA256    string
	ByteCount      int64
	RowCount       int64
	ColumnCount    int
	Delimiter      string
	UTF8Valid      bool
	ProcessingTime time.Duration
	ErrorsByCode   map[string]int64
}

// BuildAuditRecord derives the audit record from a completed Profile and
// the run's recorded timing.
func BuildAuditRecord(run *Run, prof *Profile) AuditRecord {
	byCode := make(map[string]int64, len(prof.Errors)+len(prof.Warnings))
	for _, r := range prof.Errors {
		byCode[string(r.Code)] = int64(r.Count)
	}
	for _, r := range prof.Warnings {
		byCode[string(r.Code)] = int64(r.Count)
	}
	return AuditRecord{
		InputSHA256:    prof.File.SHA256,
		ByteCount:      prof.File.ByteSize,
		RowCount:       prof.File.Rows,
		ColumnCount:    prof.File.Columns,
		Delimiter:      prof.File.Delimiter,
		UTF8Valid:      true, // a run that reached this point never hit E_UTF8_INVALID
		ProcessingTime: run.EndedAt.Sub(run.StartedAt),
		ErrorsByCode:   byCode,
	}
}

// WriteMetricsCSV emits the spec §6 "metrics row stream" — one record per
// column with name, type, row_count, null_count, null_pct, distinct_count,
// min, max, mean, median, stddev — suitable for a CLI's --metrics-out file.
func WriteMetricsCSV(w io.Writer, prof *Profile) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	header := []string{"name", "type", "row_count", "null_count", "null_pct", "distinct_count", "min", "max", "mean", "median", "stddev"}
	if err := cw.Write(header); err != nil {
		return err
	}

	rowCount := prof.File.Rows
	for _, c := range prof.Columns {
		record := []string{
			c.Name,
			c.Type,
			strconv.FormatInt(rowCount, 10),
			strconv.FormatInt(c.NullCount, 10),
			formatPct(c.NullCount, rowCount),
			strconv.FormatInt(c.DistinctCount, 10),
			formatFloatPtr(c.Min),
			formatFloatPtr(c.Max),
			formatFloatPtr(c.Mean),
			formatFloatPtr(c.Median),
			formatFloatPtr(c.Stddev),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	return cw.Error()
}

func formatPct(n, total int64) string {
	if total == 0 {
		return "0"
	}
	return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 4, 64)
}

func formatFloatPtr(f *float64) string {
	if f == nil {
		return ""
	}
	return strconv.FormatFloat(*f, 'f', -1, 64)
}

// String renders the audit record for the --debug flag / human inspection.
func (a AuditRecord) String() string {
	return fmt.Sprintf("audit{sha256=%s bytes=%d rows=%d columns=%d delimiter=%q utf8_valid=%t took=%s errors=%d}",
		a.InputSHA256, a.ByteCount, a.RowCount, a.ColumnCount, a.Delimiter, a.UTF8Valid, a.ProcessingTime, len(a.ErrorsByCode))
}
