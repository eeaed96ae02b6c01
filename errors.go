// Package dataprofiler is the streaming single-file data profiler: given a
// delimited text file (pipe or comma, optionally gzipped, UTF-8), it
// produces an exact profile without loading the file into memory. RunProfile
// is the entry point; Run and RunConfig describe one execution.
package dataprofiler

import (
	"fmt"

	"github.com/proflow/dataprofiler/aggregator"
	"github.com/proflow/dataprofiler/ingest/csv"
)

// CatastrophicError is a single catastrophic taxonomy event, carrying its
// code, position, and message — wraps the lower-level cause the same way
// the teacher's PreprocessorError/MSSQLUserError wrap a positional error
// up to the orchestration layer, rather than panicking across component
// boundaries.
type CatastrophicError struct {
	Code    aggregator.Code
	Pos     csv.Pos
	Message string
	Cause   error
}

func (e CatastrophicError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (%s): %s", e.Code, e.Pos, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s (%s)", e.Code, e.Pos, e.Message)
}

func (e CatastrophicError) Unwrap() error { return e.Cause }

// RunFailedError wraps a CatastrophicError together with the partial error
// roll-up collected before the run was abandoned, for the CLI layer to
// report without re-deriving it.
type RunFailedError struct {
	Cause   CatastrophicError
	Rollup  []aggregator.Rollup
	RowsRead int64
}

func (e RunFailedError) Error() string {
	return fmt.Sprintf("run failed: %s", e.Cause)
}

func (e RunFailedError) Unwrap() error { return e.Cause }

// CancelledError is returned when the run's context was cancelled before
// completion (exit code 4 at the CLI boundary).
type CancelledError struct {
	RowsRead int64
}

func (e CancelledError) Error() string {
	return fmt.Sprintf("run cancelled after %d rows", e.RowsRead)
}
