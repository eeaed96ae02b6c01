// Package csv implements the byte-driven row/field parser described by the
// profiler's ingestion pipeline: a finite state machine over normalized
// bytes, plus the delimiter auto-detector that runs ahead of it.
package csv

import "fmt"

// Pos locates a byte within the input file: the logical row (1-based,
// header is row 1), the field ordinal within that row (0-based), and the
// absolute byte offset from the start of the (decompressed, validated)
// stream. It is attached to every parser and type-validation error so the
// aggregator can report exact provenance without re-scanning the file.
type Pos struct {
	Row        int
	ColOrdinal int
	ByteOffset int64
}

func (p Pos) String() string {
	return fmt.Sprintf("row %d, col %d, offset %d", p.Row, p.ColOrdinal, p.ByteOffset)
}

// QuoteViolation records one instance of E_QUOTE_RULE_VIOLATION: a stray
// quote in an unquoted field, an unexpected byte following a closing quote,
// or an unterminated quoted field at EOF. The scanner accumulates these
// rather than halting, per the non-catastrophic propagation policy.
type QuoteViolation struct {
	Pos     Pos
	Message string
}

func (v QuoteViolation) Error() string {
	return fmt.Sprintf("%s: %s", v.Pos, v.Message)
}
