package csv

import "io"

// State names the FSM's five states exactly as spec §4.5 defines them.
type State int

const (
	FieldStart State = iota
	Unquoted
	Quoted
	QuoteInQuoted
	AfterRow
)

// RowResult is one logical row's fields plus any quote violations detected
// while scanning it.
type RowResult struct {
	Fields     []string
	Violations []QuoteViolation
	Empty      bool // zero bytes between two LFs — counted as E_ROW_EMPTY, not a data row
}

// Scanner is the byte-driven CSV parser FSM over a normalized (LF-only)
// stream. It mirrors the teacher's switch-on-rune dispatch scanner: a
// single ReadByte loop, explicit state transitions, no lookahead beyond
// one byte for the doubled-quote case.
type Scanner struct {
	src       io.ByteReader
	delimiter byte
	quoting   bool

	row    int
	offset int64
	state  State

	field      []byte
	fields     []string
	violations []QuoteViolation
}

// NewScanner constructs a Scanner over src. delimiter is one of ',', '|',
// '\t', ';'. quoting enables RFC-4180 double-quote handling.
func NewScanner(src io.ByteReader, delimiter byte, quoting bool) *Scanner {
	return &Scanner{
		src:       src,
		delimiter: delimiter,
		quoting:   quoting,
		row:       0,
		state:     FieldStart,
	}
}

// CurrentPos returns the position of the byte most recently consumed.
func (s *Scanner) CurrentPos() Pos {
	return Pos{Row: s.row + 1, ColOrdinal: len(s.fields), ByteOffset: s.offset}
}

// NextRow scans forward and returns the next logical row. Returns io.EOF
// (with a zero RowResult) once the stream is exhausted with no more data
// to emit.
func (s *Scanner) NextRow() (RowResult, error) {
	s.fields = nil
	s.violations = nil
	s.field = s.field[:0]
	rowStartOffset := s.offset
	byteCountThisRow := 0

	emit := func() {
		s.fields = append(s.fields, string(s.field))
		s.field = s.field[:0]
	}

	for {
		b, err := s.src.ReadByte()
		if err != nil {
			if err != io.EOF {
				return RowResult{}, err
			}
			return s.handleEOF(rowStartOffset, byteCountThisRow, emit)
		}
		s.offset++
		byteCountThisRow++

		switch s.state {
		case FieldStart:
			switch {
			case s.quoting && b == '"':
				s.state = Quoted
			case b == s.delimiter:
				emit()
				s.state = FieldStart
			case b == '\n':
				emit()
				s.row++
				return s.finishRow(rowStartOffset, byteCountThisRow), nil
			default:
				s.field = append(s.field, b)
				s.state = Unquoted
			}

		case Unquoted:
			switch {
			case b == s.delimiter:
				emit()
				s.state = FieldStart
			case b == '\n':
				emit()
				s.row++
				return s.finishRow(rowStartOffset, byteCountThisRow), nil
			case s.quoting && b == '"':
				s.violations = append(s.violations, QuoteViolation{
					Pos:     Pos{s.row + 1, len(s.fields), s.offset},
					Message: "stray quote in unquoted field",
				})
				s.field = append(s.field, b)
			default:
				s.field = append(s.field, b)
			}

		case Quoted:
			switch {
			case b == '"':
				s.state = QuoteInQuoted
			default:
				// LF, CR, delimiter: all literal inside a quoted field.
				s.field = append(s.field, b)
			}

		case QuoteInQuoted:
			switch {
			case b == '"':
				s.field = append(s.field, '"')
				s.state = Quoted
			case b == s.delimiter:
				emit()
				s.state = FieldStart
			case b == '\n':
				emit()
				s.row++
				return s.finishRow(rowStartOffset, byteCountThisRow), nil
			default:
				s.violations = append(s.violations, QuoteViolation{
					Pos:     Pos{s.row + 1, len(s.fields), s.offset},
					Message: "unexpected byte after closing quote",
				})
				s.field = append(s.field, b)
				s.state = Quoted
			}
		}
	}
}

func (s *Scanner) handleEOF(rowStart int64, byteCount int, emit func()) (RowResult, error) {
	if byteCount == 0 && len(s.fields) == 0 {
		return RowResult{}, io.EOF
	}
	switch s.state {
	case Quoted, QuoteInQuoted:
		s.violations = append(s.violations, QuoteViolation{
			Pos:     Pos{s.row + 1, len(s.fields), s.offset},
			Message: "unterminated quoted field at EOF",
		})
		emit()
	case FieldStart:
		if len(s.field) > 0 || len(s.fields) > 0 {
			emit()
		} else if byteCount == 0 {
			return RowResult{}, io.EOF
		}
	default:
		emit()
	}
	s.row++
	return s.finishRow(rowStart, byteCount), nil
}

func (s *Scanner) finishRow(rowStart int64, byteCount int) RowResult {
	empty := byteCount <= 1 && len(s.fields) == 1 && s.fields[0] == ""
	return RowResult{
		Fields:     append([]string(nil), s.fields...),
		Violations: append([]QuoteViolation(nil), s.violations...),
		Empty:      empty,
	}
}
