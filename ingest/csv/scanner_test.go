package csv

import (
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scanAll(t *testing.T, input string, delimiter byte, quoting bool) []RowResult {
	t.Helper()
	s := NewScanner(strings.NewReader(input), delimiter, quoting)
	var rows []RowResult
	for {
		row, err := s.NextRow()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		rows = append(rows, row)
	}
	return rows
}

func TestScanner_SimpleRows(t *testing.T) {
	rows := scanAll(t, "a,b,c\n1,2,3\n", ',', true)
	require.Len(t, rows, 2)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0].Fields)
	assert.Equal(t, []string{"1", "2", "3"}, rows[1].Fields)
	assert.Empty(t, rows[0].Violations)
}

func TestScanner_QuotedFieldWithEmbeddedDelimiterAndNewline(t *testing.T) {
	rows := scanAll(t, "\"hello, world\",\"line1\nline2\"\n", ',', true)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"hello, world", "line1\nline2"}, rows[0].Fields)
}

func TestScanner_DoubledQuoteEscapesOneQuote(t *testing.T) {
	rows := scanAll(t, "\"she said \"\"hi\"\"\"\n", ',', true)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{`she said "hi"`}, rows[0].Fields)
}

func TestScanner_MissingFinalNewlineStillEmitsLastRow(t *testing.T) {
	rows := scanAll(t, "a,b", ',', true)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b"}, rows[0].Fields)
}

func TestScanner_UnterminatedQuoteAtEOFRecordsViolation(t *testing.T) {
	rows := scanAll(t, "\"unterminated", ',', true)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Violations, 1)
	assert.Contains(t, rows[0].Violations[0].Message, "unterminated")
}

func TestScanner_StrayQuoteInUnquotedFieldRecordsViolationButKeepsParsing(t *testing.T) {
	rows := scanAll(t, "a\"b,c\n", ',', true)
	require.Len(t, rows, 1)
	require.Len(t, rows[0].Violations, 1)
	assert.Equal(t, []string{`a"b`, "c"}, rows[0].Fields)
}

func TestScanner_EmptyRowBetweenDataRows(t *testing.T) {
	rows := scanAll(t, "a,b\n\nc,d\n", ',', true)
	require.Len(t, rows, 3)
	assert.True(t, rows[1].Empty)
}

func TestScanner_PipeDelimiter(t *testing.T) {
	rows := scanAll(t, "a|b|c\n", '|', true)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{"a", "b", "c"}, rows[0].Fields)
}

func TestScanner_QuotingDisabledTreatsQuoteAsLiteralByte(t *testing.T) {
	rows := scanAll(t, "\"a\",b\n", ',', false)
	require.Len(t, rows, 1)
	assert.Equal(t, []string{`"a"`, "b"}, rows[0].Fields)
}

func TestScanner_EmptyInputYieldsNoRows(t *testing.T) {
	rows := scanAll(t, "", ',', true)
	assert.Empty(t, rows)
}
