package profile

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 7, 31, 0, 0, 0, 0, time.UTC)

func TestCandidateFlags_AllMoneyResolvesToMoney(t *testing.T) {
	c := NewCandidateFlags()
	for _, v := range []string{"1.00", "2.50", "19.99"} {
		c.Observe(v, fixedNow)
	}
	c.SetDistinctApprox(3)
	assert.Equal(t, TypeMoney, c.Resolve())
}

func TestCandidateFlags_SingleMoneyFormatFailureDisqualifiesMoneyEntirely(t *testing.T) {
	c := NewCandidateFlags()
	c.Observe("1.00", fixedNow)
	c.Observe("2.5", fixedNow) // one fractional digit: fails strict money, still passes numeric
	c.SetDistinctApprox(2)
	assert.NotEqual(t, TypeMoney, c.Resolve())
	assert.Equal(t, TypeNumeric, c.Resolve())
}

func TestCandidateFlags_AllIntegersResolveToNumeric(t *testing.T) {
	c := NewCandidateFlags()
	for _, v := range []string{"1", "2", "300"} {
		c.Observe(v, fixedNow)
	}
	c.SetDistinctApprox(3)
	assert.Equal(t, TypeNumeric, c.Resolve())
}

func TestCandidateFlags_ConsistentDateFormatResolvesToDate(t *testing.T) {
	c := NewCandidateFlags()
	for _, v := range []string{"2024-01-15", "2024-02-20", "2024-03-01"} {
		c.Observe(v, fixedNow)
	}
	c.SetDistinctApprox(3)
	assert.Equal(t, TypeDate, c.Resolve())
	assert.Equal(t, DateFormatYYYYMMDDHyphen, c.PinnedDateFormat())
}

func TestCandidateFlags_FirstDateValuePinsFormatForRestOfColumn(t *testing.T) {
	c := NewCandidateFlags()
	res := c.Observe("01/02/2024", fixedNow) // ambiguous: matches both MM/DD and DD/MM
	require.True(t, res.HasParsedDate)
	assert.Equal(t, DateFormatMMDDYYYYSlash, c.PinnedDateFormat())
}

func TestCandidateFlags_FewDateFormatViolationsWithinToleranceStillResolvesDate(t *testing.T) {
	c := NewCandidateFlags()
	values := make([]string, 0, 40)
	for i := 0; i < 38; i++ {
		values = append(values, "2024-01-15")
	}
	values = append(values, "not-a-date", "also-not-a-date")
	for _, v := range values {
		c.Observe(v, fixedNow)
	}
	c.SetDistinctApprox(2)
	assert.Equal(t, TypeDate, c.Resolve())
	assert.True(t, c.CanBeDate)
}

func TestCandidateFlags_DateFailuresBeyondToleranceClearCanBeDate(t *testing.T) {
	c := NewCandidateFlags()
	values := []string{"2024-01-15", "x", "y", "z"} // 3/4 failures, way over 5%
	for _, v := range values {
		c.Observe(v, fixedNow)
	}
	c.Resolve()
	assert.False(t, c.CanBeDate)
}

func TestCandidateFlags_MixedDateFormatsAboveThresholdDisqualifiesDate(t *testing.T) {
	c := NewCandidateFlags()
	var sawMixed bool
	for i := 0; i < 10; i++ {
		c.Observe("2024-01-15", fixedNow)
	}
	for i := 0; i < 10; i++ {
		res := c.Observe("20240115", fixedNow)
		if res.DateMixedNow {
			sawMixed = true
		}
	}
	c.SetDistinctApprox(2)
	assert.True(t, sawMixed)
	assert.NotEqual(t, TypeDate, c.Resolve())
}

func TestCandidateFlags_ShortCodeLikeColumnResolvesToCode(t *testing.T) {
	c := NewCandidateFlags()
	for i := 0; i < 150; i++ {
		c.Observe("ZZ", fixedNow) // fails numeric/money/date every time
	}
	c.SetDistinctApprox(1)
	assert.Equal(t, TypeCode, c.Resolve())
}

func TestCandidateFlags_LongTextResolvesToVarchar(t *testing.T) {
	c := NewCandidateFlags()
	long := make([]byte, 300)
	for i := range long {
		long[i] = 'a'
	}
	c.Observe(string(long), fixedNow)
	c.SetDistinctApprox(1)
	assert.Equal(t, TypeVarchar, c.Resolve())
}

func TestCandidateFlags_ShortTextResolvesToAlpha(t *testing.T) {
	c := NewCandidateFlags()
	c.Observe("hello world", fixedNow)
	c.SetDistinctApprox(1)
	assert.Equal(t, TypeAlpha, c.Resolve())
}

func TestCandidateFlags_NoNonNullValuesResolvesToUnknown(t *testing.T) {
	c := NewCandidateFlags()
	assert.Equal(t, TypeUnknown, c.Resolve())
}

func TestCandidateFlags_SmallColumnSingleMoneyViolationWithinToleranceStillResolvesMoney(t *testing.T) {
	c := NewCandidateFlags()
	c.Observe("10.00", fixedNow)
	c.Observe("$9.99", fixedNow) // fails strict money format
	c.Observe("5.00", fixedNow)
	c.SetDistinctApprox(3)
	assert.Equal(t, TypeMoney, c.Resolve())
}

func TestCandidateFlags_ValueMatchingNonPinnedFormatVotesForItsOwnFormat(t *testing.T) {
	c := NewCandidateFlags()
	var sawMixed bool
	for i := 0; i < 10; i++ {
		res := c.Observe("2024-01-15", fixedNow)
		if res.DateMixedNow {
			sawMixed = true
		}
	}
	for i := 0; i < 10; i++ {
		res := c.Observe("01/15/2024", fixedNow) // different supported format, not a failure
		if res.DateMixedNow {
			sawMixed = true
		}
	}
	c.SetDistinctApprox(2)
	assert.True(t, sawMixed)
	assert.NotEqual(t, TypeDate, c.Resolve())
}

func TestCandidateFlags_CalendarInvalidDateRaisesViolationButOrdinaryTextDoesNot(t *testing.T) {
	c := NewCandidateFlags()
	res := c.Observe("Alice", fixedNow)
	assert.False(t, res.DateViolation)

	c2 := NewCandidateFlags()
	res2 := c2.Observe("2024-02-30", fixedNow) // shape matches YYYY-MM-DD, no such day
	assert.True(t, res2.DateViolation)
}
