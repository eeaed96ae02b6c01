package profile

import "time"

// ColumnType is the tagged-union final classification of a column, per the
// "dynamic typing -> tagged variants" design note: a column is never two
// types at once in the final artifact, only during streaming does it carry
// several candidate flags simultaneously.
type ColumnType int

const (
	TypeUnknown ColumnType = iota
	TypeAlpha
	TypeVarchar
	TypeCode
	TypeNumeric
	TypeMoney
	TypeDate
	TypeMixed
)

func (t ColumnType) String() string {
	switch t {
	case TypeAlpha:
		return "alpha"
	case TypeVarchar:
		return "varchar"
	case TypeCode:
		return "code"
	case TypeNumeric:
		return "numeric"
	case TypeMoney:
		return "money"
	case TypeDate:
		return "date"
	case TypeMixed:
		return "mixed"
	default:
		return "unknown"
	}
}

const violationTolerance = 0.05 // 5%, per spec §4.6

// CandidateFlags tracks per-column type candidacy as values stream in.
// Each flag starts true; Observe only counts failures, and Resolve clears
// a flag once, against the final non-null count, when its failure rate
// exceeds the 5% tolerance.
type CandidateFlags struct {
	CanBeNumeric bool
	CanBeMoney   bool
	CanBeDate    bool
	CanBeCode    bool
	CanBeAlpha   bool

	numericFailures int64
	moneyFailures   int64
	dateFailures    int64

	nonNullCount int64
	maxLength    int

	pinnedDateFormat DateFormat
	dateFormatCounts map[DateFormat]int64

	dateMin, dateMax time.Time
	haveDate         bool

	dateMixedReported bool

	distinctApprox int64 // set by caller from the DistinctTracker at resolution time
}

// NewCandidateFlags returns flags with every candidate initially true.
func NewCandidateFlags() *CandidateFlags {
	return &CandidateFlags{
		CanBeNumeric:     true,
		CanBeMoney:       true,
		CanBeDate:        true,
		CanBeCode:        true,
		CanBeAlpha:       true,
		dateFormatCounts: make(map[DateFormat]int64),
	}
}

// ObserveResult carries the per-value outcome of Observe, so the caller
// (ColumnProfiler) knows which error events to push to the Aggregator.
type ObserveResult struct {
	NumericViolation bool
	MoneyViolation   bool
	DateViolation    bool
	DateMixedNow     bool // this call is the one that crossed the mixed-format threshold
	DateRangeWarn    bool
	ParsedDate       time.Time
	HasParsedDate    bool
}

// Observe folds one non-null value into the candidate flags. Every value
// is checked against every format regardless of how many prior values
// already failed it: whether a candidate survives is only decided once,
// in Resolve, against the column's final non-null count — deciding it
// mid-stream from a running rate lets a handful of early values (the
// only data point in a small column) permanently and wrongly disqualify
// a type that is within tolerance over the whole column.
func (c *CandidateFlags) Observe(value string, now time.Time) ObserveResult {
	c.nonNullCount++
	if len(value) > c.maxLength {
		c.maxLength = len(value)
	}

	var res ObserveResult

	if !IsNumeric(value) {
		c.numericFailures++
		res.NumericViolation = true
	}

	if !IsMoney(value) {
		c.moneyFailures++
		res.MoneyViolation = true
	}

	c.observeDate(value, now, &res)

	// Alpha has no format to fail; it only ever loses to a longer field
	// length classification at resolution time (varchar vs alpha), so
	// CanBeAlpha stays true unless explicitly cleared elsewhere (it never
	// is, in this design — alpha is the catch-all).

	return res
}

func (c *CandidateFlags) observeDate(value string, now time.Time, res *ObserveResult) {
	classification := ClassifyDate(value)

	if len(classification.Matches) == 0 {
		c.dateFailures++
		// Reserve E_DATE_INVALID for values that have the shape of a
		// format but fail calendar validity (e.g. 2024-02-30); ordinary
		// non-date text just counts against CanBeDate silently.
		if classification.CalendarInvalid {
			res.DateViolation = true
		}
		return
	}

	// Every format the value validly parses under gets a vote toward
	// mixed-format detection, including formats other than the column's
	// pinned one — a value that parses under a different supported format
	// is still a real date, not a failure.
	for _, m := range classification.Matches {
		c.dateFormatCounts[m]++
	}

	if c.pinnedDateFormat == DateFormatNone {
		// First value that parses tentatively pins the column's format.
		// If it parses under several (e.g. an ambiguous all-numeric
		// string), pin the first in priority order.
		c.pinnedDateFormat = classification.Matches[0]
	}
	use := c.pinnedDateFormat
	if !containsFormat(classification.Matches, use) {
		use = classification.Matches[0]
	}

	if t, ok := ParseExactDate(value, LayoutFor(use)); ok {
		res.HasParsedDate = true
		res.ParsedDate = t
		if DateRangeWarning(t, now) {
			res.DateRangeWarn = true
		}
		if !c.haveDate {
			c.dateMin, c.dateMax = t, t
			c.haveDate = true
		} else {
			if t.Before(c.dateMin) {
				c.dateMin = t
			}
			if t.After(c.dateMax) {
				c.dateMax = t
			}
		}
	}

	// Mixed-format detection: if >=2 formats each account for >5% of
	// values, emit E_DATE_MIXED_FORMAT once.
	if !c.dateMixedReported && c.countFormatsOverThreshold() >= 2 {
		c.dateMixedReported = true
		res.DateMixedNow = true
	}
}

func (c *CandidateFlags) countFormatsOverThreshold() int {
	threshold := float64(c.nonNullCount) * violationTolerance
	n := 0
	for _, cnt := range c.dateFormatCounts {
		if float64(cnt) > threshold {
			n++
		}
	}
	return n
}

// DateMinMax returns the observed min/max valid date, if any.
func (c *CandidateFlags) DateMinMax() (min, max time.Time, ok bool) {
	return c.dateMin, c.dateMax, c.haveDate
}

// PinnedDateFormat returns the format the column tentatively (or finally)
// pinned, or DateFormatNone if no date ever parsed.
func (c *CandidateFlags) PinnedDateFormat() DateFormat {
	return c.pinnedDateFormat
}

// MaxLength returns the longest raw non-null value length seen.
func (c *CandidateFlags) MaxLength() int {
	return c.maxLength
}

// SetDistinctApprox lets the caller feed in the column's distinct count
// for the code-detection rule at resolution time.
func (c *CandidateFlags) SetDistinctApprox(distinctCount int64) {
	c.distinctApprox = distinctCount
}

// Resolve implements spec §4.6's final type-resolution algorithm,
// evaluated once streaming ends. A column with no non-null values has
// nothing to classify and resolves to unknown regardless of which
// candidate flags still read true (every flag starts true and a
// zero-sample failure rate trivially satisfies any tolerance).
func (c *CandidateFlags) Resolve() ColumnType {
	if c.nonNullCount == 0 {
		return TypeUnknown
	}

	// Candidate survival is decided here, once, against the final
	// non-null count, rather than mid-stream against a running rate that
	// can misfire on a small sample.
	c.CanBeNumeric = !failureRateExceeds(c.numericFailures, c.nonNullCount)
	c.CanBeMoney = !failureRateExceeds(c.moneyFailures, c.nonNullCount)
	c.CanBeDate = !failureRateExceeds(c.dateFailures, c.nonNullCount)

	switch {
	case c.CanBeMoney:
		return TypeMoney
	case c.CanBeNumeric:
		return TypeNumeric
	case c.CanBeDate && c.pinnedDateFormat != DateFormatNone && !c.dateMixedAboveTolerance():
		return TypeDate
	case c.isCode():
		return TypeCode
	case c.CanBeAlpha:
		if c.maxLength > 255 {
			return TypeVarchar
		}
		return TypeAlpha
	case c.survivingCandidateCount() > 1:
		return TypeMixed
	default:
		return TypeUnknown
	}
}

func (c *CandidateFlags) dateMixedAboveTolerance() bool {
	return c.countFormatsOverThreshold() >= 2
}

func (c *CandidateFlags) isCode() bool {
	if c.nonNullCount < 100 {
		return false
	}
	if c.distinctApprox > 100 {
		return false
	}
	if c.nonNullCount == 0 {
		return false
	}
	return float64(c.distinctApprox)/float64(c.nonNullCount) < 0.01
}

func (c *CandidateFlags) survivingCandidateCount() int {
	n := 0
	if c.CanBeNumeric {
		n++
	}
	if c.CanBeMoney {
		n++
	}
	if c.CanBeDate {
		n++
	}
	if c.CanBeCode {
		n++
	}
	if c.CanBeAlpha {
		n++
	}
	return n
}

func failureRateExceeds(failures, total int64) bool {
	if total == 0 {
		return false
	}
	return float64(failures)/float64(total) > violationTolerance
}

func containsFormat(fs []DateFormat, target DateFormat) bool {
	for _, f := range fs {
		if f == target {
			return true
		}
	}
	return false
}
