package aggregator

// SamplesPerCode bounds how many sample values are retained per code (S=10
// in spec §4.10).
const SamplesPerCode = 10

// ErrorEvent is one observation pushed to the Aggregator: a taxonomy code,
// optional positional context, and an optional sample value never
// persisted beyond SamplesPerCode occurrences per code.
type ErrorEvent struct {
	Code       Code
	RowNumber  int // 0 means "not applicable"
	ColOrdinal int // -1 means "not applicable"
	Sample     string
	Message    string
}

// codeRollup accumulates a single code's count and bounded sample set,
// preserving first-seen order.
type codeRollup struct {
	Code     Code
	Severity Severity
	Count    int
	Samples  []string
	Message  string
}

// Rollup is the final first-seen-ordered view of everything the Aggregator
// recorded, per spec §4.10's `rollup()`.
type Rollup struct {
	Code     Code
	Severity Severity
	Count    int
	Samples  []string
	Message  string
}

// Aggregator is the run's single error-event sink. It is not safe for
// concurrent use from multiple goroutines without external locking, but
// per spec §5 every run executes on one dedicated worker, so none is
// needed internally; the zero value is ready to use.
type Aggregator struct {
	order   []Code
	byCode  map[Code]*codeRollup
	halted  bool
	haltMsg string
}

// NewAggregator returns a ready-to-use Aggregator.
func NewAggregator() *Aggregator {
	return &Aggregator{byCode: make(map[Code]*codeRollup)}
}

// Record files one ErrorEvent. O(1) amortized. The first catastrophic
// event flips HasCatastrophic(); callers must check it after every Record
// and abandon work promptly per the cooperative-cancellation contract.
func (a *Aggregator) Record(e ErrorEvent) {
	if a.byCode == nil {
		a.byCode = make(map[Code]*codeRollup)
	}
	r, ok := a.byCode[e.Code]
	if !ok {
		r = &codeRollup{Code: e.Code, Severity: SeverityOf(e.Code), Message: e.Message}
		a.byCode[e.Code] = r
		a.order = append(a.order, e.Code)
	}
	r.Count++
	if e.Sample != "" && len(r.Samples) < SamplesPerCode {
		r.Samples = append(r.Samples, e.Sample)
	}
	if r.Severity == SeverityCatastrophic && !a.halted {
		a.halted = true
		a.haltMsg = e.Message
	}
}

// HasCatastrophic reports whether any catastrophic code has been recorded.
func (a *Aggregator) HasCatastrophic() bool {
	return a.halted
}

// Rollup returns every recorded code in first-seen order.
func (a *Aggregator) Rollup() []Rollup {
	out := make([]Rollup, 0, len(a.order))
	for _, code := range a.order {
		r := a.byCode[code]
		out = append(out, Rollup{
			Code:     r.Code,
			Severity: r.Severity,
			Count:    r.Count,
			Samples:  append([]string(nil), r.Samples...),
			Message:  r.Message,
		})
	}
	return out
}

// CountOf returns how many times code was recorded (0 if never).
func (a *Aggregator) CountOf(code Code) int {
	r, ok := a.byCode[code]
	if !ok {
		return 0
	}
	return r.Count
}
