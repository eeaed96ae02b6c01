package csv

import (
	"math"
	"strings"
)

// candidateDelimiters is the fixed set the detector scores, in spec order.
var candidateDelimiters = []byte{',', '|', '\t', ';'}

// DetectionResult names the winning delimiter and the confidence the
// scorer assigned it.
type DetectionResult struct {
	Delimiter  byte
	Confidence float64
}

// DetectDelimiter scores each candidate over a bounded prefix (the caller
// is responsible for capping it at 64 KiB, spec §4.4) and returns the
// highest-scoring candidate. Quoted occurrences of the delimiter are not
// special-cased here — the detector works on raw per-line counts, which is
// sufficient for the heuristic's purpose of picking a default.
func DetectDelimiter(prefix string) DetectionResult {
	lines := splitLinesRespectingQuotes(prefix)
	if len(lines) == 0 {
		return DetectionResult{Delimiter: ',', Confidence: 0}
	}

	type scored struct {
		delim byte
		raw   float64
		conf  float64
	}
	scores := make([]scored, 0, len(candidateDelimiters))
	maxRaw := 0.0
	for _, d := range candidateDelimiters {
		counts := make([]float64, 0, len(lines))
		for _, line := range lines {
			counts = append(counts, float64(strings.Count(line, string(d))))
		}
		raw, conf := scoreCandidate(counts)
		scores = append(scores, scored{d, raw, conf})
		if raw > maxRaw {
			maxRaw = raw
		}
	}

	best := DetectionResult{Delimiter: ',', Confidence: 0}
	bestRaw := -1.0
	for _, s := range scores {
		if s.raw > bestRaw {
			bestRaw = s.raw
			confidence := s.conf
			if maxRaw > 0 {
				// scale consistency by how dominant this candidate's raw
				// per-line occurrence count is relative to the field.
				confidence = s.conf * (s.raw / maxRaw)
			}
			best = DetectionResult{Delimiter: s.delim, Confidence: confidence}
		}
	}
	return best
}

// scoreCandidate implements median-occurrences x consistency, where
// consistency = 1 - stddev/mean, clamped to [0,1]. Returns the raw
// (unbounded) median*consistency score plus the bounded consistency term
// alone, so the caller can combine per-candidate scores into a [0,1]
// confidence relative to the best-performing candidate.
func scoreCandidate(counts []float64) (raw, consistency float64) {
	if len(counts) == 0 {
		return 0, 0
	}
	mean := 0.0
	for _, c := range counts {
		mean += c
	}
	mean /= float64(len(counts))
	if mean == 0 {
		return 0, 0
	}

	variance := 0.0
	for _, c := range counts {
		d := c - mean
		variance += d * d
	}
	variance /= float64(len(counts))
	stddev := math.Sqrt(variance)

	consistency = 1 - stddev/mean
	if consistency < 0 {
		consistency = 0
	}
	if consistency > 1 {
		consistency = 1
	}

	median := medianOf(counts)
	raw = median * consistency
	return raw, consistency
}

func medianOf(xs []float64) float64 {
	sorted := append([]float64(nil), xs...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j-1] > sorted[j]; j-- {
			sorted[j-1], sorted[j] = sorted[j], sorted[j-1]
		}
	}
	n := len(sorted)
	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// splitLinesRespectingQuotes splits prefix on LF, but does not split inside
// a double-quoted span — a best-effort scan since the detector runs before
// the delimiter (and therefore the real parser) is known.
func splitLinesRespectingQuotes(prefix string) []string {
	var lines []string
	var cur strings.Builder
	inQuotes := false
	for i := 0; i < len(prefix); i++ {
		c := prefix[i]
		switch {
		case c == '"':
			inQuotes = !inQuotes
			cur.WriteByte(c)
		case c == '\n' && !inQuotes:
			lines = append(lines, cur.String())
			cur.Reset()
		default:
			cur.WriteByte(c)
		}
	}
	if cur.Len() > 0 {
		lines = append(lines, cur.String())
	}
	return lines
}
