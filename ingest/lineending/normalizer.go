// Package lineending observes CRLF/LF/CR occurrences in a raw byte stream
// and normalizes every physical line terminator to a single LF, the form
// the CSV parser requires (spec §4.3). It runs downstream of the UTF-8
// validator and upstream of the CSV scanner.
package lineending

import "io"

// Histogram tallies how many times each line-terminator style was observed
// in the pre-normalization stream.
type Histogram struct {
	CRLF int
	LF   int
	CR   int
}

// StylesObserved reports how many distinct terminator styles occurred;
// the pipeline raises W_LINE_ENDING_INCONSISTENT when this is >= 2.
func (h Histogram) StylesObserved() int {
	n := 0
	if h.CRLF > 0 {
		n++
	}
	if h.LF > 0 {
		n++
	}
	if h.CR > 0 {
		n++
	}
	return n
}

// Normalizer wraps an io.Reader of validated UTF-8 bytes and rewrites every
// CRLF, lone CR, or lone LF into a single LF, while tallying a Histogram of
// the original styles. It is a streaming filter: constant memory, one byte
// of lookahead (to tell a CRLF from a lone CR).
type Normalizer struct {
	src  io.ByteReader
	hist Histogram

	pendingCR  bool
	stashed    byte
	hasStashed bool
}

// New wraps r, which must support ReadByte (bytesource.Source and
// bufio.Reader both do).
func New(src io.ByteReader) *Normalizer {
	return &Normalizer{src: src}
}

// Histogram returns the terminator counts observed so far. Safe to call
// after the stream has been fully consumed for a final, stable value.
func (n *Normalizer) Histogram() Histogram {
	return n.hist
}

// ReadByte returns the next normalized byte. Every terminator — CRLF, lone
// CR, or lone LF — is surfaced to the caller as exactly one 0x0A.
func (n *Normalizer) ReadByte() (byte, error) {
	if n.pendingCR {
		// We already consumed a CR last call and deferred deciding whether
		// it was part of a CRLF. Resolve it now.
		n.pendingCR = false
		b, err := n.src.ReadByte()
		if err != nil {
			if err == io.EOF {
				n.hist.CR++
				return '\n', nil
			}
			return 0, err
		}
		if b == '\n' {
			n.hist.CRLF++
			return '\n', nil
		}
		n.hist.CR++
		// b belongs to the next logical read; stash it by re-wrapping is not
		// possible with a plain ByteReader, so we special-case a one-byte
		// buffer here.
		n.stashed = b
		n.hasStashed = true
		return '\n', nil
	}

	if n.hasStashed {
		n.hasStashed = false
		b := n.stashed
		if b == '\r' {
			n.pendingCR = true
			return n.ReadByte()
		}
		if b == '\n' {
			n.hist.LF++
			return '\n', nil
		}
		return b, nil
	}

	b, err := n.src.ReadByte()
	if err != nil {
		return 0, err
	}
	switch b {
	case '\r':
		n.pendingCR = true
		return n.ReadByte()
	case '\n':
		n.hist.LF++
		return '\n', nil
	default:
		return b, nil
	}
}
