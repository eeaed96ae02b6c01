// Package utf8validate is a streaming filter that enforces UTF-8
// well-formedness byte by byte, strips a leading BOM, and reports the
// exact offset of the first invalid sequence (spec §4.2). The bytes it
// emits are identical to the bytes it consumes, except for the stripped
// BOM — it is the identity function otherwise (property P8).
package utf8validate

import (
	"fmt"
	"io"
)

const (
	maxRune      = 0x10FFFF
	surrogateMin = 0xD800
	surrogateMax = 0xDFFF
)

// InvalidUTF8Error is the catastrophic E_UTF8_INVALID event: the first
// offending byte's offset from the start of the stream, counting a
// stripped BOM's three bytes.
type InvalidUTF8Error struct {
	ByteOffset int64
	Reason     string
}

func (e InvalidUTF8Error) Error() string {
	return fmt.Sprintf("invalid UTF-8 at byte offset %d: %s", e.ByteOffset, e.Reason)
}

// Validator decodes and re-emits a UTF-8 byte stream one rune at a time,
// rejecting overlong encodings, surrogate halves, code points beyond
// U+10FFFF, and sequences truncated by EOF.
type Validator struct {
	src        io.ByteReader
	offset     int64
	bomChecked bool
	bomStripped bool

	buf    [4]byte
	buflen int
	bufpos int
}

// New wraps src. The caller must have already applied gzip decompression.
func New(src io.ByteReader) *Validator {
	return &Validator{src: src}
}

// BOMStripped reports whether a leading EF BB BF was consumed and
// discarded (the informational BOM_STRIPPED event).
func (v *Validator) BOMStripped() bool {
	return v.bomStripped
}

// ReadByte returns the next validated byte of the stream, or an
// InvalidUTF8Error the instant a malformed sequence is detected.
func (v *Validator) ReadByte() (byte, error) {
	if !v.bomChecked {
		if err := v.stripBOM(); err != nil {
			return 0, err
		}
	}
	if v.bufpos < v.buflen {
		b := v.buf[v.bufpos]
		v.bufpos++
		return b, nil
	}
	if err := v.fillNextRune(); err != nil {
		return 0, err
	}
	if v.buflen == 0 {
		return 0, io.EOF
	}
	b := v.buf[0]
	v.bufpos = 1
	return b, nil
}

func (v *Validator) stripBOM() error {
	v.bomChecked = true
	first, err := v.src.ReadByte()
	if err == io.EOF {
		return nil
	}
	if err != nil {
		return err
	}
	if first != 0xEF {
		v.buf[0] = first
		v.buflen = 1
		v.offset++
		return nil
	}
	second, err := v.src.ReadByte()
	if err == io.EOF {
		v.buf[0] = first
		v.buflen = 1
		v.offset++
		return nil
	}
	if err != nil {
		return err
	}
	if second != 0xBB {
		v.buf[0], v.buf[1] = first, second
		v.buflen = 2
		v.offset += 2
		return nil
	}
	third, err := v.src.ReadByte()
	if err == io.EOF {
		v.buf[0], v.buf[1] = first, second
		v.buflen = 2
		v.offset += 2
		return nil
	}
	if err != nil {
		return err
	}
	if third != 0xBF {
		v.buf[0], v.buf[1], v.buf[2] = first, second, third
		v.buflen = 3
		v.offset += 3
		return nil
	}
	v.bomStripped = true
	v.offset += 3
	return nil
}

// fillNextRune reads and validates one complete UTF-8 sequence into v.buf,
// leaving v.buflen/v.bufpos set to consume it byte by byte. Sets buflen=0
// on clean EOF.
func (v *Validator) fillNextRune() error {
	startOffset := v.offset
	b0, err := v.src.ReadByte()
	if err == io.EOF {
		v.buflen = 0
		return nil
	}
	if err != nil {
		return err
	}
	v.offset++

	switch {
	case b0 < 0x80:
		v.buf[0] = b0
		v.buflen = 1
		v.bufpos = 0
		return nil
	case b0&0xE0 == 0xC0:
		return v.fillContinuation(startOffset, b0, 2, 0x80)
	case b0&0xF0 == 0xE0:
		return v.fillContinuation(startOffset, b0, 3, 0x800)
	case b0&0xF8 == 0xF0:
		return v.fillContinuation(startOffset, b0, 4, 0x10000)
	default:
		return InvalidUTF8Error{startOffset, "invalid leading byte"}
	}
}

func (v *Validator) fillContinuation(startOffset int64, b0 byte, width int, minCodepoint int) error {
	v.buf[0] = b0
	cp := int(b0) & (0xFF >> uint(width+1))
	for i := 1; i < width; i++ {
		bi, err := v.src.ReadByte()
		if err == io.EOF {
			return InvalidUTF8Error{startOffset, "truncated multi-byte sequence at EOF"}
		}
		if err != nil {
			return err
		}
		if bi&0xC0 != 0x80 {
			return InvalidUTF8Error{startOffset, "expected continuation byte"}
		}
		v.offset++
		v.buf[i] = bi
		cp = (cp << 6) | int(bi&0x3F)
	}
	v.buflen = width
	v.bufpos = 0

	if cp < minCodepoint {
		return InvalidUTF8Error{startOffset, "overlong encoding"}
	}
	if cp >= surrogateMin && cp <= surrogateMax {
		return InvalidUTF8Error{startOffset, "surrogate half in UTF-8 stream"}
	}
	if cp > maxRune {
		return InvalidUTF8Error{startOffset, "code point exceeds U+10FFFF"}
	}
	return nil
}
