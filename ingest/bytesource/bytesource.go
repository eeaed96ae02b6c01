// Package bytesource wraps a seekable file handle, transparently inflating
// gzip content when the stream starts with the magic bytes 1F 8B, and
// tracks a running compressed-byte offset for progress reporting (spec
// §4.1).
package bytesource

import (
	"bufio"
	"crypto/sha256"
	"fmt"
	"hash"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"
)

// IOError wraps an underlying read failure against the file handle;
// surfaces as the catastrophic E_IO code at the run level.
type IOError struct {
	Err error
}

func (e IOError) Error() string { return fmt.Sprintf("io error: %s", e.Err) }
func (e IOError) Unwrap() error { return e.Err }

// CodecError wraps a gzip decode failure; surfaces as the catastrophic
// E_CODEC code.
type CodecError struct {
	Err error
}

func (e CodecError) Error() string { return fmt.Sprintf("codec error: %s", e.Err) }
func (e CodecError) Unwrap() error { return e.Err }

// Source is a byte-level reader over a file, transparently decompressing
// gzip content. It counts compressed bytes consumed (progress numerator)
// and exposes the compressed file size (progress denominator).
type Source struct {
	file       *os.File
	raw        *countingReader
	reader     io.Reader
	br         *bufio.Reader
	compressed bool
	totalSize  int64
}

// Open opens path and sniffs the first two bytes for the gzip magic
// number. totalSize is the on-disk size used as the progress denominator
// regardless of whether the content is compressed.
func Open(path string) (*Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, IOError{err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, IOError{err}
	}

	hasher := sha256.New()
	cr := &countingReader{r: io.TeeReader(f, hasher), hasher: hasher}
	peek := bufio.NewReader(cr)
	magic, err := peek.Peek(2)
	if err != nil && err != io.EOF {
		f.Close()
		return nil, IOError{err}
	}

	s := &Source{
		file:      f,
		raw:       cr,
		totalSize: info.Size(),
	}

	if len(magic) == 2 && magic[0] == 0x1F && magic[1] == 0x8B {
		gz, err := gzip.NewReader(peek)
		if err != nil {
			f.Close()
			return nil, CodecError{err}
		}
		s.compressed = true
		s.reader = gz
	} else {
		s.reader = peek
	}
	s.br = bufio.NewReader(s.reader)
	return s, nil
}

// ReadByte implements io.ByteReader.
func (s *Source) ReadByte() (byte, error) {
	b, err := s.br.ReadByte()
	if err != nil && err != io.EOF {
		return 0, IOError{err}
	}
	return b, err
}

// Read implements io.Reader for bulk consumption paths (delimiter
// detector's bounded prefix read).
func (s *Source) Read(p []byte) (int, error) {
	n, err := s.br.Read(p)
	if err != nil && err != io.EOF {
		return n, IOError{err}
	}
	return n, err
}

// CompressedBytesRead returns the number of compressed bytes consumed from
// the underlying file so far — the progress numerator.
func (s *Source) CompressedBytesRead() int64 {
	return s.raw.n
}

// TotalSize returns the on-disk (compressed, if applicable) file size — the
// progress denominator.
func (s *Source) TotalSize() int64 {
	return s.totalSize
}

// Compressed reports whether gzip decompression was interposed.
func (s *Source) Compressed() bool {
	return s.compressed
}

// Close releases the underlying file handle.
func (s *Source) Close() error {
	return s.file.Close()
}

type countingReader struct {
	r      io.Reader
	n      int64
	hasher hash.Hash
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

// SHA256 returns the running sha256 digest of every raw (pre-decompression)
// byte read from the file so far. Call after the stream has been fully
// consumed for a stable final digest over the whole file.
func (s *Source) SHA256() [32]byte {
	var sum [32]byte
	copy(sum[:], s.raw.hasher.Sum(nil))
	return sum
}
