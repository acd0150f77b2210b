// Package source provides a uniform, read-only, random-access view over
// either a memory-mapped file or an in-memory buffer.
//
// It is the one component every decoder in this module is built on: the
// TIFF/BMFF readers, the CRX and LJPEG decompressors and the DNG writer's
// original-file embedder all borrow byte ranges from a Source rather than
// copying the input, so a multi-gigabyte RAW file never needs a second
// resident copy.
package source

import "fmt"

// minPadding is the number of guaranteed zero bytes past the logical end of
// a SubviewPadded range. Bitstream decoders (CRX, LJPEG) may fetch a full
// machine word past the last meaningful byte; this padding makes that safe
// without every decoder re-deriving its own bounds check.
const minPadding = 16

// Source is an immutable byte range with random access. All returned slices
// alias the underlying mapping or buffer; callers must not retain them past
// the Source's Close.
type Source interface {
	// Len returns the total addressable length in bytes.
	Len() int

	// Subview returns the len bytes starting at off. It is an error if
	// off+len exceeds Len.
	Subview(off, length int) ([]byte, error)

	// SubviewPadded returns a slice of at least length bytes starting at
	// off, where any bytes past Len() are zero. The returned slice is at
	// least length+minPadding bytes wherever that much exists past off,
	// guaranteeing decoders that over-read by up to minPadding bytes never
	// fault.
	SubviewPadded(off, length int) ([]byte, error)

	// SubviewUntilEOF returns every byte from off to the end of the source.
	SubviewUntilEOF(off int) ([]byte, error)

	// Close releases the underlying mapping. After Close, no Subview* call
	// is valid.
	Close() error
}

// OutOfRangeError is returned when a requested range falls outside the
// Source's addressable bytes.
type OutOfRangeError struct {
	Off, Len, Total int
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("source: range [%d:%d) out of bounds (len %d)", e.Off, e.Off+e.Len, e.Total)
}

// buffer is a Source backed by an in-memory byte slice, used by tests and
// any other caller that already holds the bytes (rather than a path to
// mmap).
type buffer struct {
	b []byte
}

// FromBytes wraps an in-memory buffer as a Source. The buffer is borrowed,
// not copied; the caller must not mutate it while the Source is in use.
func FromBytes(b []byte) Source {
	return &buffer{b: b}
}

func (s *buffer) Len() int { return len(s.b) }

func (s *buffer) Subview(off, length int) ([]byte, error) {
	if off < 0 || length < 0 || off+length > len(s.b) {
		return nil, &OutOfRangeError{off, length, len(s.b)}
	}
	return s.b[off : off+length], nil
}

func (s *buffer) SubviewPadded(off, length int) ([]byte, error) {
	if off < 0 || length < 0 || off > len(s.b) {
		return nil, &OutOfRangeError{off, length, len(s.b)}
	}
	avail := len(s.b) - off
	if avail >= length+minPadding {
		return s.b[off : off+length+minPadding], nil
	}
	out := make([]byte, length+minPadding)
	n := avail
	if n > length {
		n = length
	}
	if n > 0 {
		copy(out, s.b[off:off+n])
	}
	return out, nil
}

func (s *buffer) SubviewUntilEOF(off int) ([]byte, error) {
	if off < 0 || off > len(s.b) {
		return nil, &OutOfRangeError{off, 0, len(s.b)}
	}
	return s.b[off:], nil
}

func (s *buffer) Close() error { return nil }
