// Package packed implements the non-entropy-coded sensor payload
// decompressors of spec §4.7: fixed-width bit-packed unpackers, the
// deflate+floating-point-predictor path used by DNG's SampleFormat=3
// strips, legacy LZW-compressed TIFF-based strips, and the baseline-JPEG
// upsampling path for lossy-JPEG-compressed raw tiles.
package packed

import "fmt"

// Kind enumerates this package's failure modes.
type Kind int

const (
	TruncatedInput Kind = iota
	UnsupportedLayout
	InflateFailed
)

func (k Kind) String() string {
	switch k {
	case TruncatedInput:
		return "TruncatedInput"
	case UnsupportedLayout:
		return "UnsupportedLayout"
	case InflateFailed:
		return "InflateFailed"
	default:
		return "Unknown"
	}
}

// Error reports a packed-format decompression failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("packed: %s: %s", e.Kind, e.Msg) }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
