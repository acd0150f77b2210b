package tiff

import "fmt"

// errStop is the sentinel of the teacher's stop/recover convention for
// streaming decoders (see bep-imagemeta's streamReader.stop). Nothing in
// this package panics it: readOneIFD panics *FormatError values directly,
// and readIFDChain recovers any panicked error.
var errStop = fmt.Errorf("tiff: stop")

// FormatError reports a structural problem with a TIFF/BigTIFF container,
// tagged with one of the Kind values below so callers can distinguish
// "this isn't a TIFF at all" from "this TIFF is corrupt".
type FormatError struct {
	Kind Kind
	Msg  string
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("tiff: %s: %s", e.Kind, e.Msg)
}

// Kind enumerates the container-reader failure modes from spec §4.2.
type Kind int

const (
	TruncatedHeader Kind = iota
	BadMagic
	BadTagCount
	OffsetOutOfRange
	RecursionLimit
	CycleDetected
	NotCoercible
)

func (k Kind) String() string {
	switch k {
	case TruncatedHeader:
		return "TruncatedHeader"
	case BadMagic:
		return "BadMagic"
	case BadTagCount:
		return "BadTagCount"
	case OffsetOutOfRange:
		return "OffsetOutOfRange"
	case RecursionLimit:
		return "RecursionLimit"
	case CycleDetected:
		return "CycleDetected"
	case NotCoercible:
		return "NotCoercible"
	default:
		return "Unknown"
	}
}

func newFormatError(kind Kind, format string, args ...any) *FormatError {
	return &FormatError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}
