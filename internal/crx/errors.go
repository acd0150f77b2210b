package crx

import "fmt"

// Kind enumerates the CRX decoder's failure modes, per spec §4.5.
type Kind int

const (
	BitstreamUnderflow Kind = iota
	InvalidSubbandLength
	BadKParam
	UnsupportedEncodingType
)

func (k Kind) String() string {
	switch k {
	case BitstreamUnderflow:
		return "BitstreamUnderflow"
	case InvalidSubbandLength:
		return "InvalidSubbandLength"
	case BadKParam:
		return "BadKParam"
	case UnsupportedEncodingType:
		return "UnsupportedEncodingType"
	default:
		return "Unknown"
	}
}

// Error reports a CRX decode failure.
type Error struct {
	Kind Kind
	Msg  string
}

func (e *Error) Error() string { return fmt.Sprintf("crx: %s: %s", e.Kind, e.Msg) }

func newError(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

var errRunOverflow = newError(InvalidSubbandLength, "run-length count exceeds remaining coefficients")
