package source

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBufferSubview(t *testing.T) {
	c := qt.New(t)
	s := FromBytes([]byte("hello world"))
	c.Assert(s.Len(), qt.Equals, 11)

	b, err := s.Subview(6, 5)
	c.Assert(err, qt.IsNil)
	c.Assert(string(b), qt.Equals, "world")

	_, err = s.Subview(6, 100)
	c.Assert(err, qt.Not(qt.IsNil))
}

func TestBufferSubviewPadded(t *testing.T) {
	c := qt.New(t)
	s := FromBytes([]byte("abcdef"))

	b, err := s.SubviewPadded(2, 4)
	c.Assert(err, qt.IsNil)
	c.Assert(len(b) >= 4+minPadding, qt.IsTrue)
	c.Assert(string(b[:4]), qt.Equals, "cdef")
	for _, z := range b[4:] {
		c.Assert(z, qt.Equals, byte(0))
	}
}

func TestBufferSubviewPaddedNearEOF(t *testing.T) {
	c := qt.New(t)
	s := FromBytes([]byte("abc"))

	// Request more than is available; the tail must be zero-padded rather
	// than erroring, since decoders rely on over-reads being safe.
	b, err := s.SubviewPadded(1, 10)
	c.Assert(err, qt.IsNil)
	c.Assert(len(b), qt.Equals, 10+minPadding)
	c.Assert(string(b[:2]), qt.Equals, "bc")
	for _, z := range b[2:] {
		c.Assert(z, qt.Equals, byte(0))
	}
}

func TestBufferSubviewUntilEOF(t *testing.T) {
	c := qt.New(t)
	s := FromBytes([]byte("0123456789"))

	b, err := s.SubviewUntilEOF(7)
	c.Assert(err, qt.IsNil)
	c.Assert(string(b), qt.Equals, "789")
}

func TestBufferOutOfRange(t *testing.T) {
	c := qt.New(t)
	s := FromBytes([]byte("xy"))

	_, err := s.SubviewUntilEOF(5)
	c.Assert(err, qt.Not(qt.IsNil))

	var oor *OutOfRangeError
	c.Assert(err, qt.ErrorAs, &oor)
}
