package crx

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestBitReaderUnaryAndBits(t *testing.T) {
	c := qt.New(t)
	// 0001 1010 -> 3 leading zeros then terminator, then 1010 as 4 bits.
	br := newBitReader([]byte{0b00011010})
	c.Assert(br.readUnary1(), qt.Equals, uint32(3))
	c.Assert(br.read(4), qt.Equals, uint32(0b1010))
}

func TestRiceDecodeNoEscape(t *testing.T) {
	c := qt.New(t)
	// k=2: prefix "01" (1 zero then terminator) then 2 remainder bits "11".
	br := newBitReader([]byte{0b01110000})
	d := newRiceDecoder(br)
	d.k = 2
	val := d.decode(40, 9)
	c.Assert(val, qt.Equals, uint32(1<<2|0b11))
}

func TestPredictKParamMaxClampsToMax(t *testing.T) {
	c := qt.New(t)
	k := predictKParamMax(7, 1000, 8)
	c.Assert(k, qt.Equals, uint32(8))
}

func TestSignedMapFolding(t *testing.T) {
	c := qt.New(t)
	c.Assert(signedMap(0), qt.Equals, int32(0))
	c.Assert(signedMap(1), qt.Equals, int32(-1))
	c.Assert(signedMap(2), qt.Equals, int32(1))
	c.Assert(signedMap(3), qt.Equals, int32(-2))
}

func TestClampSample(t *testing.T) {
	c := qt.New(t)
	c.Assert(clampSample(-5, 12), qt.Equals, uint16(0))
	c.Assert(clampSample(5000, 12), qt.Equals, uint16(1<<12-1))
	c.Assert(clampSample(1<<20, 12), qt.Equals, uint16(1<<12-1))
}
