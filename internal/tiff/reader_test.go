package tiff

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rawforge/rawdng/internal/source"
)

// buildClassicTIFF assembles a minimal little-endian classic TIFF with a
// single IFD0 containing the given entries (id, type, count, inline-or-offset
// value already resolved by the caller). Entries must already fit inline
// (<=4 bytes) for this helper to stay simple; tests that need out-of-line
// data append it manually and pass the resulting offset as the value.
type entry struct {
	id    uint16
	typ   Type
	count uint32
	value []byte // exactly 4 bytes, inline or an offset
}

func buildClassicTIFF(entries []entry, trailer []byte) []byte {
	const ifdOffset = 8
	headerLen := 8
	ifdLen := 2 + len(entries)*12 + 4
	buf := make([]byte, headerLen+ifdLen+len(trailer))

	binary.LittleEndian.PutUint16(buf[0:2], leHeader)
	binary.LittleEndian.PutUint16(buf[2:4], classicMagic)
	binary.LittleEndian.PutUint32(buf[4:8], uint32(ifdOffset))

	binary.LittleEndian.PutUint16(buf[ifdOffset:ifdOffset+2], uint16(len(entries)))
	off := ifdOffset + 2
	for _, e := range entries {
		binary.LittleEndian.PutUint16(buf[off:off+2], e.id)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(e.typ))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], e.count)
		copy(buf[off+8:off+12], e.value)
		off += 12
	}
	// NextOffset = 0, already zeroed.
	copy(buf[headerLen+ifdLen:], trailer)
	return buf
}

func u32le(v uint32) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint32(b, v)
	return b
}

func u16le(v uint16) []byte {
	b := make([]byte, 4)
	binary.LittleEndian.PutUint16(b, v)
	return b
}

func TestNewReaderClassicLittleEndian(t *testing.T) {
	c := qt.New(t)
	data := buildClassicTIFF([]entry{
		{id: 0x0100, typ: TShort, count: 1, value: u16le(4000)},
	}, nil)

	r, firstIFD, err := NewReader(source.FromBytes(data))
	c.Assert(err, qt.IsNil)
	c.Assert(firstIFD, qt.Equals, int64(8))
	c.Assert(r.ByteOrder(), qt.Equals, binary.ByteOrder(binary.LittleEndian))
}

func TestNewReaderBadMagic(t *testing.T) {
	c := qt.New(t)
	_, _, err := NewReader(source.FromBytes([]byte("not a tiff file at all!!")))
	c.Assert(err, qt.Not(qt.IsNil))
	var fe *FormatError
	c.Assert(err, qt.ErrorAs, &fe)
	c.Assert(fe.Kind, qt.Equals, BadMagic)
}

func TestReadIFDScalarTags(t *testing.T) {
	c := qt.New(t)
	data := buildClassicTIFF([]entry{
		{id: 0x0100, typ: TLong, count: 1, value: u32le(6000)},
		{id: 0x0101, typ: TLong, count: 1, value: u32le(4000)},
	}, nil)

	r, firstIFD, err := NewReader(source.FromBytes(data))
	c.Assert(err, qt.IsNil)

	ifd, err := r.ReadIFD("IFD0", firstIFD)
	c.Assert(err, qt.IsNil)
	c.Assert(ifd.FirstU32(0x0100), qt.Equals, uint32(6000))
	c.Assert(ifd.FirstU32(0x0101), qt.Equals, uint32(4000))
}

func TestReadIFDCycleDetected(t *testing.T) {
	c := qt.New(t)
	// A SubIFD tag pointing back at IFD0 itself must be rejected rather
	// than looping forever.
	data := buildClassicTIFF([]entry{
		{id: TagSubIFDs, typ: TLong, count: 1, value: u32le(8)},
	}, nil)

	r, firstIFD, err := NewReader(source.FromBytes(data))
	c.Assert(err, qt.IsNil)

	_, err = r.ReadIFD("IFD0", firstIFD)
	c.Assert(err, qt.Not(qt.IsNil))
	var fe *FormatError
	c.Assert(err, qt.ErrorAs, &fe)
	c.Assert(fe.Kind, qt.Equals, CycleDetected)
}

func TestReadIFDFollowsSubIFD(t *testing.T) {
	c := qt.New(t)

	// Hand-place a child IFD after the parent's trailer so we can point
	// SubIFDs at a fixed, known offset.
	headerLen := 8
	parentEntries := []entry{
		{id: TagSubIFDs, typ: TLong, count: 1, value: nil}, // patched below
	}
	ifdLen := 2 + len(parentEntries)*12 + 4
	childOffset := uint32(headerLen + ifdLen)
	parentEntries[0].value = u32le(childOffset)

	child := buildClassicTIFF([]entry{
		{id: 0x0100, typ: TShort, count: 1, value: u16le(1234)},
	}, nil)
	// Strip the child's own 8-byte header; we only want its IFD body,
	// re-pointed at by the parent.
	childIFDBody := child[8:]

	data := buildClassicTIFF(parentEntries, childIFDBody)

	r, firstIFD, err := NewReader(source.FromBytes(data))
	c.Assert(err, qt.IsNil)

	ifd, err := r.ReadIFD("IFD0", firstIFD)
	c.Assert(err, qt.IsNil)

	subs := ifd.ChildrenOfKind("SubIFD")
	c.Assert(len(subs), qt.Equals, 1)
	c.Assert(subs[0].FirstU32(0x0100), qt.Equals, uint32(1234))
}

func TestReadChainFollowsNextOffset(t *testing.T) {
	c := qt.New(t)

	// IFD0 with NextOffset pointing at IFD1, both trivial (no entries).
	// Layout: header(8) | ifd0: count(2)=0 + next(4) | ifd1: count(2)=0 + next(4)=0
	buf := make([]byte, 8+6+6)
	binary.LittleEndian.PutUint16(buf[0:2], leHeader)
	binary.LittleEndian.PutUint16(buf[2:4], classicMagic)
	binary.LittleEndian.PutUint32(buf[4:8], 8)

	binary.LittleEndian.PutUint16(buf[8:10], 0)     // ifd0 count = 0
	binary.LittleEndian.PutUint32(buf[10:14], 14)   // ifd0 next -> ifd1 at 14
	binary.LittleEndian.PutUint16(buf[14:16], 0)    // ifd1 count = 0
	binary.LittleEndian.PutUint32(buf[16:20], 0)    // ifd1 next = 0

	r, firstIFD, err := NewReader(source.FromBytes(buf))
	c.Assert(err, qt.IsNil)

	chain, err := r.ReadChain(firstIFD, []string{"IFD0", "IFD1"})
	c.Assert(err, qt.IsNil)
	c.Assert(len(chain), qt.Equals, 2)
	c.Assert(chain[0].Kind, qt.Equals, "IFD0")
	c.Assert(chain[1].Kind, qt.Equals, "IFD1")
}
