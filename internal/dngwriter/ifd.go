package dngwriter

import (
	"encoding/binary"
	"sort"

	"github.com/rawforge/rawdng/internal/tiff"
)

// field is one not-yet-serialized IFD entry: a typed value plus the raw
// bytes it will encode to (little-endian, matching this writer's fixed
// output byte order). Values that fit in 4 bytes are inlined at
// serialization time; larger ones spill into the IFD's own overflow area.
type field struct {
	tag   uint16
	typ   tiff.Type
	count uint32
	data  []byte
}

// builder accumulates a single IFD's fields before they are all known
// (tile offsets, sub-IFD offsets, overflow blobs), implementing spec
// §4.8's "reserve IFD slots ... back-patch *Offsets/*ByteCounts" policy:
// fields are set as their dependencies are produced, and the IFD is only
// serialized to bytes once every field is final.
type builder struct {
	fields []field
}

func (b *builder) addByte(tag uint16, vals []byte) {
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TByte, count: uint32(len(vals)), data: append([]byte(nil), vals...)})
}

func (b *builder) addAscii(tag uint16, s string) {
	data := append([]byte(s), 0)
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TAscii, count: uint32(len(data)), data: data})
}

func (b *builder) addShort(tag uint16, vals ...uint16) {
	data := make([]byte, 2*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint16(data[2*i:], v)
	}
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TShort, count: uint32(len(vals)), data: data})
}

func (b *builder) addLong(tag uint16, vals ...uint32) {
	data := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[4*i:], v)
	}
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TLong, count: uint32(len(vals)), data: data})
}

func (b *builder) addRational(tag uint16, vals ...[2]uint32) {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[8*i:], v[0])
		binary.LittleEndian.PutUint32(data[8*i+4:], v[1])
	}
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TRational, count: uint32(len(vals)), data: data})
}

func (b *builder) addSRational(tag uint16, vals ...[2]int32) {
	data := make([]byte, 8*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(data[8*i:], uint32(v[0]))
		binary.LittleEndian.PutUint32(data[8*i+4:], uint32(v[1]))
	}
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TSRational, count: uint32(len(vals)), data: data})
}

func (b *builder) addUndefined(tag uint16, raw []byte) {
	b.fields = append(b.fields, field{tag: tag, typ: tiff.TUndefined, count: uint32(len(raw)), data: append([]byte(nil), raw...)})
}

// has reports whether tag was already added, so callers building IFD0
// conditionally (e.g. only add SubIFDs when a raw SubIFD exists) can avoid
// double registration.
func (b *builder) has(tag uint16) bool {
	for _, f := range b.fields {
		if f.tag == tag {
			return true
		}
	}
	return false
}

// serialize emits this IFD's bytes as they will appear at absolute file
// offset base: a u16 entry count, the sorted (ascending tag id, per TIFF
// 6.0 §2) 12-byte entry table, a u32 next-IFD-offset (always 0 here; this
// writer never chains top-level IFDs, using SubIFDs instead), then the
// overflow pool for any field whose value didn't fit inline.
func (b *builder) serialize(base int64) []byte {
	sorted := append([]field(nil), b.fields...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].tag < sorted[j].tag })

	n := len(sorted)
	headerLen := 2 + 12*n + 4
	entries := make([]byte, 12*n)
	var overflow []byte

	for i, f := range sorted {
		off := i * 12
		binary.LittleEndian.PutUint16(entries[off:], f.tag)
		binary.LittleEndian.PutUint16(entries[off+2:], uint16(f.typ))
		binary.LittleEndian.PutUint32(entries[off+4:], f.count)
		if len(f.data) <= 4 {
			copy(entries[off+8:off+12], f.data)
			continue
		}
		valOff := base + int64(headerLen) + int64(len(overflow))
		binary.LittleEndian.PutUint32(entries[off+8:], uint32(valOff))
		overflow = append(overflow, f.data...)
		if len(overflow)%2 == 1 {
			overflow = append(overflow, 0) // TIFF values begin on a word boundary
		}
	}

	out := make([]byte, 0, headerLen+len(overflow))
	var countBuf [2]byte
	binary.LittleEndian.PutUint16(countBuf[:], uint16(n))
	out = append(out, countBuf[:]...)
	out = append(out, entries...)
	out = append(out, 0, 0, 0, 0) // next IFD offset
	out = append(out, overflow...)
	return out
}
