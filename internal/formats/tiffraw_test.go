package formats

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/registry"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
)

// buildStrippedTIFF assembles a minimal single-strip, 8-bit uncompressed
// classic TIFF with Make/Model/ImageWidth/ImageLength/StripOffsets, the
// shape tiffIdentity and tiffRawDecoder both need.
func buildStrippedTIFF(width, height int, pixels []byte) []byte {
	const headerLen = 8
	entries := []struct {
		id    uint16
		typ   tiff.Type
		count uint32
		value uint32
	}{}
	add := func(id uint16, typ tiff.Type, count uint32, value uint32) {
		entries = append(entries, struct {
			id    uint16
			typ   tiff.Type
			count uint32
			value uint32
		}{id, typ, count, value})
	}
	add(tagImageWidth, tiff.TLong, 1, uint32(width))
	add(tagImageLength, tiff.TLong, 1, uint32(height))
	add(tagBitsPerSample, tiff.TShort, 1, 8)
	add(tagCompression, tiff.TShort, 1, compUncompressed)
	add(tagSamplesPerPixel, tiff.TShort, 1, 1)
	add(tagRowsPerStrip, tiff.TLong, 1, uint32(height))
	add(0x010f, tiff.TAscii, 8, 0)  // Make, patched below
	add(0x0110, tiff.TAscii, 8, 0)  // Model, patched below
	add(tagStripOffsets, tiff.TLong, 1, 0)    // patched below
	add(tagStripByteCounts, tiff.TLong, 1, uint32(len(pixels)))

	ifdLen := 2 + len(entries)*12 + 4
	makeOff := headerLen + ifdLen
	modelOff := makeOff + 8
	stripOff := modelOff + 8

	buf := make([]byte, stripOff+len(pixels))
	binary.LittleEndian.PutUint16(buf[0:2], 0x4949)
	binary.LittleEndian.PutUint16(buf[2:4], 42)
	binary.LittleEndian.PutUint32(buf[4:8], headerLen)

	off := headerLen
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(entries)))
	off += 2
	for _, e := range entries {
		v := e.value
		switch e.id {
		case 0x010f:
			v = uint32(makeOff)
		case 0x0110:
			v = uint32(modelOff)
		case tagStripOffsets:
			v = uint32(stripOff)
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], e.id)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], uint16(e.typ))
		binary.LittleEndian.PutUint32(buf[off+4:off+8], e.count)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], v)
		off += 12
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], 0) // NextOffset
	copy(buf[makeOff:], []byte("Acme\x00\x00\x00\x00"))
	copy(buf[modelOff:], []byte("X100\x00\x00\x00\x00"))
	copy(buf[stripOff:], pixels)
	return buf
}

func TestTiffIdentityReadsMakeModel(t *testing.T) {
	c := qt.New(t)
	data := buildStrippedTIFF(4, 2, make([]byte, 8))

	make_, model, mode, err := tiffIdentity(source.FromBytes(data))
	c.Assert(err, qt.IsNil)
	c.Assert(make_, qt.Equals, "Acme")
	c.Assert(model, qt.Equals, "X100")
	c.Assert(mode, qt.Equals, "")
}

func TestPackedTiffDecoderRoundTripsUncompressed8Bit(t *testing.T) {
	c := qt.New(t)
	const w, h = 4, 2
	pixels := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	data := buildStrippedTIFF(w, h, pixels)

	cam := catalog.Camera{Make: "Acme", Model: "X100", WhiteLevel: 0xffff, CFAPattern: [4]uint8{0, 1, 1, 2}}
	dec, err := newPackedTiffDecoder(source.FromBytes(data), cam)
	c.Assert(err, qt.IsNil)

	img, err := dec.RawImage(rawimage.Params{})
	c.Assert(err, qt.IsNil)
	c.Assert(img.Width, qt.Equals, w)
	c.Assert(img.Height, qt.Equals, h)
	c.Assert(len(img.Pixels16), qt.Equals, w*h)
	// unpackUncompressed's 8-bit path left-shifts each byte by 8.
	c.Assert(img.Pixels16[0], qt.Equals, uint16(0))
	c.Assert(img.Pixels16[3], qt.Equals, uint16(3<<8))

	ld, ok := dec.(registry.LayoutDescriber)
	c.Assert(ok, qt.IsTrue)
	layout, err := ld.Layout()
	c.Assert(err, qt.IsNil)
	c.Assert(layout.Width, qt.Equals, w)
	c.Assert(layout.Height, qt.Equals, h)
	c.Assert(layout.Tiled, qt.IsFalse)
	c.Assert(layout.Compression, qt.Equals, "uncompressed")
}
