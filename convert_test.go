package rawdng

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
)

// buildG9TIFF assembles a minimal single-strip, 8-bit uncompressed classic
// TIFF identifying as a Canon PowerShot G9 (internal/catalog's
// tiff-raw-packed builtin), the shape Convert/Describe dispatch against.
func buildG9TIFF(width, height int, pixels []byte) []byte {
	const (
		tagImageWidth      = 0x0100
		tagImageLength     = 0x0101
		tagBitsPerSample   = 0x0102
		tagCompression     = 0x0103
		tagMake            = 0x010f
		tagModel           = 0x0110
		tagStripOffsets    = 0x0111
		tagSamplesPerPixel = 0x0115
		tagRowsPerStrip    = 0x0116
		tagStripByteCounts = 0x0117
		headerLen          = 8
	)
	type ent struct {
		id, typ    uint16
		count, val uint32
	}
	entries := []ent{
		{tagImageWidth, uint16(tiff.TLong), 1, uint32(width)},
		{tagImageLength, uint16(tiff.TLong), 1, uint32(height)},
		{tagBitsPerSample, uint16(tiff.TShort), 1, 8},
		{tagCompression, uint16(tiff.TShort), 1, 1},
		{tagSamplesPerPixel, uint16(tiff.TShort), 1, 1},
		{tagRowsPerStrip, uint16(tiff.TLong), 1, uint32(height)},
		{tagMake, uint16(tiff.TAscii), 6, 0},
		{tagModel, uint16(tiff.TAscii), 20, 0},
		{tagStripOffsets, uint16(tiff.TLong), 1, 0},
		{tagStripByteCounts, uint16(tiff.TLong), 1, uint32(len(pixels))},
	}
	ifdLen := 2 + len(entries)*12 + 4
	makeOff := headerLen + ifdLen
	model := []byte("Canon PowerShot G9\x00")
	modelOff := makeOff + 8
	stripOff := modelOff + len(model)

	buf := make([]byte, stripOff+len(pixels))
	binary.LittleEndian.PutUint16(buf[0:2], 0x4949)
	binary.LittleEndian.PutUint16(buf[2:4], 42)
	binary.LittleEndian.PutUint32(buf[4:8], headerLen)

	off := headerLen
	binary.LittleEndian.PutUint16(buf[off:off+2], uint16(len(entries)))
	off += 2
	for _, e := range entries {
		v := e.val
		switch e.id {
		case tagMake:
			v = uint32(makeOff)
		case tagModel:
			v = uint32(modelOff)
		case tagStripOffsets:
			v = uint32(stripOff)
		}
		binary.LittleEndian.PutUint16(buf[off:off+2], e.id)
		binary.LittleEndian.PutUint16(buf[off+2:off+4], e.typ)
		binary.LittleEndian.PutUint32(buf[off+4:off+8], e.count)
		binary.LittleEndian.PutUint32(buf[off+8:off+12], v)
		off += 12
	}
	binary.LittleEndian.PutUint32(buf[off:off+4], 0)
	copy(buf[makeOff:], []byte("Canon\x00"))
	copy(buf[modelOff:], model)
	copy(buf[stripOff:], pixels)
	return buf
}

func TestConvertProducesDecodableDNG(t *testing.T) {
	req := require.New(t)
	const w, h = 4, 2
	pixels := []byte{0, 1, 2, 3, 4, 5, 6, 7}
	src := source.FromBytes(buildG9TIFF(w, h, pixels))

	out, err := Convert(src, ConvertParams{Compression: Uncompressed}, nil)
	req.NoError(err)
	req.NotEmpty(out)

	r, firstIFD, err := tiff.NewReader(source.FromBytes(out))
	req.NoError(err)
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	req.NoError(err)
	subs := ifd0.ChildrenOfKind("SubIFD")
	req.Len(subs, 1)
	req.Equal(uint32(w), subs[0].FirstU32(0x0100))
	req.Equal(uint32(h), subs[0].FirstU32(0x0101))
}

func TestDescribeReportsLayoutWithoutDecoding(t *testing.T) {
	req := require.New(t)
	const w, h = 4, 2
	src := source.FromBytes(buildG9TIFF(w, h, []byte{0, 1, 2, 3, 4, 5, 6, 7}))

	desc, err := Describe(src)
	req.NoError(err)
	req.Equal(w, desc.Width)
	req.Equal(h, desc.Height)
	req.Equal("Canon PowerShot G9", desc.Camera.Model)
	req.Equal("uncompressed", desc.Compression)
	req.False(desc.Tiled)
}

func TestConvertExtractRoundTrip(t *testing.T) {
	req := require.New(t)
	const w, h = 4, 2
	original := buildG9TIFF(w, h, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	out, err := Convert(source.FromBytes(original), ConvertParams{Compression: Uncompressed, Embedded: true}, nil)
	req.NoError(err)

	recovered, err := Extract(source.FromBytes(out), false, nil)
	req.NoError(err)
	req.Equal(original, recovered)
}

func TestExtractUnsupportedWithoutEmbed(t *testing.T) {
	req := require.New(t)
	const w, h = 4, 2
	original := buildG9TIFF(w, h, []byte{0, 1, 2, 3, 4, 5, 6, 7})

	out, err := Convert(source.FromBytes(original), ConvertParams{Compression: Uncompressed}, nil)
	req.NoError(err)

	_, err = Extract(source.FromBytes(out), false, nil)
	req.Error(err)
	var rerr *Error
	req.ErrorAs(err, &rerr)
	req.Equal(Unsupported, rerr.Kind)
}
