package dngwriter

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/embed"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
)

func syntheticRawImage(width, height int) *rawimage.RawImage {
	pixels := make([]uint16, width*height)
	for i := range pixels {
		pixels[i] = uint16(i % 4096)
	}
	return &rawimage.RawImage{
		Camera: catalog.Camera{
			Make: "Acme", Model: "X100",
			WhiteLevel: 4095,
			CFAPattern: [4]uint8{0, 1, 1, 2},
		},
		Width: width, Height: height,
		ComponentsPerPixel: 1,
		BitDepth:           12,
		CFAPattern:         [4]uint8{0, 1, 1, 2},
		CFASize:            2,
		ActiveAreaRect:     rawimage.Rect{Top: 0, Left: 0, Bottom: uint32(height), Right: uint32(width)},
		CropRect:           rawimage.Rect{Top: 0, Left: 0, Bottom: uint32(height), Right: uint32(width)},
		WhiteLevels:        [4]uint32{4095, 4095, 4095, 4095},
		Pixels16:           pixels,
		Metadata: rawimage.Metadata{
			Make: "Acme", Model: "X100",
		},
	}
}

// TestWriteProducesReadableIFDChain covers spec §8's "every Convert output
// parses back as a well-formed TIFF/DNG" invariant: IFD0's SubIFDs tag must
// resolve to a raw SubIFD carrying the tile geometry Write chose.
func TestWriteProducesReadableIFDChain(t *testing.T) {
	req := require.New(t)
	img := syntheticRawImage(32, 16)

	out, err := Write(img, rawimage.Params{Compression: rawimage.Uncompressed}, nil, nil, nil)
	req.NoError(err)
	req.NotEmpty(out)

	r, firstIFD, err := tiff.NewReader(source.FromBytes(out))
	req.NoError(err)
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	req.NoError(err)

	_, ok := ifd0.Tag(tagDNGVersion)
	req.True(ok)

	subs := ifd0.ChildrenOfKind("SubIFD")
	req.Len(subs, 1)
	raw := subs[0]
	req.Equal(uint32(32), raw.FirstU32(tagImageWidth))
	req.Equal(uint32(16), raw.FirstU32(tagImageLength))
	req.Equal(uint32(1), raw.FirstU32(tagCompression))

	offsets, err := mustTag(raw, tagTileOffsets).AsU32Slice()
	req.NoError(err)
	counts, err := mustTag(raw, tagTileByteCounts).AsU32Slice()
	req.NoError(err)
	req.Equal(len(offsets), len(counts))
	req.NotEmpty(offsets)
}

func mustTag(ifd *tiff.IFD, id uint16) tiff.Tag {
	t, _ := ifd.Tag(id)
	return t
}

// TestWriteEmbedsOriginalRecoverableByDecompress covers spec §4.9's
// embed/extract round trip from the writer side: embed.Decompress on the
// bytes Write placed under OriginalRawFileData must reproduce the original
// source bytes and match the stored digest.
func TestWriteEmbedsOriginalRecoverableByDecompress(t *testing.T) {
	req := require.New(t)
	img := syntheticRawImage(8, 8)
	img.OriginalBytes = []byte("pretend this is a CR3 file's raw bytes")
	img.OriginalName = "IMG_0001.CR3"

	out, err := Write(img, rawimage.Params{Compression: rawimage.Uncompressed, Embedded: true}, nil, nil, nil)
	req.NoError(err)

	r, firstIFD, err := tiff.NewReader(source.FromBytes(out))
	req.NoError(err)
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	req.NoError(err)

	dataTag, ok := ifd0.Tag(tagOriginalRawFileData)
	req.True(ok)
	digestTag, ok := ifd0.Tag(tagOriginalRawFileDigest)
	req.True(ok)
	req.Equal(uint32(16), digestTag.Count)

	var digest [16]byte
	copy(digest[:], digestTag.Bytes())

	recovered, err := embed.Decompress(dataTag.Bytes(), digest, false, nil)
	req.NoError(err)
	req.Equal(img.OriginalBytes, recovered)
}

// TestWriteRejectsInvalidRawImage covers the Validate() guard at the top
// of Write.
func TestWriteRejectsInvalidRawImage(t *testing.T) {
	req := require.New(t)
	img := syntheticRawImage(4, 4)
	img.Pixels16 = img.Pixels16[:len(img.Pixels16)-1] // now mismatched with width*height*cpp

	_, err := Write(img, rawimage.Params{}, nil, nil, nil)
	req.Error(err)
}
