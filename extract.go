package rawdng

import (
	"github.com/rawforge/rawdng/internal/embed"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
	"github.com/rawforge/rawdng/internal/workerpool"
)

// DNG 1.6 tag ids for the original-file embed, matching internal/dngwriter's
// own (unexported) copy of the same constants.
const (
	tagOriginalRawFileData   = 0xc68c // 50828
	tagOriginalRawFileDigest = 0xc71d // 50973
)

// Extract reverses spec §4.9's embedding: it reads a DNG produced with
// ConvertParams.Embedded, verifies the stored MD5 digest against the
// decompressed bytes (unless skipChecks is set), and returns the
// original source file's bytes unchanged.
func Extract(dng source.Source, skipChecks bool, pool *workerpool.Pool) ([]byte, error) {
	r, firstIFD, err := tiff.NewReader(dng)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "rawdng: parsing DNG header")
	}
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "rawdng: reading DNG IFD0")
	}

	dataTag, ok := ifd0.Tag(tagOriginalRawFileData)
	if !ok {
		return nil, rawerr.New(rawerr.Unsupported, "rawdng: DNG carries no embedded original file")
	}
	digestTag, ok := ifd0.Tag(tagOriginalRawFileDigest)
	if !ok || digestTag.Count != 16 {
		return nil, rawerr.New(rawerr.DecoderFailed, "rawdng: DNG missing or malformed OriginalRawFileDigest")
	}
	var digest [16]byte
	copy(digest[:], digestTag.Bytes())

	return embed.Decompress(dataTag.Bytes(), digest, skipChecks, pool)
}
