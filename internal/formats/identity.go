// Package formats adapts the container parsers (internal/bmff,
// internal/tiff) and codecs (internal/crx, internal/ljpeg, internal/packed)
// into internal/registry.Decoder implementations, one per spec §4.4 decoder
// name ("canon-crx", "canon-cr2-ljpeg", "tiff-raw-packed"). Each decoder
// registers itself and an identity reader via blank-importable init()
// functions, mirroring the teacher's imagedecoder_*.go files that each
// self-register a format with the root package's dispatch table.
package formats

import (
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
)

// makeModelFromIFD reads the Make/Model ASCII tags from ifd0, the common
// identity lookup every format's identity reader needs.
func makeModelFromIFD(ifd0 *tiff.IFD) (make_, model string, err error) {
	if ifd0 == nil {
		return "", "", rawerr.New(rawerr.DecoderFailed, "formats: nil IFD0")
	}
	if t, ok := ifd0.Tag(0x010f); ok {
		make_, _ = t.Ascii()
	}
	if t, ok := ifd0.Tag(0x0110); ok {
		model, _ = t.Ascii()
	}
	if make_ == "" && model == "" {
		return "", "", rawerr.New(rawerr.DecoderFailed, "formats: IFD0 carries no Make/Model tags")
	}
	return make_, model, nil
}

// tiffIdentity parses a plain TIFF-rooted source (CR2, DNG, most classic
// raw formats) just far enough to read IFD0's Make/Model, without walking
// the whole IFD tree.
func tiffIdentity(src source.Source) (make_, model, mode string, err error) {
	r, firstIFD, err := tiff.NewReader(src)
	if err != nil {
		return "", "", "", rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing TIFF header")
	}
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	if err != nil {
		return "", "", "", rawerr.Wrap(rawerr.DecoderFailed, err, "formats: reading IFD0")
	}
	make_, model, err = makeModelFromIFD(ifd0)
	return make_, model, modeFromCompression(ifd0), err
}

// modeFromCompression maps a few well-known TIFF Compression tag values to
// a catalog capture-mode string, letting mode-specific descriptors (e.g.
// Canon's sRAW/mRAW variants, which use a distinct Compression value from
// full RAW) resolve without a second decode pass. Cameras with no special
// mode encoding return "", which Catalog.Lookup treats as the base
// descriptor.
func modeFromCompression(ifd0 *tiff.IFD) string {
	const tagCompression = 0x0103
	t, ok := ifd0.Tag(tagCompression)
	if !ok {
		return ""
	}
	v, err := t.AsU32(0)
	if err != nil {
		return ""
	}
	switch v {
	case 7: // JPEG-compressed small RAW (Canon sRAW/mRAW convention)
		return "sraw"
	default:
		return ""
	}
}
