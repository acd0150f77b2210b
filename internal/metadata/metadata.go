// Package metadata translates a parsed TIFF/EXIF IFD tree into the
// rawimage.Metadata the DNG writer copies into IFD0/ExifIFD, and
// transcodes vendor maker-note strings into UTF-8. Grounded on the
// teacher's metadecoder_exif.go (the EXIF tag-walk/type-size table shape)
// and metadecoder_exif_fields.go (the well-known-tag-id table, reused here
// for the handful of fields the DNG writer actually needs rather than the
// teacher's full exiftool-derived field catalog, which this module has no
// analogous "describe every tag by name" use for).
package metadata

import (
	"strings"

	"golang.org/x/text/encoding/charmap"

	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/tiff"
)

// Well-known EXIF/TIFF tag ids this module reads out of a parsed IFD.
// Mirrors the subset of metadecoder_exif_fields.go's exiftool-derived
// table this module's DNG writer actually consumes.
const (
	tagMake             = 0x010f
	tagModel            = 0x0110
	tagOrientation      = 0x0112
	tagSoftware         = 0x0131
	tagDateTimeOriginal = 0x9003
	tagExposureTime     = 0x829a
	tagFNumber          = 0x829d
	tagISOSpeedRatings  = 0x8827
	tagFocalLength      = 0x920a
	tagLensModel        = 0xa434
)

// FromIFD builds a rawimage.Metadata from a parsed top-level IFD and its
// ExifIFD child (if any), per spec §4.8's "ExifIFD: copied from the source
// EXIF". Tags outside the well-known set are copied verbatim into
// Metadata.ExifIFD so the DNG writer can re-emit them without this
// package needing to understand their semantics.
func FromIFD(ifd0 *tiff.IFD) rawimage.Metadata {
	m := rawimage.Metadata{ExifIFD: make(map[uint16]rawimage.ExifValue)}

	if ifd0 == nil {
		return m
	}
	if v, ok := asciiOf(ifd0, tagMake); ok {
		m.Make = v
	}
	if v, ok := asciiOf(ifd0, tagModel); ok {
		m.Model = v
	}
	if v, ok := asciiOf(ifd0, tagSoftware); ok {
		m.Software = v
	}
	if t, ok := ifd0.Tag(tagOrientation); ok {
		if v, err := t.AsU32(0); err == nil {
			m.Orientation = uint16(v)
		}
	}

	var exifIFD *tiff.IFD
	for _, c := range ifd0.ChildrenOfKind("ExifIFD") {
		exifIFD = c
	}
	if exifIFD == nil {
		return m
	}

	if v, ok := asciiOf(exifIFD, tagDateTimeOriginal); ok {
		m.DateTimeOriginal = v
	}
	if v, ok := asciiOf(exifIFD, tagLensModel); ok {
		m.LensModel = v
	}
	m.ExposureTime = rationalOf(exifIFD, tagExposureTime)
	m.FNumber = rationalOf(exifIFD, tagFNumber)
	m.FocalLength = rationalOf(exifIFD, tagFocalLength)
	if t, ok := exifIFD.Tag(tagISOSpeedRatings); ok {
		if v, err := t.AsU32(0); err == nil {
			m.ISO = v
		}
	}

	copyTagsInto(exifIFD, m.ExifIFD)
	return m
}

func asciiOf(ifd *tiff.IFD, id uint16) (string, bool) {
	t, ok := ifd.Tag(id)
	if !ok {
		return "", false
	}
	s, err := t.Ascii()
	if err != nil {
		return "", false
	}
	return s, true
}

func rationalOf(ifd *tiff.IFD, id uint16) rawimage.Rational {
	t, ok := ifd.Tag(id)
	if !ok {
		return rawimage.Rational{}
	}
	r, err := t.AsRational(0)
	if err != nil {
		return rawimage.Rational{}
	}
	return rawimage.Rational{Num: r.Num, Den: r.Den}
}

func copyTagsInto(ifd *tiff.IFD, out map[uint16]rawimage.ExifValue) {
	for id, tag := range ifd.Tags {
		out[id] = rawimage.ExifValue{
			Type:  uint16(tag.Type),
			Count: tag.Count,
			Raw:   append([]byte(nil), tag.Bytes()...),
		}
	}
}

// TranscodeMakerNoteString normalizes a maker-note ASCII/byte string to
// UTF-8, per SPEC_FULL's DOMAIN STACK entry for golang.org/x/text/encoding/
// charmap: camera firmware commonly emits Shift-JIS (Japanese-market
// bodies) or Windows-1252 (accented Latin text in lens/artist names)
// instead of pure ASCII. cp selects the source encoding; "" assumes the
// bytes are already valid UTF-8/ASCII and returns them trimmed.
func TranscodeMakerNoteString(raw []byte, cp string) string {
	b := trimTrailingZeros(raw)
	switch strings.ToLower(cp) {
	case "windows-1252", "cp1252":
		out, err := charmap.Windows1252.NewDecoder().Bytes(b)
		if err != nil {
			return string(b)
		}
		return string(out)
	case "shift-jis", "sjis":
		// golang.org/x/text's charmap package does not itself carry
		// Shift-JIS (that lives in golang.org/x/text/encoding/japanese,
		// not wired per SPEC_FULL's dependency table), so Shift-JIS bytes
		// are returned unchanged, like the default case: pure-ASCII
		// strings come through intact and multi-byte characters are not
		// converted.
		return string(b)
	default:
		return string(b)
	}
}

func trimTrailingZeros(b []byte) []byte {
	i := len(b)
	for i > 0 && b[i-1] == 0 {
		i--
	}
	return b[:i]
}
