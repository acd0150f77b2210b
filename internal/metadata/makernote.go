package metadata

import (
	"github.com/rawforge/rawdng/internal/tiff"
)

// OffsetMode selects how a maker-note IFD's internal pointer offsets are
// resolved relative to the file, per spec §4.2: "Resolve maker-note IFDs
// using per-vendor offset modes {Absolute, RelativeToStart, RelativeToIFD}
// and an optional fixed prefix to skip." Grounded on jrm-1535-exif's
// nikon.go/apple.go, which each hand-resolve a different one of these
// three conventions for their single vendor; this module generalizes the
// three conventions into one selector shared by every vendor's decoder.
type OffsetMode int

const (
	// Absolute: internal offsets are absolute from the start of the file,
	// the same convention plain EXIF IFDs use.
	Absolute OffsetMode = iota
	// RelativeToStart: internal offsets are relative to the first byte of
	// the maker-note tag's own value (Nikon's convention, per nikon.go).
	RelativeToStart
	// RelativeToIFD: internal offsets are relative to the maker-note
	// IFD's own first entry, after skipping Prefix bytes (some
	// Olympus/Panasonic maker notes).
	RelativeToIFD
)

// VendorQuirk describes one vendor's maker-note framing: how many bytes to
// skip before the embedded IFD starts (e.g. Nikon's "Nikon\x00" + TIFF
// sub-header) and how its internal offsets resolve.
type VendorQuirk struct {
	Prefix int
	Mode   OffsetMode
}

// ReadMakerNote parses a maker-note tag's raw bytes as a nested TIFF IFD
// using the file's already-open Reader (so the embedded IFD shares the
// outer file's byte order and offset width), per the vendor's offset
// convention. tagOffset is the maker-note tag's absolute file offset (the
// position its Count bytes start at), needed to compute the
// RelativeToStart/RelativeToIFD bases.
func ReadMakerNote(r *tiff.Reader, tagOffset int64, quirk VendorQuirk) (*tiff.IFD, error) {
	ifdOffset := tagOffset + int64(quirk.Prefix)

	var base int64
	switch quirk.Mode {
	case Absolute:
		base = 0
	case RelativeToStart:
		base = tagOffset
	case RelativeToIFD:
		base = ifdOffset
	}
	return r.ReadIFDAt("MakerNote", ifdOffset-base, base)
}
