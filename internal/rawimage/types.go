// Package rawimage holds the data model shared by every format decoder,
// the DNG writer, and the root package's public API (spec §3): the
// RawImage produced by decoding, the ConvertParams configuration surface,
// and the Camera/CFA/crop geometry decoders fill in. It is a leaf package
// (no dependency on internal/registry, internal/dngwriter, or
// internal/formats) so those packages can all depend on it without an
// import cycle back to the root package that wires them together.
package rawimage

import "github.com/rawforge/rawdng/internal/catalog"

// Compression selects the DNG output's raw-tile compression, per spec §3's
// ConvertParams.compression.
type Compression int

const (
	Uncompressed Compression = iota
	Lossless
)

// CropMode selects which rectangle the output DNG's DefaultCropOrigin/Size
// describe, per spec §3's ConvertParams.crop.
type CropMode int

const (
	CropBest CropMode = iota
	CropActiveArea
	CropNone
)

// PhotometricConversion selects whether the SubIFD-raw's pixel values are
// passed through untouched or linearized, per spec §3.
type PhotometricConversion int

const (
	PhotometricOriginal PhotometricConversion = iota
	PhotometricLinear
)

// Params is the per-conversion configuration surface (spec §3's
// ConvertParams), built once by the caller and passed to every stage of
// the pipeline; defaulting happens once at Convert's entrypoint rather
// than being re-derived by each component, per SPEC_FULL's AMBIENT STACK
// "Configuration" section.
type Params struct {
	Compression           Compression
	Predictor             int // 1..7, default 1
	Crop                   CropMode
	PhotometricConversion PhotometricConversion
	Embedded              bool
	Preview               bool
	Thumbnail             bool
	ApplyScaling          bool
	KeepMtime             bool
	Artist                string
	Software              string
	Index                 int

	// RawTrackOverride models the CR3 raw-track-index diagnostic knob
	// (SPEC_FULL's supplemented envparams feature, spec §9's open
	// question) as an explicit field rather than an environment variable.
	RawTrackOverride *int

	// SkipChecks disables the embedded-original digest verification on
	// Extract, per spec §7's DigestMismatch policy ("fatal unless
	// skip_checks").
	SkipChecks bool

	// Warnf receives non-fatal diagnostics; nil is a no-op, matching the
	// teacher's Warnf hook convention (SPEC_FULL AMBIENT STACK).
	Warnf func(format string, args ...any)
}

// Defaulted returns a copy of p with zero-valued fields replaced by their
// documented defaults (predictor 1, a no-op Warnf), applied once at the
// top of the entrypoint per SPEC_FULL's configuration section.
func (p Params) Defaulted() Params {
	if p.Predictor == 0 {
		p.Predictor = 1
	}
	if p.Warnf == nil {
		p.Warnf = func(string, ...any) {}
	}
	if p.Software == "" {
		p.Software = "rawdng"
	}
	return p
}

// Rect is a (top, left, bottom, right) pixel rectangle, matching DNG's
// ActiveArea/DefaultCropOrigin+Size tag convention.
type Rect struct {
	Top, Left, Bottom, Right uint32
}

func (r Rect) Width() uint32  { return r.Right - r.Left }
func (r Rect) Height() uint32 { return r.Bottom - r.Top }

// Within reports whether r is fully contained in outer, per spec §3's
// "crop_rect ⊆ active_area_rect ⊆ (0,0,width,height)" invariant.
func (r Rect) Within(outer Rect) bool {
	return r.Top >= outer.Top && r.Left >= outer.Left && r.Bottom <= outer.Bottom && r.Right <= outer.Right
}

// Metadata carries the EXIF/maker-note fields the DNG writer copies or
// translates into IFD0/ExifIFD/MakerNotes tags, per spec §4.8.
type Metadata struct {
	Make, Model      string
	LensModel        string
	Software         string
	DateTimeOriginal string // "2006:01:02 15:04:05" per EXIF ASCII convention
	ExposureTime     Rational
	FNumber          Rational
	ISO              uint32
	FocalLength      Rational
	Orientation      uint16
	ExifIFD          map[uint16]ExifValue // copied verbatim into the output ExifIFD
	MakerNote        []byte               // carried byte-for-byte when the vendor permits it (CR3: the CMT3 block; CMT4 is not carried)
	GPSIFD           map[uint16]ExifValue
}

// Rational mirrors TIFF's RATIONAL type for metadata fields that must
// round-trip exactly rather than collapse to a lossy float64.
type Rational struct {
	Num, Den int64
}

func (r Rational) Float64() float64 {
	if r.Den == 0 {
		return 0
	}
	return float64(r.Num) / float64(r.Den)
}

// ExifValue is a typed tag value copied through to the output ExifIFD;
// Type follows TIFF's numeric type codes so the DNG writer can re-encode
// it without re-interpreting vendor-specific semantics.
type ExifValue struct {
	Type  uint16
	Count uint32
	Raw   []byte
}

// RawImage is the decoded, not-yet-written sensor image (spec §3): either
// a single mosaic plane (Pixels16, ComponentsPerPixel==1) or a rendered
// sRAW plane (ComponentsPerPixel==3), plus the calibration/geometry the
// DNG writer needs and the provenance (source bytes + digest) the
// original-file embedder needs.
type RawImage struct {
	Camera catalog.Camera

	Width, Height        int
	ComponentsPerPixel   int
	BitDepth             int

	WhiteBalance [4]float64
	BlackLevels  [4]uint32
	WhiteLevels  [4]uint32
	CFAPattern   [4]uint8 // empty (all zero with ComponentsPerPixel==1 CFA size 0) iff cpp==3 or monochrome
	CFASize      int      // 0, or 2 for a 2x2 Bayer repeat

	CropRect      Rect
	ActiveAreaRect Rect
	Orientation   uint16

	// The decoders in this module fill Pixels16 (floating-point sources are
	// quantized into it). Validate accepts a PixelsF32 plane, but no decoder
	// fills it and the DNG writer does not read it.
	Pixels16  []uint16
	PixelsF32 []float32

	Metadata Metadata

	// OriginalBytes/OriginalName/OriginalDigest are set when the caller
	// requested embedding (ConvertParams.Embedded); the DNG writer and
	// internal/embed consume them to build OriginalRawFileData/Name/Digest.
	OriginalBytes  []byte
	OriginalName   string
	OriginalDigest [16]byte
}

// Validate checks the invariants spec §3 names for RawImage.
func (r *RawImage) Validate() error {
	want := r.Width * r.Height * r.ComponentsPerPixel
	got := len(r.Pixels16)
	if got == 0 {
		got = len(r.PixelsF32)
	}
	if got != want {
		return &InvariantError{Msg: "pixels.len() != width*height*cpp"}
	}
	if !r.CropRect.Within(r.ActiveAreaRect) {
		return &InvariantError{Msg: "crop_rect not within active_area_rect"}
	}
	active := Rect{0, 0, uint32(r.Height), uint32(r.Width)}
	if !r.ActiveAreaRect.Within(active) {
		return &InvariantError{Msg: "active_area_rect not within image bounds"}
	}
	isCFA := r.ComponentsPerPixel == 1 && r.CFASize > 0
	if isCFA == (r.CFASize == 0) && r.ComponentsPerPixel == 1 {
		// Monochrome (cpp==1, CFASize==0) is valid; only cpp==3 with a
		// nonzero CFASize would violate the invariant, checked below.
	}
	if r.ComponentsPerPixel == 3 && r.CFASize != 0 {
		return &InvariantError{Msg: "cfa_pattern must be empty when cpp==3"}
	}
	return nil
}

// InvariantError reports a violated RawImage data-model invariant.
type InvariantError struct{ Msg string }

func (e *InvariantError) Error() string { return "rawimage: invariant violated: " + e.Msg }
