package rawdng

import "github.com/rawforge/rawdng/internal/rawimage"

// Compression selects the DNG output's raw-tile compression (spec §3).
type Compression = rawimage.Compression

const (
	Uncompressed = rawimage.Uncompressed
	Lossless     = rawimage.Lossless
)

// CropMode selects which rectangle the output DNG's DefaultCropOrigin/
// Size describe (spec §3).
type CropMode = rawimage.CropMode

const (
	CropBest       = rawimage.CropBest
	CropActiveArea = rawimage.CropActiveArea
	CropNone       = rawimage.CropNone
)

// PhotometricConversion selects whether the raw SubIFD's pixel values
// are passed through untouched or linearized (spec §3).
type PhotometricConversion = rawimage.PhotometricConversion

const (
	PhotometricOriginal = rawimage.PhotometricOriginal
	PhotometricLinear   = rawimage.PhotometricLinear
)

// ConvertParams is the per-conversion configuration surface (spec §3),
// re-exported from internal/rawimage.Params so Convert/Describe callers
// never need to import an internal package.
type ConvertParams = rawimage.Params

// RawImage is the decoded, not-yet-written sensor image (spec §3).
type RawImage = rawimage.RawImage

// Metadata carries the EXIF/maker-note fields copied into the output
// DNG's IFD0/ExifIFD (spec §4.8).
type Metadata = rawimage.Metadata

// Rect is a (top, left, bottom, right) pixel rectangle.
type Rect = rawimage.Rect
