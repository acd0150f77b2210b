// Package dngwriter assembles a RawImage into an Adobe DNG (TIFF-superset)
// byte stream, per spec §4.8: IFD0 (thumbnail + color science), a raw
// SubIFD (CFA/LinearRaw tiles, LJPEG-92 re-encoded or uncompressed), an
// optional preview SubIFD, a copied ExifIFD, and the original-file embed
// tags. Grounded on the teacher's own binary-layout style (bep-imagemeta's
// io.go streamReader and metadecoder_exif.go's tag-table walk) generalized
// from reading a TIFF tag stream to writing one; there is no writer in any
// example repo to adapt directly; this package's encoding/binary use is the
// REQUIRED stdlib fallback noted in DESIGN.md since no pack library exposes
// arbitrary-tag TIFF/DNG IFD construction (golang.org/x/image/tiff only
// encodes image.Image through a fixed baseline tag set, not DNG's custom
// 50706+ tag range).
package dngwriter

import "github.com/rawforge/rawdng/internal/tiff"

// Baseline TIFF/EXIF tags this writer emits.
const (
	tagNewSubfileType           = 0x00fe
	tagImageWidth                = 0x0100
	tagImageLength               = 0x0101
	tagBitsPerSample             = 0x0102
	tagCompression               = 0x0103
	tagPhotometricInterpretation = 0x0106
	tagMake                      = 0x010f
	tagModel                     = 0x0110
	tagStripOffsets              = 0x0111
	tagOrientation               = 0x0112
	tagSamplesPerPixel           = 0x0115
	tagRowsPerStrip              = 0x0116
	tagStripByteCounts           = 0x0117
	tagPlanarConfiguration       = 0x011c
	tagSoftware                  = 0x0131
	tagDateTime                  = 0x0132
	tagArtist                    = 0x013b
	tagTileWidth                 = 0x0142
	tagTileLength                = 0x0143
	tagTileOffsets               = 0x0144
	tagTileByteCounts            = 0x0145
	tagSubIFDs                   = 0x014a
	tagCFARepeatPatternDim       = 0x828d
	tagCFAPattern                = 0x828e
	tagExifIFDPointer            = 0x8769
	tagExposureTime              = 0x829a
	tagFNumber                   = 0x829d
	tagDateTimeOriginal          = 0x9003
	tagISOSpeedRatings           = 0x8827
	tagFocalLength               = 0x920a
	tagLensModel                 = 0xa434

	// DNG-specific tag range (50706+, per Adobe's published DNG 1.6 spec).
	tagDNGVersion            = 0xc612 // 50706
	tagDNGBackwardVersion    = 0xc613 // 50707
	tagUniqueCameraModel     = 0xc614 // 50708
	tagCFALayout             = 0xc617 // 50711
	tagBlackLevel            = 0xc61a // 50714
	tagWhiteLevel            = 0xc61d // 50717
	tagDefaultCropOrigin     = 0xc61f // 50719
	tagDefaultCropSize       = 0xc620 // 50720
	tagColorMatrix1          = 0xc621 // 50721
	tagColorMatrix2          = 0xc622 // 50722
	tagAsShotNeutral         = 0xc628 // 50728
	tagBaselineExposure      = 0xc62a // 50730
	tagCalibrationIlluminant1 = 0xc65a // 50778
	tagCalibrationIlluminant2 = 0xc65b // 50779
	tagOriginalRawFileName   = 0xc68b // 50827
	tagOriginalRawFileData   = 0xc68c // 50828
	tagActiveArea            = 0xc68d // 50829
	tagOriginalRawFileDigest = 0xc71d // 50973

	photometricRGB       = 2
	photometricCFA       = 32803
	photometricLinearRaw = 34892

	compressionNone = 1
	compressionLJPEG = 7

	dngVersionMajorMinor = "\x01\x04\x00\x00" // DNG 1.4.0.0, sufficient for every tag this writer emits
)

// typeSize mirrors internal/tiff's table; duplicated rather than imported
// as an unexported map so this package's field constructors stay
// self-contained (internal/tiff's table is deliberately unexported since
// only its own Reader needs it).
var typeSize = map[tiff.Type]int{
	tiff.TByte: 1, tiff.TAscii: 1, tiff.TShort: 2, tiff.TLong: 4, tiff.TRational: 8,
	tiff.TSByte: 1, tiff.TUndefined: 1, tiff.TSShort: 2, tiff.TSLong: 4, tiff.TSRational: 8,
}
