package dngwriter

import (
	"bytes"
	"encoding/binary"
	"math"

	"github.com/rawforge/rawdng/internal/embed"
	"github.com/rawforge/rawdng/internal/ljpeg"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/tiff"
	"github.com/rawforge/rawdng/internal/workerpool"
)

// maxTilePixels bounds a raw tile to ~1 megapixel, per spec §4.8's tile
// layout policy.
const maxTilePixels = 1 << 20

// Preview is an optional full-size JPEG preview (spec §4.8's SubIFD-preview).
type Preview struct {
	Width, Height int
	JPEGData      []byte
}

// Thumbnail is IFD0's embedded 160x120-by-default RGB8 thumbnail.
type Thumbnail struct {
	Width, Height int
	RGB8          []byte // Width*Height*3 bytes
}

// Write assembles img into a complete DNG byte stream per spec §4.8,
// re-encoding the raw plane as LJPEG-92 tiles (Lossless) or leaving it
// uncompressed, per params.Compression, and running the tile encoder
// across pool the way internal/crx/internal/embed run their own
// data-parallel inner loops (spec §5's "per LJPEG tile (encode)" task
// granularity).
func Write(img *rawimage.RawImage, params rawimage.Params, preview *Preview, thumb *Thumbnail, pool *workerpool.Pool) ([]byte, error) {
	params = params.Defaulted()
	if err := img.Validate(); err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "dngwriter: invalid RawImage")
	}

	owned := pool == nil
	if owned {
		pool = workerpool.New(0)
		defer pool.Close()
	}

	sink := &bytes.Buffer{}
	sink.Write([]byte{'I', 'I', 42, 0, 0, 0, 0, 0}) // header; bytes[4:8] patched with IFD0's offset at the end

	tileW, tileH := chooseTileDims(img.Width, img.Height)
	tileOffsets, tileByteCounts, compressionTag, err := writeRawTiles(sink, img, params, tileW, tileH, pool)
	if err != nil {
		return nil, err
	}

	var previewOffset, previewLen uint32
	if preview != nil && len(preview.JPEGData) > 0 {
		previewOffset = uint32(sink.Len())
		sink.Write(preview.JPEGData)
		previewLen = uint32(len(preview.JPEGData))
	}

	var thumbOffset, thumbLen uint32
	if thumb != nil && len(thumb.RGB8) > 0 {
		thumbOffset = uint32(sink.Len())
		sink.Write(thumb.RGB8)
		thumbLen = uint32(len(thumb.RGB8))
	}

	var embedOriginal bool
	var originalBytes []byte
	var originalDigest [16]byte
	if params.Embedded && len(img.OriginalBytes) > 0 {
		c, err := embed.Compress(img.OriginalBytes, pool)
		if err != nil {
			return nil, err
		}
		var buf bytes.Buffer
		if _, err := c.WriteTo(&buf); err != nil {
			return nil, rawerr.Wrap(rawerr.Io, err, "dngwriter: serializing original-file embed")
		}
		originalBytes = buf.Bytes()
		originalDigest = c.Digest
		embedOriginal = true
	}

	exifOffset := writeExifIFD(sink, img.Metadata)

	var previewIFDOffset int64 = -1
	if previewOffset != 0 || previewLen != 0 {
		previewIFDOffset = writePreviewIFD(sink, preview, previewOffset, previewLen)
	}

	rawIFDOffset := writeRawIFD(sink, img, params, tileW, tileH, tileOffsets, tileByteCounts, compressionTag)

	ifd0Offset := writeIFD0(sink, img, params, thumb, thumbOffset, thumbLen, rawIFDOffset, previewIFDOffset, exifOffset, embedOriginal, originalBytes, originalDigest)

	out := sink.Bytes()
	binary.LittleEndian.PutUint32(out[4:8], uint32(ifd0Offset))
	return out, nil
}

// chooseTileDims picks tile dimensions that are multiples of the 2x2 CFA
// repeat pattern and bound each tile to ~1 Mpx, per spec §4.8.
func chooseTileDims(width, height int) (tw, th int) {
	const repeat = 2
	tw, th = width, height
	for tw*th > maxTilePixels {
		if tw > th {
			tw = (tw / 2 / repeat) * repeat
			if tw < repeat {
				tw = repeat
			}
		} else {
			th = (th / 2 / repeat) * repeat
			if th < repeat {
				th = repeat
			}
		}
		if tw >= width && th >= height {
			break
		}
	}
	if tw > width {
		tw = width
	}
	if th > height {
		th = height
	}
	return tw, th
}

// writeRawTiles encodes and appends every raw tile to sink, returning its
// absolute offset/size arrays and the DNG Compression tag value used.
func writeRawTiles(sink *bytes.Buffer, img *rawimage.RawImage, params rawimage.Params, tileW, tileH int, pool *workerpool.Pool) (offsets, counts []uint32, compressionTag uint16, err error) {
	cols := (img.Width + tileW - 1) / tileW
	rows := (img.Height + tileH - 1) / tileH
	n := cols * rows
	tileBytes := make([][]byte, n)

	tasks := make([]func() error, n)
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			idx := row*cols + col
			x0, y0 := col*tileW, row*tileH
			w, h := tileW, tileH
			if x0+w > img.Width {
				w = img.Width - x0
			}
			if y0+h > img.Height {
				h = img.Height - y0
			}
			tasks[idx] = func() error {
				samples := extractTile(img, x0, y0, w, h)
				if params.Compression == rawimage.Lossless {
					enc, err := ljpeg.Encode(samples, w, h, img.BitDepth, ljpeg.EncodeParams{Predictor: params.Predictor})
					if err != nil {
						return err
					}
					tileBytes[idx] = enc
				} else {
					buf := make([]byte, 2*len(samples))
					for i, s := range samples {
						binary.LittleEndian.PutUint16(buf[2*i:], s)
					}
					tileBytes[idx] = buf
				}
				return nil
			}
		}
	}
	if err := pool.Run(tasks); err != nil {
		return nil, nil, 0, err
	}

	offsets = make([]uint32, n)
	counts = make([]uint32, n)
	for i, b := range tileBytes {
		offsets[i] = uint32(sink.Len())
		sink.Write(b)
		counts[i] = uint32(len(b))
	}

	compressionTag = compressionNone
	if params.Compression == rawimage.Lossless {
		compressionTag = compressionLJPEG
	}
	return offsets, counts, compressionTag, nil
}

func extractTile(img *rawimage.RawImage, x0, y0, w, h int) []uint16 {
	out := make([]uint16, w*h)
	for y := 0; y < h; y++ {
		src := img.Pixels16[(y0+y)*img.Width+x0 : (y0+y)*img.Width+x0+w]
		copy(out[y*w:(y+1)*w], src)
	}
	return out
}

func writeExifIFD(sink *bytes.Buffer, m rawimage.Metadata) int64 {
	b := &builder{}
	if m.DateTimeOriginal != "" {
		b.addAscii(tagDateTimeOriginal, m.DateTimeOriginal)
	}
	if m.LensModel != "" {
		b.addAscii(tagLensModel, m.LensModel)
	}
	if m.ExposureTime != (rawimage.Rational{}) {
		b.addRational(tagExposureTime, [2]uint32{uint32(m.ExposureTime.Num), uint32(m.ExposureTime.Den)})
	}
	if m.FNumber != (rawimage.Rational{}) {
		b.addRational(tagFNumber, [2]uint32{uint32(m.FNumber.Num), uint32(m.FNumber.Den)})
	}
	if m.FocalLength != (rawimage.Rational{}) {
		b.addRational(tagFocalLength, [2]uint32{uint32(m.FocalLength.Num), uint32(m.FocalLength.Den)})
	}
	if m.ISO != 0 {
		b.addShort(tagISOSpeedRatings, uint16(m.ISO))
	}
	for id, v := range m.ExifIFD {
		if b.has(id) {
			continue
		}
		b.fields = append(b.fields, field{tag: id, typ: tiff.Type(v.Type), count: v.Count, data: append([]byte(nil), v.Raw...)})
	}

	off := int64(sink.Len())
	sink.Write(b.serialize(off))
	return off
}

func writePreviewIFD(sink *bytes.Buffer, preview *Preview, dataOffset, dataLen uint32) int64 {
	b := &builder{}
	b.addLong(tagNewSubfileType, 1)
	b.addLong(tagImageWidth, uint32(preview.Width))
	b.addLong(tagImageLength, uint32(preview.Height))
	b.addShort(tagCompression, 7) // baseline JPEG
	b.addShort(tagPhotometricInterpretation, photometricRGB)
	b.addShort(tagSamplesPerPixel, 3)
	b.addLong(tagStripOffsets, dataOffset)
	b.addLong(tagStripByteCounts, dataLen)
	b.addLong(tagRowsPerStrip, uint32(preview.Height))

	off := int64(sink.Len())
	sink.Write(b.serialize(off))
	return off
}

func writeRawIFD(sink *bytes.Buffer, img *rawimage.RawImage, params rawimage.Params, tileW, tileH int, tileOffsets, tileByteCounts []uint32, compressionTag uint16) int64 {
	b := &builder{}
	b.addLong(tagNewSubfileType, 0)
	b.addLong(tagImageWidth, uint32(img.Width))
	b.addLong(tagImageLength, uint32(img.Height))
	b.addShort(tagBitsPerSample, uint16(img.BitDepth))
	b.addShort(tagCompression, compressionTag)

	photometric := uint16(photometricCFA)
	if img.ComponentsPerPixel == 3 {
		photometric = photometricLinearRaw
	}
	b.addShort(tagPhotometricInterpretation, photometric)
	b.addShort(tagSamplesPerPixel, uint16(img.ComponentsPerPixel))
	b.addShort(tagPlanarConfiguration, 1)

	if img.ComponentsPerPixel == 1 && img.CFASize > 0 {
		b.addShort(tagCFARepeatPatternDim, uint16(img.CFASize), uint16(img.CFASize))
		b.addByte(tagCFAPattern, img.CFAPattern[:])
		b.addShort(tagCFALayout, 1)
	}

	b.addLong(tagTileWidth, uint32(tileW))
	b.addLong(tagTileLength, uint32(tileH))
	b.addLong(tagTileOffsets, tileOffsets...)
	b.addLong(tagTileByteCounts, tileByteCounts...)

	blackLevels := make([]uint32, img.ComponentsPerPixel)
	for i := range blackLevels {
		if i < len(img.BlackLevels) {
			blackLevels[i] = img.BlackLevels[i]
		}
	}
	b.addLong(tagBlackLevel, blackLevels...)
	whiteLevel := img.WhiteLevels[0]
	if whiteLevel == 0 {
		whiteLevel = uint32(1<<uint(img.BitDepth)) - 1
	}
	b.addLong(tagWhiteLevel, whiteLevel)

	b.addLong(tagActiveArea, img.ActiveAreaRect.Top, img.ActiveAreaRect.Left, img.ActiveAreaRect.Bottom, img.ActiveAreaRect.Right)

	crop := img.CropRect
	switch params.Crop {
	case rawimage.CropNone:
		crop = rawimage.Rect{Top: 0, Left: 0, Bottom: uint32(img.Height), Right: uint32(img.Width)}
	case rawimage.CropActiveArea:
		crop = img.ActiveAreaRect
	}
	b.addRational(tagDefaultCropOrigin, [2]uint32{crop.Left, 1}, [2]uint32{crop.Top, 1})
	b.addRational(tagDefaultCropSize, [2]uint32{crop.Width(), 1}, [2]uint32{crop.Height(), 1})

	off := int64(sink.Len())
	sink.Write(b.serialize(off))
	return off
}

func writeIFD0(sink *bytes.Buffer, img *rawimage.RawImage, params rawimage.Params, thumb *Thumbnail, thumbOffset, thumbLen uint32, rawIFDOffset, previewIFDOffset, exifOffset int64, embedOriginal bool, originalBytes []byte, originalDigest [16]byte) int64 {
	b := &builder{}
	b.addLong(tagNewSubfileType, 1)
	if thumb != nil && len(thumb.RGB8) > 0 {
		b.addLong(tagImageWidth, uint32(thumb.Width))
		b.addLong(tagImageLength, uint32(thumb.Height))
		b.addShort(tagBitsPerSample, 8, 8, 8)
		b.addShort(tagCompression, compressionNone)
		b.addShort(tagPhotometricInterpretation, photometricRGB)
		b.addShort(tagSamplesPerPixel, 3)
		b.addLong(tagStripOffsets, thumbOffset)
		b.addLong(tagStripByteCounts, thumbLen)
		b.addLong(tagRowsPerStrip, uint32(thumb.Height))
	}

	b.addByte(tagDNGVersion, []byte(dngVersionMajorMinor))
	b.addByte(tagDNGBackwardVersion, []byte(dngVersionMajorMinor))

	cam := img.Camera
	uniqueModel := cam.Make + " " + cam.Model
	if uniqueModel == " " {
		uniqueModel = img.Metadata.Make + " " + img.Metadata.Model
	}
	b.addAscii(tagUniqueCameraModel, uniqueModel)
	if m := img.Metadata.Make; m != "" {
		b.addAscii(tagMake, m)
	}
	if m := img.Metadata.Model; m != "" {
		b.addAscii(tagModel, m)
	}
	b.addAscii(tagSoftware, params.Software)
	if params.Artist != "" {
		b.addAscii(tagArtist, params.Artist)
	}
	if img.Metadata.DateTimeOriginal != "" {
		b.addAscii(tagDateTime, img.Metadata.DateTimeOriginal)
	}
	orientation := img.Orientation
	if orientation == 0 {
		orientation = img.Metadata.Orientation
	}
	if orientation == 0 {
		orientation = 1
	}
	b.addShort(tagOrientation, orientation)

	colorMatrix1 := cam.ColorMatrix1
	if colorMatrix1 == ([9]float64{}) {
		colorMatrix1 = [9]float64{1, 0, 0, 0, 1, 0, 0, 0, 1} // identity: no calibration on file for this camera
	}
	b.addSRational(tagColorMatrix1, srationalsFrom3x3(colorMatrix1)...)
	if cam.ColorMatrix2 != ([9]float64{}) {
		b.addSRational(tagColorMatrix2, srationalsFrom3x3(cam.ColorMatrix2)...)
	}
	illum1, illum2 := uint16(21), uint16(21) // D65 when the camera descriptor supplies no explicit illuminant
	if cam.CalibrationIlluminant1 != 0 {
		illum1 = cam.CalibrationIlluminant1
	}
	if cam.CalibrationIlluminant2 != 0 {
		illum2 = cam.CalibrationIlluminant2
	}
	b.addShort(tagCalibrationIlluminant1, illum1)
	b.addShort(tagCalibrationIlluminant2, illum2)

	wb := img.WhiteBalance
	if wb == ([4]float64{}) {
		wb = [4]float64{1, 1, 1, 1}
	}
	b.addRational(tagAsShotNeutral, rationalsFromFloats(wb[:3])...)
	b.addSRational(tagBaselineExposure, [2]int32{0, 1})

	subIFDs := []uint32{uint32(rawIFDOffset)}
	if previewIFDOffset >= 0 {
		subIFDs = append(subIFDs, uint32(previewIFDOffset))
	}
	b.addLong(tagSubIFDs, subIFDs...)
	b.addLong(tagExifIFDPointer, uint32(exifOffset))

	if len(img.Metadata.MakerNote) > 0 {
		// The maker note (for CR3, the CMT3 block only) is carried
		// byte-for-byte per spec §4.8's MakerNotes policy; stored under the
		// EXIF MakerNote tag (0x927c)
		// rather than a DNG-specific one, matching every other EXIF reader's
		// expectation of where vendor maker notes live.
		b.addUndefined(0x927c, img.Metadata.MakerNote)
	}

	if embedOriginal {
		b.addAscii(tagOriginalRawFileName, img.OriginalName)
		b.addUndefined(tagOriginalRawFileData, originalBytes)
		b.addByte(tagOriginalRawFileDigest, originalDigest[:])
	}

	off := int64(sink.Len())
	sink.Write(b.serialize(off))
	return off
}

// srationalsFrom3x3 converts a camera descriptor's 3x3 color matrix into
// ColorMatrix1/2's 9 SRATIONAL entries (row-major, per the DNG spec).
func srationalsFrom3x3(m [9]float64) [][2]int32 {
	out := make([][2]int32, 9)
	for i, v := range m {
		out[i] = floatToSRational(v)
	}
	return out
}

func rationalsFromFloats(vals []float64) [][2]uint32 {
	out := make([][2]uint32, len(vals))
	for i, v := range vals {
		out[i] = floatToRational(v)
	}
	return out
}

func floatToRational(v float64) [2]uint32 {
	const den = 1000000
	if v < 0 {
		v = 0
	}
	return [2]uint32{uint32(math.Round(v * den)), den}
}

func floatToSRational(v float64) [2]int32 {
	const den = 1000000
	return [2]int32{int32(math.Round(v * den)), den}
}
