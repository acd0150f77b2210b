package formats

import (
	"encoding/binary"

	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/ljpeg"
	"github.com/rawforge/rawdng/internal/metadata"
	"github.com/rawforge/rawdng/internal/packed"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/registry"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
)

func init() {
	registry.Register("canon-cr2-ljpeg", newLJPEGTiffDecoder)
	registry.Register("tiff-raw-packed", newPackedTiffDecoder)
	registry.RegisterIdentity(registry.FormatTIFF, tiffIdentity)
}

// Well-known baseline TIFF tags this decoder reads directly (distinct from
// internal/metadata's EXIF-oriented table, since these describe the raw
// strip layout rather than camera/exposure metadata).
const (
	tagImageWidth      = 0x0100
	tagImageLength     = 0x0101
	tagBitsPerSample   = 0x0102
	tagCompression     = 0x0103
	tagStripOffsets    = 0x0111
	tagSamplesPerPixel = 0x0115
	tagRowsPerStrip    = 0x0116
	tagStripByteCounts = 0x0117
	tagTileWidth       = 0x0142
	tagTileLength      = 0x0143
	tagTileOffsets     = 0x0144
	tagTileByteCounts  = 0x0145
)

// compression tag values this decoder recognizes, per spec §4.7's table.
const (
	compUncompressed = 1
	compOldJPEG      = 6
	compJPEG         = 7
	compDeflate      = 8
	compLZW          = 5
)

// tiffRawDecoder implements registry.Decoder for the generic TIFF-rooted
// raw container family: the image plane lives in a strip- or tile-oriented
// IFD (IFD0 itself, or a SubIFD for the CR2 "full-size raw data" convention)
// and is compressed per its own Compression tag. mode selects which codec
// this instance was registered for ("canon-cr2-ljpeg" always decodes via
// internal/ljpeg regardless of the Compression tag's nominal meaning;
// "tiff-raw-packed" dispatches on Compression/BitsPerSample).
type tiffRawDecoder struct {
	src    source.Source
	r      *tiff.Reader
	ifd0   *tiff.IFD
	rawIFD *tiff.IFD
	cam    catalog.Camera
	mode   string
}

func newLJPEGTiffDecoder(src source.Source, cam catalog.Camera) (registry.Decoder, error) {
	return newTiffRawDecoder(src, cam, "canon-cr2-ljpeg")
}

func newPackedTiffDecoder(src source.Source, cam catalog.Camera) (registry.Decoder, error) {
	return newTiffRawDecoder(src, cam, "tiff-raw-packed")
}

func newTiffRawDecoder(src source.Source, cam catalog.Camera, mode string) (registry.Decoder, error) {
	r, firstIFD, err := tiff.NewReader(src)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing TIFF header")
	}
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: reading IFD0")
	}
	rawIFD := ifd0
	if subs := ifd0.ChildrenOfKind("SubIFD"); len(subs) > 0 {
		// CR2's convention: IFD0 is a half-size preview, the full-resolution
		// raw plane lives in the last SubIFD (per spec §4.2's SubIFDs
		// recursion and original_source's cr2.rs SubIFD selection).
		rawIFD = subs[len(subs)-1]
	}
	return &tiffRawDecoder{src: src, r: r, ifd0: ifd0, rawIFD: rawIFD, cam: cam, mode: mode}, nil
}

func (d *tiffRawDecoder) RawImage(params rawimage.Params) (*rawimage.RawImage, error) {
	params = params.Defaulted()
	ifd := d.rawIFD

	width := int(ifd.FirstU32(tagImageWidth))
	height := int(ifd.FirstU32(tagImageLength))
	bits := int(ifd.FirstU32(tagBitsPerSample))
	if bits == 0 {
		bits = 16
	}
	samplesPerPixel := int(ifd.FirstU32(tagSamplesPerPixel))
	if samplesPerPixel == 0 {
		samplesPerPixel = 1
	}
	compression := int(ifd.FirstU32(tagCompression))

	chunks, rowsPerChunk, chunkWidth, err := chunkLayout(ifd, width, height)
	if err != nil {
		return nil, err
	}

	pixels := make([]uint16, width*height)
	for i, chunk := range chunks {
		data, err := d.src.Subview(int(chunk.offset), int(chunk.size))
		if err != nil {
			return nil, rawerr.Wrap(rawerr.Io, err, "formats: reading strip/tile %d", i)
		}
		rowStart := i * rowsPerChunk
		rowCount := rowsPerChunk
		if rowStart+rowCount > height {
			rowCount = height - rowStart
		}
		if rowCount <= 0 {
			continue
		}

		var samples []uint16
		switch {
		case d.mode == "canon-cr2-ljpeg":
			samples, err = decodeLJPEGChunk(data, chunkWidth, rowCount)
		case compression == compOldJPEG || compression == compJPEG:
			samples, err = decodeLJPEGChunk(data, chunkWidth, rowCount)
		case compression == compDeflate:
			var f []float32
			f, err = packed.DecodeDeflateFloat(data, chunkWidth, rowCount, packed.Float32, samplesPerPixel)
			if err == nil {
				samples = quantizeFloatPlane(f)
			}
		case compression == compLZW:
			var raw []byte
			raw, err = packed.DecodeLZWPredictor(data, chunkWidth*2, rowCount, true, samplesPerPixel)
			if err == nil {
				samples, err = packed.Unpack16LE(raw, chunkWidth*rowCount)
			}
		default:
			samples, err = unpackUncompressed(data, chunkWidth*rowCount, bits, d.r.ByteOrder())
		}
		if err != nil {
			return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: decoding strip/tile %d", i)
		}
		copyChunkInto(pixels, samples, width, chunkWidth, rowStart, rowCount)
	}

	out := &rawimage.RawImage{
		Camera:             d.cam,
		Width:              width,
		Height:             height,
		ComponentsPerPixel: 1,
		BitDepth:           bits,
		CFAPattern:         d.cam.CFAPattern,
		CFASize:            2,
		ActiveAreaRect:     rawimage.Rect{Top: 0, Left: 0, Bottom: uint32(height), Right: uint32(width)},
		Pixels16:           pixels,
	}
	out.CropRect = out.ActiveAreaRect
	if d.cam.ActiveArea != ([4]uint32{}) {
		out.ActiveAreaRect = rawimage.Rect{Top: d.cam.ActiveArea[0], Left: d.cam.ActiveArea[1], Bottom: d.cam.ActiveArea[2], Right: d.cam.ActiveArea[3]}
	}
	if d.cam.CropArea != ([4]uint32{}) {
		out.CropRect = rawimage.Rect{Top: d.cam.CropArea[0], Left: d.cam.CropArea[1], Bottom: d.cam.CropArea[2], Right: d.cam.CropArea[3]}
	}
	for i := 0; i < 4; i++ {
		if len(d.cam.BlackLevel) > i {
			out.BlackLevels[i] = d.cam.BlackLevel[i]
		}
		out.WhiteLevels[i] = d.cam.WhiteLevel
		if out.WhiteLevels[i] == 0 {
			out.WhiteLevels[i] = uint32(1<<uint(bits)) - 1
		}
	}

	if params.Embedded {
		out.OriginalBytes, err = d.src.SubviewUntilEOF(0)
		if err != nil {
			return nil, rawerr.Wrap(rawerr.Io, err, "formats: reading original file bytes")
		}
	}
	return out, nil
}

func (d *tiffRawDecoder) RawMetadata(params rawimage.Params) (rawimage.Metadata, error) {
	return metadata.FromIFD(d.ifd0), nil
}

// Layout reports the raw IFD's strip/tile geometry and nominal
// compression without decoding any chunk, per registry.LayoutDescriber.
func (d *tiffRawDecoder) Layout() (registry.Layout, error) {
	ifd := d.rawIFD
	width := int(ifd.FirstU32(tagImageWidth))
	height := int(ifd.FirstU32(tagImageLength))
	_, rowsPerChunk, chunkWidth, err := chunkLayout(ifd, width, height)
	if err != nil {
		return registry.Layout{}, err
	}
	_, tiled := ifd.Tag(tagTileOffsets)
	return registry.Layout{
		Width: width, Height: height,
		ChunkWidth: chunkWidth, ChunkHeight: rowsPerChunk,
		Tiled:       tiled,
		Compression: compressionName(d.mode, int(ifd.FirstU32(tagCompression))),
	}, nil
}

func compressionName(mode string, tag int) string {
	if mode == "canon-cr2-ljpeg" {
		return "ljpeg92"
	}
	switch tag {
	case compUncompressed:
		return "uncompressed"
	case compOldJPEG, compJPEG:
		return "ljpeg92"
	case compDeflate:
		return "deflate+float"
	case compLZW:
		return "lzw"
	default:
		return "unknown"
	}
}

type chunkLoc struct {
	offset, size uint32
}

// chunkLayout builds the strip- or tile-offset/bytecount list for ifd,
// preferring tiles when present (per spec §4.8's TileWidth/TileLength
// convention) and falling back to strips otherwise. It also returns the
// per-chunk row count and sample width used to lay decoded chunks back
// into the full-size plane.
func chunkLayout(ifd *tiff.IFD, width, height int) (chunks []chunkLoc, rowsPerChunk, chunkWidth int, err error) {
	if t, ok := ifd.Tag(tagTileOffsets); ok {
		offs, e1 := t.AsU32Slice()
		counts, _ := ifd.Tags[tagTileByteCounts].AsU32Slice()
		if e1 != nil || len(counts) != len(offs) {
			return nil, 0, 0, rawerr.New(rawerr.DecoderFailed, "formats: malformed tile tables")
		}
		chunkWidth = int(ifd.FirstU32(tagTileWidth))
		rowsPerChunk = int(ifd.FirstU32(tagTileLength))
		for i := range offs {
			chunks = append(chunks, chunkLoc{offs[i], counts[i]})
		}
		return chunks, rowsPerChunk, chunkWidth, nil
	}

	t, ok := ifd.Tag(tagStripOffsets)
	if !ok {
		return nil, 0, 0, rawerr.New(rawerr.DecoderFailed, "formats: no StripOffsets/TileOffsets tag")
	}
	offs, err := t.AsU32Slice()
	if err != nil {
		return nil, 0, 0, err
	}
	counts, err := ifd.Tags[tagStripByteCounts].AsU32Slice()
	if err != nil || len(counts) != len(offs) {
		return nil, 0, 0, rawerr.New(rawerr.DecoderFailed, "formats: malformed StripByteCounts")
	}
	rowsPerChunk = int(ifd.FirstU32(tagRowsPerStrip))
	if rowsPerChunk == 0 {
		rowsPerChunk = height
	}
	chunkWidth = width
	for i := range offs {
		chunks = append(chunks, chunkLoc{offs[i], counts[i]})
	}
	return chunks, rowsPerChunk, chunkWidth, nil
}

// decodeLJPEGChunk decodes one LJPEG-compressed strip/tile and flattens its
// components back into a single width*rows mosaic plane. A single-component
// scan copies straight through; a multi-component scan is assumed
// column-interleaved (component i occupies every nComp'th column), the
// layout Canon's CR2 encoder uses for its 2- and 4-component strips.
func decodeLJPEGChunk(data []byte, width, rows int) ([]uint16, error) {
	frame, err := ljpeg.Decode(data)
	if err != nil {
		return nil, err
	}
	nComp := len(frame.Components)
	if nComp == 0 {
		return nil, rawerr.New(rawerr.DecoderFailed, "ljpeg: zero components")
	}
	if nComp == 1 {
		return frame.Components[0].Samples, nil
	}
	out := make([]uint16, width*rows)
	compWidth := frame.Components[0].Width
	for y := 0; y < rows && y < frame.Components[0].Height; y++ {
		for ci := 0; ci < nComp; ci++ {
			comp := frame.Components[ci]
			for x := 0; x < compWidth; x++ {
				ox := x*nComp + ci
				if ox >= width {
					continue
				}
				out[y*width+ox] = comp.Samples[y*compWidth+x]
			}
		}
	}
	return out, nil
}

// quantizeFloatPlane clamps a decoded floating-point sample plane (DNG
// linear-float raw, e.g. some Hasselblad/Phase One backs) into the u16
// sensor-domain representation RawImage.Pixels16 carries. The float plane
// itself is not kept: PixelsF32 stays empty, and the DNG writer emits these
// quantized samples.
func quantizeFloatPlane(f []float32) []uint16 {
	out := make([]uint16, len(f))
	for i, v := range f {
		if v < 0 {
			v = 0
		}
		if v > 1 {
			v = 1
		}
		out[i] = uint16(v * 65535)
	}
	return out
}

func unpackUncompressed(data []byte, count, bits int, order binary.ByteOrder) ([]uint16, error) {
	switch bits {
	case 8:
		var table [256]uint16
		for i := range table {
			table[i] = uint16(i) << 8
		}
		return packed.Unpack8BitWTable(data, count, table)
	case 10:
		return packed.Unpack10LELSB16(data, count)
	case 12:
		return packed.Unpack12LE16BitAligned(data, count)
	case 16:
		if order == binary.BigEndian {
			return packed.Unpack16BE(data, count)
		}
		return packed.Unpack16LE(data, count)
	default:
		return nil, rawerr.New(rawerr.Unsupported, "formats: unsupported uncompressed bit depth %d", bits)
	}
}

// copyChunkInto writes a decoded chunkWidth x rowCount plane into the
// full-size pixel buffer at (0, rowStart), handling a chunk narrower than
// the full image width (the last column-tile in a tiled layout).
func copyChunkInto(dst, src []uint16, fullWidth, chunkWidth, rowStart, rowCount int) {
	for y := 0; y < rowCount; y++ {
		srcRow := src[y*chunkWidth : (y+1)*chunkWidth]
		dstOff := (rowStart + y) * fullWidth
		n := chunkWidth
		if dstOff+n > len(dst) {
			n = len(dst) - dstOff
		}
		if n > 0 {
			copy(dst[dstOff:dstOff+n], srcRow[:n])
		}
	}
}
