package formats

import (
	"github.com/rawforge/rawdng/internal/bmff"
	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/crx"
	"github.com/rawforge/rawdng/internal/metadata"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/registry"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/tiff"
	"github.com/rawforge/rawdng/internal/workerpool"
)

func init() {
	registry.Register("canon-crx", newCR3Decoder)
	registry.RegisterIdentity(registry.FormatBMFF, cr3Identity)
}

// cr3Identity reads (make, model, mode) from a CR3's first CMT (CMT1,
// Canon's convention for the standard TIFF IFD0 block) without decoding
// any sample data, per spec §4.4's dispatch-before-decode contract.
func cr3Identity(src source.Source) (make_, model, mode string, err error) {
	file, err := bmff.Parse(src)
	if err != nil {
		return "", "", "", rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing CR3 container")
	}
	if file.Moov == nil || file.Moov.CR3 == nil || len(file.Moov.CR3.Cmt[0]) == 0 {
		return "", "", "", rawerr.New(rawerr.DecoderFailed, "formats: CR3 missing CMT1 block")
	}
	r, firstIFD, err := tiff.NewReader(source.FromBytes(file.Moov.CR3.Cmt[0]))
	if err != nil {
		return "", "", "", rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing CMT1")
	}
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	if err != nil {
		return "", "", "", rawerr.Wrap(rawerr.DecoderFailed, err, "formats: reading CMT1 IFD0")
	}
	make_, model, err = makeModelFromIFD(ifd0)
	return make_, model, "", err
}

// cr3Decoder implements registry.Decoder (plus Thumbnailer) for Canon's
// CRX-compressed CR3 container, wiring internal/bmff's box tree and
// internal/crx's tile decompressor together per spec §4.4/§4.5.
type cr3Decoder struct {
	src  source.Source
	file *bmff.File
	cam  catalog.Camera
	pool *workerpool.Pool
}

func newCR3Decoder(src source.Source, cam catalog.Camera) (registry.Decoder, error) {
	file, err := bmff.Parse(src)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing CR3 container")
	}
	return &cr3Decoder{src: src, file: file, cam: cam, pool: workerpool.New(0)}, nil
}

// rawTrack picks the CR3 track carrying the full RAW image, honoring
// Camera.RawTrackHint/Params.RawTrackOverride (spec §9's open question on
// multi-track CR3s, resolved by SPEC_FULL as an explicit override field)
// and otherwise the first track whose stsd sample entry has a CMP1 header.
func (d *cr3Decoder) rawTrack(params rawimage.Params) (*bmff.TrakBox, error) {
	hint := d.cam.RawTrackHint
	if params.RawTrackOverride != nil {
		hint = *params.RawTrackOverride
	}
	if hint >= 0 && hint < len(d.file.Moov.Traks) {
		t := &d.file.Moov.Traks[hint]
		if t.Mdia.Minf.Stbl.Stsd.Craw != nil && t.Mdia.Minf.Stbl.Stsd.Craw.Cmp1 != nil {
			return t, nil
		}
	}
	for i := range d.file.Moov.Traks {
		t := &d.file.Moov.Traks[i]
		craw := t.Mdia.Minf.Stbl.Stsd.Craw
		if craw != nil && craw.Cmp1 != nil {
			return t, nil
		}
	}
	return nil, rawerr.New(rawerr.DecoderFailed, "formats: no RAW-flavored track in CR3")
}

func (d *cr3Decoder) RawImage(params rawimage.Params) (*rawimage.RawImage, error) {
	params = params.Defaulted()
	track, err := d.rawTrack(params)
	if err != nil {
		return nil, err
	}
	craw := track.Mdia.Minf.Stbl.Stsd.Craw
	cmp1 := craw.Cmp1

	offset, size, err := track.Mdia.Minf.Stbl.SampleOffsetSize(0)
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: locating RAW sample")
	}
	sample, err := d.src.Subview(int(offset), int(size))
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: reading RAW sample")
	}

	planeCount := 1
	if cmp1.EncType == crx.EncodingCRAW {
		planeCount = 4
	}
	hdr := crx.Header{
		Width:         int(cmp1.FWidth),
		Height:        int(cmp1.FHeight),
		TileWidth:     int(cmp1.TileWidth),
		TileHeight:    int(cmp1.TileHeight),
		BitsPerSample: int(cmp1.NBits),
		PlaneCount:    planeCount,
		CFALayout:     int(cmp1.CFALayout),
		EncodingType:  int(cmp1.EncType),
		ImageLevels:   int(cmp1.ImageLevels),
		HasTileCols:   cmp1.HasTileCols,
		HasTileRows:   cmp1.HasTileRows,
		MdatHdrSize:   int(cmp1.MdatHdrSize),
	}
	if hdr.MdatHdrSize > 0 && hdr.MdatHdrSize <= len(sample) {
		sample = sample[hdr.MdatHdrSize:]
	}

	img, err := crx.Decode(sample, hdr, d.pool)
	if err != nil {
		return nil, err
	}

	active := rawimage.Rect{Top: d.cam.ActiveArea[0], Left: d.cam.ActiveArea[1], Bottom: d.cam.ActiveArea[2], Right: d.cam.ActiveArea[3]}
	if active == (rawimage.Rect{}) {
		active = rawimage.Rect{Top: 0, Left: 0, Bottom: uint32(img.Height), Right: uint32(img.Width)}
	}
	crop := rawimage.Rect{Top: d.cam.CropArea[0], Left: d.cam.CropArea[1], Bottom: d.cam.CropArea[2], Right: d.cam.CropArea[3]}
	if crop == (rawimage.Rect{}) {
		crop = active
	}
	if craw.Cdi1 != nil && craw.Cdi1.Iad1.Big != nil {
		b := craw.Cdi1.Iad1.Big
		active = rawimage.Rect{Top: uint32(b.ActiveAreaTop), Left: uint32(b.ActiveAreaLeft), Bottom: uint32(b.ActiveAreaBottom), Right: uint32(b.ActiveAreaRight)}
		crop = rawimage.Rect{Top: uint32(b.CropTop), Left: uint32(b.CropLeft), Bottom: uint32(b.CropBottom), Right: uint32(b.CropRight)}
	}

	out := &rawimage.RawImage{
		Camera:             d.cam,
		Width:              img.Width,
		Height:             img.Height,
		ComponentsPerPixel: 1,
		BitDepth:           hdr.BitsPerSample,
		CFAPattern:         d.cam.CFAPattern,
		CFASize:            2,
		ActiveAreaRect:     active,
		CropRect:           crop,
		Pixels16:           img.Pixels,
	}
	for i := 0; i < 4; i++ {
		if len(d.cam.BlackLevel) > i {
			out.BlackLevels[i] = d.cam.BlackLevel[i]
		}
		out.WhiteLevels[i] = d.cam.WhiteLevel
		if out.WhiteLevels[i] == 0 {
			out.WhiteLevels[i] = uint32(1<<uint(hdr.BitsPerSample)) - 1
		}
	}

	if params.Embedded {
		out.OriginalBytes, err = d.src.SubviewUntilEOF(0)
		if err != nil {
			return nil, rawerr.Wrap(rawerr.Io, err, "formats: reading original CR3 bytes")
		}
	}
	return out, nil
}

func (d *cr3Decoder) RawMetadata(params rawimage.Params) (rawimage.Metadata, error) {
	desc := d.file.Moov.CR3
	if desc == nil || len(desc.Cmt[0]) == 0 {
		return rawimage.Metadata{}, rawerr.New(rawerr.DecoderFailed, "formats: CR3 missing CMT1")
	}
	r, firstIFD, err := tiff.NewReader(source.FromBytes(desc.Cmt[0]))
	if err != nil {
		return rawimage.Metadata{}, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: parsing CMT1")
	}
	ifd0, err := r.ReadIFD("IFD0", firstIFD)
	if err != nil {
		return rawimage.Metadata{}, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: reading CMT1 IFD0")
	}
	m := metadata.FromIFD(ifd0)

	// CMT3 carries the EXIF-flavored maker-note-adjacent block and is passed
	// through verbatim as MakerNote, not reinterpreted. CMT4 (the GPS IFD in
	// Canon's CR3 convention) is not copied into the returned Metadata.
	if len(desc.Cmt[2]) > 0 {
		m.MakerNote = append([]byte(nil), desc.Cmt[2]...)
	}
	return m, nil
}

// Layout reports CMP1's tile geometry without decompressing mdat, per
// registry.LayoutDescriber.
func (d *cr3Decoder) Layout() (registry.Layout, error) {
	track, err := d.rawTrack(rawimage.Params{})
	if err != nil {
		return registry.Layout{}, err
	}
	cmp1 := track.Mdia.Minf.Stbl.Stsd.Craw.Cmp1
	name := "crx"
	if cmp1.EncType == crx.EncodingCRAW {
		name = "crx-craw"
	}
	return registry.Layout{
		Width: int(cmp1.FWidth), Height: int(cmp1.FHeight),
		ChunkWidth: int(cmp1.TileWidth), ChunkHeight: int(cmp1.TileHeight),
		Tiled:       cmp1.HasTileCols || cmp1.HasTileRows,
		Compression: name,
	}, nil
}

func (d *cr3Decoder) Thumbnail() (*registry.RGB8Image, error) {
	desc := d.file.Moov.CR3
	if desc == nil || len(desc.Thmb.JPEGData) == 0 {
		return nil, rawerr.New(rawerr.Unsupported, "formats: CR3 carries no THMB thumbnail")
	}
	return decodeJPEGToRGB8(desc.Thmb.JPEGData)
}
