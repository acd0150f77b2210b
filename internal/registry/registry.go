// Package registry implements spec §4.4's decoder dispatch: sniff the
// container, look up (make, model, mode) in the camera catalog, and
// return a per-format decoder bound to the parsed container. Per spec §9's
// design note, vendor decoder polymorphism is represented as a small
// tagged-variant registry (one constructor per decoder name) plus a set of
// optional capability interfaces callers type-assert for, not a deep
// inheritance hierarchy.
package registry

import (
	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/source"
)

// RGB8Image is an uncompressed RGB8 raster, the contract preview/thumbnail/
// full-image accessors return, per spec §4.4 ("optional RGB8").
type RGB8Image struct {
	Width, Height int
	Pixels        []byte // Width*Height*3 bytes, row-major RGB
}

// Decoder is the capability set spec §4.4 names: raw_image and metadata
// are mandatory, the other three are optional and exposed through the
// Previewer/Thumbnailer/FullImager interfaces below.
type Decoder interface {
	RawImage(params rawimage.Params) (*rawimage.RawImage, error)
	RawMetadata(params rawimage.Params) (rawimage.Metadata, error)
}

// Previewer is implemented by decoders that can produce a processed
// preview image (spec §4.4's preview()).
type Previewer interface {
	Preview() (*RGB8Image, error)
}

// Thumbnailer is implemented by decoders carrying a small embedded
// thumbnail (spec §4.4's thumbnail()).
type Thumbnailer interface {
	Thumbnail() (*RGB8Image, error)
}

// FullImager is implemented by decoders that can produce a full-size
// rendered image distinct from the raw sensor plane (spec §4.4's
// full_image(), used by some sRAW/mRAW modes).
type FullImager interface {
	FullImage() (*RGB8Image, error)
}

// Layout is the cheap, decode-free summary SPEC_FULL's analyze
// introspection surface reports: the raw plane's dimensions, whether
// it is chunked as strips or tiles, and the compression scheme that
// would be invoked to decode it.
type Layout struct {
	Width, Height       int
	ChunkWidth, ChunkHeight int
	Tiled               bool
	Compression         string
}

// LayoutDescriber is implemented by decoders that can report Layout
// from the container structure they already parsed at construction,
// without decompressing any tile/strip (spec SUPPLEMENTED FEATURES'
// analyze path).
type LayoutDescriber interface {
	Layout() (Layout, error)
}

// Format is a sniffed container kind, independent of which camera's
// decoder ultimately handles it.
type Format int

const (
	FormatUnknown Format = iota
	FormatTIFF           // classic TIFF/BigTIFF: CR2, DNG, ARW, NEF, ORF, PEF, RAF, RW2, ERF, KDC, DCS, 3FR
	FormatBMFF           // ISO-BMFF: CR3, CRM
	FormatCIFF           // Canon CIFF ("HEAPCCDR"): early PowerShot/EOS bodies
	FormatNaked          // headerless sensor dump, camera identified by file size/extension convention
)

// Sniff identifies a container format from its magic bytes, per spec
// §4.4's "sniff the container (TIFF magic, BMFF ftyp, CIFF 'HEAPCCDR',
// naked buffer)".
func Sniff(src source.Source) (Format, error) {
	head, err := src.Subview(0, min(16, src.Len()))
	if err != nil {
		return FormatUnknown, rawerr.Wrap(rawerr.Io, err, "registry: reading header")
	}
	// CIFF also opens with an "II"/"MM" byte-order mark, so it is checked
	// before TIFF; its "HEAPCCDR" signature sits at offset 6.
	if len(head) >= 14 && string(head[6:14]) == "HEAPCCDR" {
		return FormatCIFF, nil
	}
	if len(head) >= 4 {
		switch {
		case head[0] == 'I' && head[1] == 'I', head[0] == 'M' && head[1] == 'M':
			return FormatTIFF, nil
		}
	}
	if len(head) >= 12 && string(head[4:8]) == "ftyp" {
		return FormatBMFF, nil
	}
	return FormatNaked, nil
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// Constructor builds a Decoder for a sniffed container, already known to
// belong to the given camera descriptor.
type Constructor func(src source.Source, cam catalog.Camera) (Decoder, error)

var constructors = map[string]Constructor{}

// Register adds a named decoder constructor, keyed by catalog.Camera's
// Decoder field (e.g. "canon-crx", "canon-cr2-ljpeg", "tiff-raw-packed").
// Called from each internal/formats decoder's init().
func Register(name string, c Constructor) {
	constructors[name] = c
}

// IdentityReader extracts the (make, model, mode) triple from a sniffed
// container without fully decoding it, so Dispatch can look the camera up
// in the catalog before picking a decoder. Each format package supplies
// one.
type IdentityReader func(src source.Source) (make_, model, mode string, err error)

var identityReaders = map[Format]IdentityReader{}

// RegisterIdentity wires a format's lightweight (make, model, mode) sniff.
func RegisterIdentity(f Format, r IdentityReader) {
	identityReaders[f] = r
}

// Dispatch implements spec §4.4 end to end: sniff, extract camera
// identity, look the triple up in cat, then construct the registered
// decoder for that camera's Decoder name.
func Dispatch(src source.Source, cat *catalog.Catalog) (Decoder, catalog.Camera, error) {
	format, err := Sniff(src)
	if err != nil {
		return nil, catalog.Camera{}, err
	}
	idReader, ok := identityReaders[format]
	if !ok {
		return nil, catalog.Camera{}, rawerr.New(rawerr.Unsupported, "registry: no identity reader for format %d", format)
	}
	make_, model, mode, err := idReader(src)
	if err != nil {
		return nil, catalog.Camera{}, rawerr.Wrap(rawerr.DecoderFailed, err, "registry: reading camera identity")
	}
	cam, ok := cat.Lookup(make_, model, mode)
	if !ok {
		return nil, catalog.Camera{}, rawerr.NewUnsupported(make_, model, mode)
	}
	ctor, ok := constructors[cam.Decoder]
	if !ok {
		return nil, catalog.Camera{}, rawerr.New(rawerr.Unsupported, "registry: no decoder registered for %q", cam.Decoder)
	}
	dec, err := ctor(src, cam)
	if err != nil {
		return nil, catalog.Camera{}, err
	}
	return dec, cam, nil
}
