package crx

// Header is this package's view of the CMP1 compression header described
// by spec §4.5 ({image_width, image_height, tile_width, tile_height,
// bits_per_sample, plane_count, cfa_layout, encoding_type, image_levels,
// has_tile_cols, has_tile_rows, mdat_hdr_size}). internal/bmff parses the
// on-wire CMP1 box; callers translate that into this Header so the
// decompressor has no dependency on the container package.
type Header struct {
	Width, Height         int
	TileWidth, TileHeight int
	BitsPerSample         int
	PlaneCount            int // 1 for RAW, 4 for CRAW (de-interleaved Bayer quads)
	CFALayout             int
	EncodingType          int // 0 = RAW, 3 = CRAW
	ImageLevels           int // wavelet decomposition depth, 0..5
	HasTileCols           bool
	HasTileRows           bool
	MdatHdrSize           int
}

const (
	EncodingRAW  = 0
	EncodingCRAW = 3
)

// TileGrid returns the number of tile columns and rows covering the
// image, derived the same way the CMP1 header's has_tile_cols/
// has_tile_rows flags gate whether a dimension is tiled at all (an
// untiled dimension is a single tile spanning the whole image).
func (h Header) TileGrid() (cols, rows int) {
	cols, rows = 1, 1
	if h.HasTileCols && h.TileWidth > 0 {
		cols = (h.Width + h.TileWidth - 1) / h.TileWidth
	}
	if h.HasTileRows && h.TileHeight > 0 {
		rows = (h.Height + h.TileHeight - 1) / h.TileHeight
	}
	return cols, rows
}

// tileBounds returns the pixel rectangle for tile (col, row), clipped to
// the image bounds (the rightmost/bottommost tile is typically partial).
func (h Header) tileBounds(col, row int) (x0, y0, x1, y1 int) {
	tw, th := h.TileWidth, h.TileHeight
	if tw == 0 {
		tw = h.Width
	}
	if th == 0 {
		th = h.Height
	}
	x0, y0 = col*tw, row*th
	x1, y1 = x0+tw, y0+th
	if x1 > h.Width {
		x1 = h.Width
	}
	if y1 > h.Height {
		y1 = h.Height
	}
	return
}

// subbandsPerPlane is 3 per decomposition level (HL, LH, HH) plus one
// final LL, per spec §4.5 step 1.
func (h Header) subbandsPerPlane() int {
	return 3*h.ImageLevels + 1
}
