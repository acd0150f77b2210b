package crx

import (
	"encoding/binary"

	"github.com/rawforge/rawdng/internal/workerpool"
)

// Image is a decoded CRX sensor payload: a single mosaic plane at full
// resolution, CFA geometry already resolved (for CRAW, the four
// de-interleaved planes have been re-interleaved into the Bayer grid per
// spec §4.5 step 5).
type Image struct {
	Width, Height int
	Pixels        []uint16
}

// tileLengthPrefixSize is the width of the per-tile length prefix this
// package expects ahead of each tile's plane data within the mdat sample
// buffer. The per-tile index/offset table, like the per-subband one (see
// subbandIndex), is not present in the filtered original_source; framing
// each tile with an explicit big-endian u32 byte length is this module's
// completion of that gap, consistent with the self-describing-length
// convention CTBO and the subband index already use elsewhere in this
// codebase.
const tileLengthPrefixSize = 4

// Decode reconstructs a full CRX image from its encoded mdat sample and
// CMP1 header, running one decode task per tile across pool per spec
// §4.5/§5 ("tile decoding is embarrassingly parallel and MUST run across
// a worker pool").
func Decode(data []byte, hdr Header, pool *workerpool.Pool) (*Image, error) {
	if hdr.EncodingType != EncodingRAW && hdr.EncodingType != EncodingCRAW {
		return nil, newError(UnsupportedEncodingType, "encoding type %d", hdr.EncodingType)
	}

	cols, rows := hdr.TileGrid()
	out := &Image{Width: hdr.Width, Height: hdr.Height, Pixels: make([]uint16, hdr.Width*hdr.Height)}

	type tileJob struct {
		col, row int
		buf      []byte
	}
	jobs := make([]tileJob, 0, cols*rows)
	off := 0
	for row := 0; row < rows; row++ {
		for col := 0; col < cols; col++ {
			if off+tileLengthPrefixSize > len(data) {
				return nil, newError(InvalidSubbandLength, "truncated tile length prefix at tile (%d,%d)", col, row)
			}
			length := int(binary.BigEndian.Uint32(data[off : off+tileLengthPrefixSize]))
			off += tileLengthPrefixSize
			if off+length > len(data) {
				return nil, newError(InvalidSubbandLength, "truncated tile payload at tile (%d,%d)", col, row)
			}
			jobs = append(jobs, tileJob{col: col, row: row, buf: data[off : off+length]})
			off += length
		}
	}

	tasks := make([]func() error, len(jobs))
	for i, job := range jobs {
		i, job := i, job
		tasks[i] = func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					if e, ok := r.(error); ok {
						err = e
					} else {
						err = newError(BitstreamUnderflow, "panic: %v", r)
					}
				}
			}()
			x0, y0, x1, y1 := hdr.tileBounds(job.col, job.row)
			tileW, tileH := x1-x0, y1-y0
			return decodeTileInto(job.buf, tileW, tileH, hdr, out, x0, y0)
		}
	}
	if err := pool.Run(tasks); err != nil {
		return nil, err
	}
	return out, nil
}

// decodeTileInto decodes one tile's plane(s) and writes them into out at
// pixel offset (x0,y0), reinterleaving CRAW's four de-interleaved planes
// back to the Bayer grid per cfaLayout.
func decodeTileInto(buf []byte, tileW, tileH int, hdr Header, out *Image, x0, y0 int) error {
	if hdr.PlaneCount == 1 {
		plane, _, err := decodePlane(buf, tileW, tileH, hdr)
		if err != nil {
			return err
		}
		for y := 0; y < tileH; y++ {
			copy(out.Pixels[(y0+y)*out.Width+x0:(y0+y)*out.Width+x0+tileW], plane[y*tileW:(y+1)*tileW])
		}
		return nil
	}

	// CRAW: four half-resolution planes, one per position in a 2x2 Bayer
	// quad, de-interleaved before wavelet coding. Decode each in turn
	// (consuming buf sequentially) then interleave into the full-size
	// mosaic at their CFA-layout-determined quad position.
	halfW, halfH := tileW/2, tileH/2
	planes := make([][]uint16, hdr.PlaneCount)
	consumed := 0
	for p := 0; p < hdr.PlaneCount; p++ {
		plane, n, err := decodePlane(buf[consumed:], halfW, halfH, hdr)
		if err != nil {
			return err
		}
		planes[p] = plane
		consumed += n
	}

	quad := cfaQuadOffsets(hdr.CFALayout)
	for p := 0; p < hdr.PlaneCount && p < len(quad); p++ {
		dx, dy := quad[p][0], quad[p][1]
		plane := planes[p]
		for y := 0; y < halfH; y++ {
			for x := 0; x < halfW; x++ {
				px := x0 + 2*x + dx
				py := y0 + 2*y + dy
				if px < out.Width && py < out.Height {
					out.Pixels[py*out.Width+px] = plane[y*halfW+x]
				}
			}
		}
	}
	return nil
}

// cfaQuadOffsets maps CMP1's cfa_layout field to the (x,y) offset within
// a 2x2 Bayer quad that each of the four de-interleaved CRAW planes
// (decoded in R, G1, G2, B order) belongs at. Layout values follow DNG's
// CFAPattern numbering (0=RGGB, 1=GRBG, 2=GBRG, 3=BGGR), the same
// convention internal/catalog's Camera.CFAPattern uses.
func cfaQuadOffsets(layout int) [4][2]int {
	switch layout & 0x3 {
	case 1: // GRBG
		return [4][2]int{{1, 0}, {0, 0}, {1, 1}, {0, 1}}
	case 2: // GBRG
		return [4][2]int{{0, 1}, {0, 0}, {1, 1}, {1, 0}}
	case 3: // BGGR
		return [4][2]int{{1, 1}, {1, 0}, {0, 1}, {0, 0}}
	default: // RGGB
		return [4][2]int{{0, 0}, {1, 0}, {0, 1}, {1, 1}}
	}
}
