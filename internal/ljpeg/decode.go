package ljpeg

import "encoding/binary"

// Plane is one decoded lossless-JPEG-92 component: a full-precision sample
// grid (stored widened to uint16 regardless of source precision, matching
// how DNG tiles are always handed around as u16 planes per spec §3).
type Plane struct {
	Width, Height int
	Samples       []uint16
}

// Frame is the result of decoding one lossless JPEG-92 scan: one Plane per
// component, in SOF3 component order.
type Frame struct {
	Precision  int
	Components []Plane
}

type component struct {
	id         uint8
	hSamp      uint8
	vSamp      uint8
	tableSel   uint8 // DC/lossless Huffman table selector from SOS
	predictor  int
	width      int
	height     int
}

// Decode parses a standalone lossless-JPEG-92 bitstream (SOI...EOI) per
// spec §4.6: SOF3 for dimensions/precision/components, DHT for Huffman
// tables, SOS for the predictor selector and entropy-coded scan.
func Decode(data []byte) (*Frame, error) {
	if len(data) < 4 || binary.BigEndian.Uint16(data[0:2]) != markerSOI {
		return nil, newError(MissingMarker, "missing SOI")
	}
	pos := 2
	tables := make(map[uint8]*huffTable)
	var precision, width, height int
	var comps []component
	var restartInterval int

	for pos+4 <= len(data) {
		marker := binary.BigEndian.Uint16(data[pos : pos+2])
		if marker == markerEOI {
			return nil, newError(MissingMarker, "hit EOI before SOS")
		}
		segLen := int(binary.BigEndian.Uint16(data[pos+2 : pos+4]))
		if pos+2+segLen > len(data) {
			return nil, newError(TruncatedScan, "marker segment runs past buffer end")
		}
		seg := data[pos+4 : pos+2+segLen]

		switch marker {
		case markerSOF3:
			if len(seg) < 6 {
				return nil, newError(TruncatedScan, "short SOF3")
			}
			precision = int(seg[0])
			if precision < 2 || precision > 16 {
				return nil, newError(UnsupportedPrecision, "precision %d", precision)
			}
			height = int(binary.BigEndian.Uint16(seg[1:3]))
			width = int(binary.BigEndian.Uint16(seg[3:5]))
			nComp := int(seg[5])
			comps = make([]component, nComp)
			off := 6
			for i := 0; i < nComp; i++ {
				comps[i] = component{
					id:     seg[off],
					hSamp:  seg[off+1] >> 4,
					vSamp:  seg[off+1] & 0xf,
					width:  width,
					height: height,
				}
				off += 3
			}
		case markerDHT:
			off := 0
			for off+17 <= len(seg) {
				class := seg[off] >> 4
				_ = class
				id := seg[off] & 0xf
				var bits [16]uint8
				copy(bits[:], seg[off+1:off+17])
				n := 0
				for _, b := range bits {
					n += int(b)
				}
				off += 17
				if off+n > len(seg) {
					return nil, newError(TruncatedScan, "DHT table runs past segment")
				}
				values := append([]uint8(nil), seg[off:off+n]...)
				off += n
				tables[id] = newHuffTable(bits, values)
			}
		case markerDRI:
			if len(seg) >= 2 {
				restartInterval = int(binary.BigEndian.Uint16(seg[0:2]))
			}
		case markerSOS:
			if len(seg) < 1 {
				return nil, newError(TruncatedScan, "short SOS")
			}
			nComp := int(seg[0])
			off := 1
			for i := 0; i < nComp && i < len(comps); i++ {
				id := seg[off]
				sel := seg[off+1] >> 4
				for ci := range comps {
					if comps[ci].id == id {
						comps[ci].tableSel = sel
					}
				}
				off += 2
			}
			predictor := int(seg[off]) // Ss, the predictor selector per Annex H
			scanStart := pos + 2 + segLen
			frame, err := decodeScan(data[scanStart:], width, height, precision, comps, tables, predictor, restartInterval)
			if err != nil {
				return nil, err
			}
			return frame, nil
		}
		pos += 2 + segLen
	}
	return nil, newError(MissingMarker, "missing SOS")
}

func decodeScan(data []byte, width, height, precision int, comps []component, tables map[uint8]*huffTable, predictor, restartInterval int) (*Frame, error) {
	planes := make([]Plane, len(comps))
	for i := range comps {
		planes[i] = Plane{Width: width, Height: height, Samples: make([]uint16, width*height)}
	}

	br := newBitReader(data)
	base := int32(1) << uint(precision-1)
	mcusSinceRestart := 0

	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			for ci, c := range comps {
				tbl, ok := tables[c.tableSel]
				if !ok {
					return nil, newError(MissingMarker, "no Huffman table %d for component %d", c.tableSel, c.id)
				}
				ssss, err := tbl.decode(br)
				if err != nil {
					return nil, err
				}
				diff := receiveExtend(br, int(ssss))

				pred := predict(planes[ci], x, y, predictor, base)
				// T.81 Annex H.1.2.1: the reconstructed sample is Px+Diff taken
				// modulo 65536, not clamped — predictors 4-6 can sum neighbors
				// to a value outside the nominal precision range before the
				// difference brings it back in.
				v := (pred + diff) & 0xFFFF
				planes[ci].Samples[y*width+x] = uint16(v)
			}
			if restartInterval > 0 {
				mcusSinceRestart++
				if mcusSinceRestart == restartInterval && !(x == width-1 && y == height-1) {
					br.resetAfterRestart()
					mcusSinceRestart = 0
				}
			}
		}
	}
	return &Frame{Precision: precision, Components: planes}, nil
}

// predict computes the predicted sample value for (x,y) from already
// decoded neighbors per spec §4.6's seven predictors (A=left, B=above,
// C=above-left). Row 0/col 0 seed from the base value / left neighbor, per
// T.81 Annex H.1.2.
func predict(p Plane, x, y, predictor int, base int32) int32 {
	if x == 0 && y == 0 {
		return base
	}
	a := func() int32 {
		if x == 0 {
			return int32(p.Samples[(y-1)*p.Width+x]) // first column predicts from above, Annex H.1.2.1
		}
		return int32(p.Samples[y*p.Width+x-1])
	}
	b := func() int32 {
		if y == 0 {
			return a()
		}
		return int32(p.Samples[(y-1)*p.Width+x])
	}
	c := func() int32 {
		if x == 0 || y == 0 {
			return b()
		}
		return int32(p.Samples[(y-1)*p.Width+x-1])
	}
	if y == 0 {
		return a()
	}
	if x == 0 {
		return b()
	}
	switch predictor {
	case 1:
		return a()
	case 2:
		return b()
	case 3:
		return c()
	case 4:
		return a() + b() - c()
	case 5:
		return a() + ((b() - c()) >> 1)
	case 6:
		return b() + ((a() - c()) >> 1)
	case 7:
		return (a() + b()) / 2
	default:
		return a()
	}
}
