package ljpeg

import "encoding/binary"

// bitWriter accumulates MSB-first bits and stuffs a 0x00 byte after every
// literal 0xFF, the encode-side mirror of bitReader's unstuffing.
type bitWriter struct {
	out  []byte
	cur  uint32
	nbit int
}

func (w *bitWriter) writeBits(v uint32, n int) {
	w.cur = (w.cur << uint(n)) | (v & ((1 << uint(n)) - 1))
	w.nbit += n
	for w.nbit >= 8 {
		w.nbit -= 8
		b := byte(w.cur >> uint(w.nbit))
		w.out = append(w.out, b)
		if b == 0xFF {
			w.out = append(w.out, 0x00)
		}
	}
}

func (w *bitWriter) flush() {
	if w.nbit > 0 {
		b := byte(w.cur << uint(8-w.nbit))
		w.out = append(w.out, b)
		if b == 0xFF {
			w.out = append(w.out, 0x00)
		}
		w.nbit = 0
	}
}

// ssssOf returns the magnitude category (number of bits needed to represent
// v, T.81 Table H.2) and the category's additional bits.
func ssssOf(v int32) (ssss int, bits uint32) {
	if v == 0 {
		return 0, 0
	}
	a := v
	if a < 0 {
		a = -a
	}
	for (int32(1) << uint(ssss)) <= a {
		ssss++
	}
	if v < 0 {
		bits = uint32(v+(int32(1)<<uint(ssss))-1) & ((1 << uint(ssss)) - 1)
	} else {
		bits = uint32(v) & ((1 << uint(ssss)) - 1)
	}
	return ssss, bits
}

// EncodeParams configures a single-component lossless JPEG-92 tile encode,
// mirroring ConvertParams.predictor/ConvertParams.compression at the
// dngwriter call site (spec §4.6, "Encoder ... Predictor is taken from
// ConvertParams.predictor").
type EncodeParams struct {
	Predictor       int // 1..7, default 1
	RestartInterval int // 0 disables restart markers
}

// Encode produces a complete SOI..EOI lossless-JPEG-92 stream for a single
// u16 plane, building its Huffman table from the tile's own difference
// histogram (spec §4.6: "a Huffman table derived from the sample histogram
// of that tile ... is also acceptable").
func Encode(samples []uint16, width, height, precision int, p EncodeParams) ([]byte, error) {
	if precision < 2 || precision > 16 {
		return nil, newError(UnsupportedPrecision, "precision %d", precision)
	}
	predictor := p.Predictor
	if predictor < 1 || predictor > 7 {
		predictor = 1
	}
	plane := Plane{Width: width, Height: height, Samples: samples}
	base := int32(1) << uint(precision-1)

	freq := make(map[uint8]int)
	diffs := make([]int32, width*height)
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			pred := predict(plane, x, y, predictor, base)
			// The difference is taken modulo 2^16, matching the decoder's
			// modulo-65536 reconstruction and keeping categories within 0-16.
			d := int32(int16(int32(samples[y*width+x]) - pred))
			ssss, _ := ssssOf(d)
			diffs[y*width+x] = d
			freq[uint8(ssss)]++
		}
	}
	bits, values := buildTableFromHistogram(freq)
	tbl := newHuffTable(bits, values)

	var buf []byte
	put16 := func(v uint16) { buf = binary.BigEndian.AppendUint16(buf, v) }
	put16(markerSOI)

	// SOF3: len(2) + precision(1) + height(2) + width(2) + nComp(1) + per-comp{id(1) sampling(1) qtable(1)}
	put16(markerSOF3)
	put16(11)
	buf = append(buf, byte(precision))
	buf = binary.BigEndian.AppendUint16(buf, uint16(height))
	buf = binary.BigEndian.AppendUint16(buf, uint16(width))
	buf = append(buf, 1, 1, 0x11, 0)

	// DHT: len(2) + class/id(1) + 16 counts + values
	dhtLen := 2 + 1 + 16 + len(values)
	put16(markerDHT)
	put16(uint16(dhtLen))
	buf = append(buf, 0x00) // DC class 0, table id 0
	buf = append(buf, bits[:]...)
	buf = append(buf, values...)

	if p.RestartInterval > 0 {
		put16(markerDRI)
		put16(4)
		buf = binary.BigEndian.AppendUint16(buf, uint16(p.RestartInterval))
	}

	// SOS: len(2) + nComp(1) + {id(1) tableSel(1)} + Ss(1) + Se(1) + AhAl(1)
	put16(markerSOS)
	put16(8)
	buf = append(buf, 1, 1, 0x00)
	buf = append(buf, byte(predictor), 0, 0)

	bw := &bitWriter{}
	mcusSinceRestart := 0
	rst := 0
	for y := 0; y < height; y++ {
		for x := 0; x < width; x++ {
			d := diffs[y*width+x]
			ssss, extra := ssssOf(d)
			code, ok := tbl.codes[uint8(ssss)]
			if !ok {
				return nil, newError(HuffmanOverflow, "no code for category %d", ssss)
			}
			bw.writeBits(uint32(code), int(tbl.length[uint8(ssss)]))
			if ssss > 0 {
				bw.writeBits(extra, ssss)
			}
			if p.RestartInterval > 0 {
				mcusSinceRestart++
				if mcusSinceRestart == p.RestartInterval && !(x == width-1 && y == height-1) {
					bw.flush()
					buf = append(buf, bw.out...)
					buf = append(buf, 0xFF, byte(markerRST0+rst%8))
					bw.out = nil
					mcusSinceRestart = 0
					rst++
				}
			}
		}
	}
	bw.flush()
	buf = append(buf, bw.out...)
	put16(markerEOI)
	return buf, nil
}
