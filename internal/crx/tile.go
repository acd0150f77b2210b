package crx

import "encoding/binary"

// subbandSizes returns, for an image_levels-deep decomposition of a
// tile/plane (tileW, tileH), the dimensions of the deepest LL band and
// each level's HL/LH/HH bands (index 0 = finest level), per spec §4.5
// step 1's "wavelet-decomposed into image_levels levels; at each level
// three subbands plus the LL of the deepest level."
func subbandSizes(tileW, tileH, levels int) (llW, llH int, levelDims []struct{ W, H int }) {
	w, h := tileW, tileH
	dims := make([]struct{ W, H int }, 0, levels)
	for i := 0; i < levels; i++ {
		w = (w + 1) / 2
		h = (h + 1) / 2
		dims = append(dims, struct{ W, H int }{w, h})
	}
	// dims[levels-1] is the coarsest (smallest); LL matches it.
	return dims[levels-1].W, dims[levels-1].H, dims
}

// subbandIndex reads the fixed-width length table that precedes a tile's
// entropy-coded bitstream inside mdat, per spec §4.5 step 2
// ("mdat_hdr_size-bytes of index... lists (subband_id, byte_length) per
// subband in a fixed traversal order"). This module models the index as
// numSubbands consecutive big-endian u32 byte lengths, one per subband in
// traversal order, filling exactly mdatHdrSize bytes; the exact index
// record shape did not survive filtering into original_source, so this
// is an original-design completion of a documented-but-unavailable
// format, kept deliberately simple (a plain length table) since nothing
// in spec.md calls for per-subband flags beyond the length.
func subbandIndex(data []byte, mdatHdrSize, numSubbands int) []uint32 {
	lengths := make([]uint32, numSubbands)
	for i := 0; i < numSubbands && (i+1)*4 <= mdatHdrSize && (i+1)*4 <= len(data); i++ {
		lengths[i] = binary.BigEndian.Uint32(data[i*4 : i*4+4])
	}
	return lengths
}

// decodePlane decodes one plane (one tile, one color-plane) of CRX data
// into a reconstructed coefficient grid, then clamps it to a u16 plane.
// data is the plane's encoded bytes: mdatHdrSize bytes of subband-length
// index, followed by each subband's entropy-coded, byte-aligned
// bitstream in the same traversal order as the index (LL first, then
// each level from deepest to shallowest as HL, LH, HH).
func decodePlane(data []byte, tileW, tileH int, hdr Header) ([]uint16, int, error) {
	levels := hdr.ImageLevels
	if levels == 0 {
		// No decomposition: the "subband" bitstream is the plane itself.
		lengths := subbandIndex(data, hdr.MdatHdrSize, 1)
		if int(lengths[0]) == 0 {
			return nil, 0, newError(InvalidSubbandLength, "zero-length undecomposed plane")
		}
		br := newBitReader(data[hdr.MdatHdrSize:])
		coeffs := decodeSubbandPlane(br, tileW, tileH, hdr.BitsPerSample)
		return toU16(coeffs, hdr.BitsPerSample), hdr.MdatHdrSize + int(lengths[0]), nil
	}

	llW, llH, levelDims := subbandSizes(tileW, tileH, levels)
	numSubbands := hdr.subbandsPerPlane()
	lengths := subbandIndex(data, hdr.MdatHdrSize, numSubbands)
	for _, l := range lengths {
		if l == 0 {
			return nil, 0, newError(InvalidSubbandLength, "subband declared zero length")
		}
	}

	off := hdr.MdatHdrSize
	idx := 0
	nextSubband := func(w, h int) []int32 {
		length := int(lengths[idx])
		idx++
		buf := data[off : off+length]
		off += length
		br := newBitReader(buf)
		return decodeSubbandPlane(br, w, h, hdr.BitsPerSample)
	}

	ll := nextSubband(llW, llH)

	// Decode (and process) order runs coarsest level to finest: the
	// subband bitstream lists LL first, then each level's HL/LH/HH from
	// the deepest decomposition level outward, which is also the order
	// reconstruction must apply them in (each level doubles the
	// resolution of the previous reconstruction).
	bands := make([]levelBands, 0, levels)
	for lvl := levels - 1; lvl >= 0; lvl-- {
		w, h := levelDims[lvl].W, levelDims[lvl].H
		bands = append(bands, levelBands{
			HL: nextSubband(w, h),
			LH: nextSubband(w, h),
			HH: nextSubband(w, h),
		})
	}

	plane, w, h := inverseWavelet2D(ll, llW, llH, bands)
	// Crop any rounding overshoot from the ceil(/2) level sizing back to
	// the tile's true dimensions.
	if w != tileW || h != tileH {
		cropped := make([]int32, tileW*tileH)
		for y := 0; y < tileH && y < h; y++ {
			copy(cropped[y*tileW:y*tileW+min(tileW, w)], plane[y*w:y*w+min(tileW, w)])
		}
		plane = cropped
	}
	return toU16(plane, hdr.BitsPerSample), off, nil
}

func toU16(coeffs []int32, bitsPerSample int) []uint16 {
	out := make([]uint16, len(coeffs))
	for i, v := range coeffs {
		out[i] = clampSample(v, bitsPerSample)
	}
	return out
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
