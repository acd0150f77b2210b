package crx

// escape/escBits bound the unary prefix search before the coder gives up
// on Golomb-Rice and reads a raw value, per spec §4.5 step 3 ("if q <
// escape ... else read raw as esc_bits bits"). rice.rs/runlength.rs only
// carry the generic decode algorithm, not CRX's specific parameterization
// (the file that pinned these constants did not survive filtering into
// original_source), so this module sizes them the way other Rice-coded
// image codecs (JPEG-LS, FFV1) size their escape threshold: escape is a
// fixed 40, wide enough that an all-but-pathological unary run never hits
// it, and esc_bits is derived from the sample precision (bitsPerSample+1),
// wide enough to hold the full dynamic range after wavelet expansion.
func escapeParams(bitsPerSample int) (escape, escBits uint32) {
	return 40, uint32(bitsPerSample + 1)
}

const kMax = 15

// signedMap folds an unsigned Golomb-Rice code into a signed wavelet
// coefficient: 0,1,2,3,4 -> 0,-1,1,-2,2, the standard interleaving used to
// make a two-sided residual distribution Rice-codable as unsigned values.
func signedMap(v uint32) int32 {
	if v&1 == 0 {
		return int32(v >> 1)
	}
	return -int32((v + 1) >> 1)
}

// decodeSubbandPlane decodes one subband's w*h coefficients row by row.
// Row state (k, s_param) does not cross row boundaries: each row is an
// independently coded unit within the subband bitstream, matching spec
// §4.5 step 3's "per subband row" framing and §9's "confine k/s_param
// mutation to a single task."
func decodeSubbandPlane(br *bitReader, w, h, bitsPerSample int) []int32 {
	escape, escBits := escapeParams(bitsPerSample)
	out := make([]int32, w*h)
	for y := 0; y < h; y++ {
		row := out[y*w : (y+1)*w]
		decodeSubbandRow(br, row, escape, escBits)
	}
	return out
}

func decodeSubbandRow(br *bitReader, row []int32, escape, escBits uint32) {
	p := &bandParam{rice: newRiceDecoder(br)}
	w := len(row)
	i := 0
	for i < w {
		val := p.rice.decode(escape, escBits)
		row[i] = signedMap(val)
		p.rice.updateK(val, kMax)
		i++
		if val == 0 && w-i > 1 {
			remaining := uint32(w - i)
			run := symbolRunCount(p, remaining)
			for j := 0; j < int(run); j++ {
				row[i+j] = 0
			}
			i += int(run)
		}
	}
}
