package crx

// inverseLift53 reconstructs one dimension of a 5/3 reversible wavelet
// transform from a low-pass (approximation) band and a high-pass (detail)
// band, per spec §4.5 step 4: "combine LL with LH/HL/HH subbands by a 1-D
// lifting step... row boundaries use symmetric extension." low and high
// alternate in the output: out[2n] from the low branch, out[2n+1] from
// the high branch. len(low) is len(high) or len(high)+1 (an odd-length
// dimension leaves one extra low-band sample at the end).
//
// This is the standard JPEG2000-style integer 5/3 inverse lifting
// (wavelet.rs itself did not survive filtering into original_source; the
// two-step lifting shape and symmetric extension are taken directly from
// spec §4.5, the coefficient recurrence from the well-known reversible
// 5/3 transform this encoding family is built on).
func inverseLift53(low, high []int32) []int32 {
	nl, nh := len(low), len(high)
	out := make([]int32, nl+nh)

	// detail, with symmetric (mirror, no repeat) extension past either end.
	detail := func(i int) int32 {
		switch {
		case i < 0:
			i = -i - 1
		case i >= nh:
			i = 2*nh - i - 1
		}
		if i < 0 {
			i = 0
		}
		if i >= nh {
			i = nh - 1
		}
		return high[i]
	}

	evens := make([]int32, nl)
	for n := 0; n < nl; n++ {
		evens[n] = low[n] - floorDiv2(detail(n-1)+detail(n))
	}

	for n := 0; n < nh; n++ {
		left := evens[n]
		right := left
		if n+1 < nl {
			right = evens[n+1]
		}
		out[2*n] = left
		out[2*n+1] = high[n] + floorDiv2(left+right)
	}
	if nl > nh {
		out[2*nh] = evens[nl-1]
	}
	return out
}

func floorDiv2(a int32) int32 {
	if a >= 0 {
		return a / 2
	}
	return -((-a + 1) / 2)
}

// clampSample clamps a reconstructed coefficient to the valid unsigned
// range for bitsPerSample, per spec §4.5 step 4's "output samples are
// clamped to [0, (1<<bits_per_sample)-1]".
func clampSample(v int32, bitsPerSample int) uint16 {
	max := int32(1)<<uint(bitsPerSample) - 1
	if v < 0 {
		return 0
	}
	if v > max {
		return uint16(max)
	}
	return uint16(v)
}

// levelBands holds one decomposition level's three detail subbands. At a
// given level HL, LH and HH are all the same size as the low-resolution
// image being refined (a one-level 2D separable DWT of a 2w*2h image
// produces four w*h subbands); reconstruction combines that quadruple
// into the next, twice-as-large low-resolution image.
type levelBands struct {
	HL, LH, HH []int32
}

// inverseWavelet2D reconstructs one plane from its deepest LL subband and
// the per-level detail bands, deepest level first (levels[0] is the
// coarsest, applied directly to ll; levels[len-1] is the final,
// full-resolution level).
func inverseWavelet2D(ll []int32, llW, llH int, levels []levelBands) (plane []int32, w, h int) {
	cur, curW, curH := ll, llW, llH
	for _, lvl := range levels {
		cur, curW, curH = reconstructLevel(cur, curW, curH, lvl)
	}
	return cur, curW, curH
}

// reconstructLevel undoes one level of decomposition: vertical lifting
// (per column) combines (LL, LH) and (HL, HH) into two intermediate
// w*2h bands, then horizontal lifting (per row) combines those into the
// 2w*2h reconstructed image for this level.
func reconstructLevel(ll []int32, w, h int, lvl levelBands) ([]int32, int, int) {
	outH := 2 * h
	left := make([]int32, w*outH)  // vertical reconstruction of (LL, LH)
	right := make([]int32, w*outH) // vertical reconstruction of (HL, HH)

	colLow := make([]int32, h)
	colHigh := make([]int32, h)
	for c := 0; c < w; c++ {
		for r := 0; r < h; r++ {
			colLow[r] = ll[r*w+c]
			colHigh[r] = lvl.LH[r*w+c]
		}
		rec := inverseLift53(colLow, colHigh)
		for r := 0; r < outH; r++ {
			left[r*w+c] = rec[r]
		}

		for r := 0; r < h; r++ {
			colLow[r] = lvl.HL[r*w+c]
			colHigh[r] = lvl.HH[r*w+c]
		}
		rec = inverseLift53(colLow, colHigh)
		for r := 0; r < outH; r++ {
			right[r*w+c] = rec[r]
		}
	}

	outW := 2 * w
	out := make([]int32, outW*outH)
	rowLow := make([]int32, w)
	rowHigh := make([]int32, w)
	for r := 0; r < outH; r++ {
		copy(rowLow, left[r*w:(r+1)*w])
		copy(rowHigh, right[r*w:(r+1)*w])
		rec := inverseLift53(rowLow, rowHigh)
		copy(out[r*outW:(r+1)*outW], rec)
	}
	return out, outW, outH
}
