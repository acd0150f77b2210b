package crx

// jTable and jShift are ported verbatim from runlength.rs's J/JSHIFT
// constants (ITU T.87 Annex A.7.1.2's run-length coding tables): J[s]
// bits are read to decode the remainder of a run, and JSHIFT[s] = 1<<J[s]
// is the run-length contribution of each consumed "1" bit while scanning
// the unary run-count prefix.
var jTable = [32]uint32{
	0, 0, 0, 0, 1, 1, 1, 1,
	2, 2, 2, 2, 3, 3, 3, 3,
	4, 4, 5, 5, 6, 6, 7, 7,
	8, 9, 10, 11, 12, 13, 14, 15,
}

var jShift = func() [32]uint32 {
	var t [32]uint32
	for i, j := range jTable {
		t[i] = 1 << j
	}
	return t
}()

// bandParam carries the per-subband-row decoder state that run-length
// decoding shares with the rice decoder: the rice decoder itself plus the
// saturating s_param index into jTable/jShift. This state is local to one
// row of one subband and must never be shared across tasks (§9's "confine
// mutation to a single task").
type bandParam struct {
	rice   *riceDecoder
	sParam uint32
}

// symbolRunCount decodes the length of a run of zero-valued coefficients,
// ported from CodecParams::symbol_run_count in runlength.rs. remaining is
// the number of coefficients left to decode in the current row; the
// returned count never exceeds it.
func symbolRunCount(p *bandParam, remaining uint32) uint32 {
	runCnt := uint32(1)
	for runCnt != remaining && p.rice.br.read(1) == 1 {
		runCnt += jShift[p.sParam]
		if runCnt > remaining {
			runCnt = remaining
			break
		}
		if p.sParam < 31 {
			p.sParam++
		}
	}
	if runCnt < remaining {
		if jTable[p.sParam] > 0 {
			runCnt += p.rice.br.read(jTable[p.sParam])
		}
		if p.sParam > 0 {
			p.sParam--
		}
		if runCnt > remaining {
			panic(errRunOverflow)
		}
	}
	return runCnt
}
