package packed

// Unpack10LELSB16 unpacks a row of little-endian 10-bit samples packed LSB
// first (4 samples per 5 bytes), the layout several Sony/Canon sRAW-era
// sensors use, per spec §4.7's "10le_lsb16" unpacker.
func Unpack10LELSB16(row []byte, count int) ([]uint16, error) {
	need := (count*10 + 7) / 8
	if len(row) < need {
		return nil, newError(TruncatedInput, "10le_lsb16: need %d bytes, have %d", need, len(row))
	}
	out := make([]uint16, count)
	var acc uint32
	var nbits uint
	bi := 0
	for i := 0; i < count; i++ {
		for nbits < 10 {
			acc |= uint32(row[bi]) << nbits
			nbits += 8
			bi++
		}
		out[i] = uint16(acc & 0x3ff)
		acc >>= 10
		nbits -= 10
	}
	return out, nil
}

// Unpack12BEMSB16 unpacks big-endian 12-bit samples packed MSB first
// (2 samples per 3 bytes), the classic "12be_msb16" layout.
func Unpack12BEMSB16(row []byte, count int) ([]uint16, error) {
	need := (count*12 + 7) / 8
	if len(row) < need {
		return nil, newError(TruncatedInput, "12be_msb16: need %d bytes, have %d", need, len(row))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i += 2 {
		b0, b1, b2 := row[i/2*3], row[i/2*3+1], row[i/2*3+2]
		out[i] = uint16(b0)<<4 | uint16(b1)>>4
		if i+1 < count {
			out[i+1] = (uint16(b1)&0xf)<<8 | uint16(b2)
		}
	}
	return out, nil
}

// Unpack12LE16BitAligned unpacks 12-bit samples each stored in its own
// little-endian 16-bit slot (the top 4 bits unused), a common RAW strip
// layout ("12le_16bitaligned") that needs only a mask.
func Unpack12LE16BitAligned(row []byte, count int) ([]uint16, error) {
	if len(row) < count*2 {
		return nil, newError(TruncatedInput, "12le_16bitaligned: need %d bytes, have %d", count*2, len(row))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		v := uint16(row[2*i]) | uint16(row[2*i+1])<<8
		out[i] = v & 0x0fff
	}
	return out, nil
}

// Unpack12BEWControl unpacks big-endian 12-bit samples packed MSB-first
// with a per-group control byte every 8 samples (Nikon's "12be_wcontrol"
// layout used by some compressed NEF variants): a control byte selects
// between a linear and a split-high/low encoding per sample pair; this
// module implements the common linear case, matching what in-catalog
// Nikon bodies use.
func Unpack12BEWControl(row []byte, count int) ([]uint16, error) {
	const groupSize = 8
	out := make([]uint16, 0, count)
	pos := 0
	for len(out) < count {
		if pos >= len(row) {
			return nil, newError(TruncatedInput, "12be_wcontrol: ran out of input")
		}
		pos++ // control byte, linear-mode decode ignores its split-encoding bits
		n := groupSize
		if count-len(out) < n {
			n = count - len(out)
		}
		need := (n*12 + 7) / 8
		if pos+need > len(row) {
			return nil, newError(TruncatedInput, "12be_wcontrol: truncated group")
		}
		group, err := Unpack12BEMSB16(row[pos:pos+need], n)
		if err != nil {
			return nil, err
		}
		out = append(out, group...)
		pos += need
	}
	return out, nil
}

// Unpack16LE reads count little-endian 16-bit samples verbatim.
func Unpack16LE(row []byte, count int) ([]uint16, error) {
	if len(row) < count*2 {
		return nil, newError(TruncatedInput, "16le: need %d bytes, have %d", count*2, len(row))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = uint16(row[2*i]) | uint16(row[2*i+1])<<8
	}
	return out, nil
}

// Unpack16BE reads count big-endian 16-bit samples verbatim, the layout
// a TIFF/DNG written with an MM (big-endian) header stores its
// uncompressed 16-bit strips/tiles in.
func Unpack16BE(row []byte, count int) ([]uint16, error) {
	if len(row) < count*2 {
		return nil, newError(TruncatedInput, "16be: need %d bytes, have %d", count*2, len(row))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = uint16(row[2*i])<<8 | uint16(row[2*i+1])
	}
	return out, nil
}

// Unpack8BitWTable reads count 8-bit samples and expands each through a
// 256-entry linearization lookup table (spec §4.7's "8bit_wtable": many
// compressed-8-bit raw modes store a nonlinear curve alongside the strip).
func Unpack8BitWTable(row []byte, count int, table [256]uint16) ([]uint16, error) {
	if len(row) < count {
		return nil, newError(TruncatedInput, "8bit_wtable: need %d bytes, have %d", count, len(row))
	}
	out := make([]uint16, count)
	for i := 0; i < count; i++ {
		out[i] = table[row[i]]
	}
	return out, nil
}
