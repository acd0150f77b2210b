package packed

import (
	"bytes"
	"io"
	"math"

	"github.com/klauspost/compress/zlib"
)

// FloatWidth is the IEEE-754 storage width of a DNG floating-point sample
// before expansion to float32, per TIFF-EP's Binary16/24/32 SampleFormat=3
// encoding.
type FloatWidth int

const (
	Float16 FloatWidth = 2
	Float24 FloatWidth = 3
	Float32 FloatWidth = 4
)

// DecodeDeflateFloat inflates a DNG floating-point strip/tile, per spec
// §4.7: zlib-inflate, then a byte-wise horizontal delta across the row
// (src[i] += src[i-factor]), then reinterpret the de-delta'd bytes as
// interleaved Binary16/24/32 and widen to float32. width/height describe
// the tile in samples; factor is the TIFF PREDICTOR's component count
// (samplesPerPixel), matching how the delta is applied per-plane-byte
// across the whole row rather than per sample.
func DecodeDeflateFloat(compressed []byte, width, height int, fw FloatWidth, factor int) ([]float32, error) {
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, newError(InflateFailed, "zlib: %v", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, newError(InflateFailed, "zlib read: %v", err)
	}

	bytesPerSample := int(fw)
	rowBytes := width * bytesPerSample
	if len(raw) < rowBytes*height {
		return nil, newError(TruncatedInput, "deflate+float: need %d bytes, have %d", rowBytes*height, len(raw))
	}
	if factor <= 0 {
		factor = 1
	}

	// Undo the byte-wise horizontal differencing: FP predictor de-interleaves
	// the sample bytes into bytesPerSample separate byte planes per TIFF-EP,
	// then delta-codes each plane across the row; undo plane-by-plane.
	for y := 0; y < height; y++ {
		row := raw[y*rowBytes : (y+1)*rowBytes]
		for i := factor; i < rowBytes; i++ {
			row[i] += row[i-factor]
		}
	}

	out := make([]float32, width*height)
	for y := 0; y < height; y++ {
		row := raw[y*rowBytes : (y+1)*rowBytes]
		for x := 0; x < width; x++ {
			out[y*width+x] = decodeFloatSample(row, x, width, bytesPerSample)
		}
	}
	return out, nil
}

// decodeFloatSample reconstructs sample x from its plane-separated bytes:
// byte plane 0 holds the MSB of every sample, laid out before plane 1, etc,
// per the TIFF-EP floating-point predictor's "transposed" byte layout.
func decodeFloatSample(row []byte, x, width, bytesPerSample int) float32 {
	var b [4]byte
	for p := 0; p < bytesPerSample; p++ {
		b[p] = row[p*width+x]
	}
	switch bytesPerSample {
	case 4:
		bits := uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
		return math.Float32frombits(bits)
	case 2:
		bits := uint16(b[0])<<8 | uint16(b[1])
		return float16ToFloat32(bits)
	case 3:
		// Binary24: 1 sign, 7 exponent, 16 mantissa - widen to float32 by
		// bit-shifting into the equivalent IEEE-754 single layout.
		sign := uint32(b[0]&0x80) << 24
		exp := uint32(b[0] & 0x7f)
		mant := uint32(b[1])<<8 | uint32(b[2])
		bias := int32(exp) - 63 + 127
		if exp == 0 {
			bias = 0
		}
		bits := sign | uint32(bias)<<23 | mant<<7
		return math.Float32frombits(bits)
	default:
		return 0
	}
}

func float16ToFloat32(h uint16) float32 {
	sign := uint32(h&0x8000) << 16
	exp := uint32(h&0x7c00) >> 10
	mant := uint32(h & 0x03ff)
	if exp == 0 {
		if mant == 0 {
			return math.Float32frombits(sign)
		}
		for mant&0x400 == 0 {
			mant <<= 1
			exp--
		}
		exp++
		mant &= 0x3ff
	} else if exp == 0x1f {
		return math.Float32frombits(sign | 0x7f800000 | mant<<13)
	}
	exp = exp - 15 + 127
	return math.Float32frombits(sign | exp<<23 | mant<<13)
}
