package packed

import (
	"bytes"
	"io"

	"golang.org/x/image/tiff/lzw"
)

// DecodeLZWPredictor inflates an old-style TIFF LZW-compressed strip/tile
// (MSB-first, 8-bit literals, per TIFF 6.0 §13) and undoes the horizontal
// differencing predictor some DNG/NEF strips combine it with, producing
// raw sample bytes the caller reinterprets per its own bit depth. This
// mirrors mdouchement-tiff's compress.go decoder selection, generalized
// from image.Image-producing decode to returning the raw predicted byte
// stream this module's tile assembly needs.
func DecodeLZWPredictor(compressed []byte, rowBytes, rows int, predictor bool, samplesPerPixel int) ([]byte, error) {
	zr := lzw.NewReader(bytes.NewReader(compressed), lzw.MSB, 8)
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, newError(InflateFailed, "lzw: %v", err)
	}
	if len(raw) < rowBytes*rows {
		return nil, newError(TruncatedInput, "lzw: need %d bytes, have %d", rowBytes*rows, len(raw))
	}
	if predictor {
		factor := samplesPerPixel
		if factor <= 0 {
			factor = 1
		}
		for y := 0; y < rows; y++ {
			row := raw[y*rowBytes : (y+1)*rowBytes]
			for i := factor; i < rowBytes; i++ {
				row[i] += row[i-factor]
			}
		}
	}
	return raw, nil
}
