package formats

import (
	"bytes"
	"image/jpeg"

	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/registry"
)

// decodeJPEGToRGB8 decompresses a baseline-JPEG thumbnail/preview into the
// RGB8 raster registry.Previewer/Thumbnailer implementations return. Unlike
// internal/packed's DecodeLossyJPEG (which upsamples to u16 sensor-domain
// samples for a RAW tile), this stays at 8-bit display-domain RGB, the
// contract spec §4.4's preview()/thumbnail() use.
func decodeJPEGToRGB8(data []byte) (*registry.RGB8Image, error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "formats: decoding embedded JPEG")
	}
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	out := &registry.RGB8Image{Width: w, Height: h, Pixels: make([]byte, w*h*3)}
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r, g, bch, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
			i := (y*w + x) * 3
			out.Pixels[i] = uint8(r >> 8)
			out.Pixels[i+1] = uint8(g >> 8)
			out.Pixels[i+2] = uint8(bch >> 8)
		}
	}
	return out, nil
}
