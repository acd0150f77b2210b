package packed

import (
	"bytes"
	"image"
	"image/jpeg"
)

// DecodeLossyJPEG decompresses a baseline-JPEG-compressed raw tile (spec
// §4.7's "Lossy JPEG" decompressor, used by some Nikon/Canon compressed-RAW
// modes for their least-significant tiles) and upscales the 8-bit samples
// to u16 by a left shift of 8, matching how those formats' nominal bit
// depth is always greater than JPEG's native 8.
func DecodeLossyJPEG(data []byte) (width, height int, pixels []uint16, err error) {
	img, err := jpeg.Decode(bytes.NewReader(data))
	if err != nil {
		return 0, 0, nil, newError(TruncatedInput, "baseline JPEG: %v", err)
	}
	b := img.Bounds()
	width, height = b.Dx(), b.Dy()
	pixels = make([]uint16, width*height)

	switch im := img.(type) {
	case *image.Gray:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				pixels[y*width+x] = uint16(im.GrayAt(b.Min.X+x, b.Min.Y+y).Y) << 8
			}
		}
	case *image.YCbCr:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				yy := im.YOffset(b.Min.X+x, b.Min.Y+y)
				pixels[y*width+x] = uint16(im.Y[yy]) << 8
			}
		}
	default:
		for y := 0; y < height; y++ {
			for x := 0; x < width; x++ {
				r, _, _, _ := img.At(b.Min.X+x, b.Min.Y+y).RGBA()
				pixels[y*width+x] = uint16(r)
			}
		}
	}
	return width, height, pixels, nil
}
