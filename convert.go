package rawdng

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"

	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/dngwriter"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/registry"
	"github.com/rawforge/rawdng/internal/source"
	"github.com/rawforge/rawdng/internal/workerpool"
)

// Convert decodes src through the registered format decoder for its
// sniffed container and camera identity, then assembles a DNG byte
// stream per spec §4.8. pool is optional (nil allocates a
// GOMAXPROCS-sized pool for the duration of this call); callers
// converting many files concurrently should share one pool across
// calls, per spec §5's "shared bounded pool" model.
func Convert(src source.Source, params ConvertParams, pool *workerpool.Pool) ([]byte, error) {
	params = params.Defaulted()

	dec, _, err := registry.Dispatch(src, catalog.Global())
	if err != nil {
		return nil, err
	}

	img, err := dec.RawImage(params)
	if err != nil {
		return nil, err
	}
	img.Metadata, err = dec.RawMetadata(params)
	if err != nil {
		return nil, err
	}
	if img.Orientation == 0 {
		img.Orientation = img.Metadata.Orientation
	}

	var preview *dngwriter.Preview
	if params.Preview {
		preview, err = buildPreview(dec)
		if err != nil {
			return nil, err
		}
	}

	var thumb *dngwriter.Thumbnail
	if params.Thumbnail {
		thumb, err = buildThumbnail(dec)
		if err != nil {
			return nil, err
		}
	}

	return dngwriter.Write(img, params, preview, thumb, pool)
}

// buildPreview renders a decoder's optional processed preview (spec
// §4.4's preview()) to a baseline JPEG, the contract the DNG writer's
// preview SubIFD expects.
func buildPreview(dec registry.Decoder) (*dngwriter.Preview, error) {
	p, ok := dec.(registry.Previewer)
	if !ok {
		return nil, nil
	}
	img, err := p.Preview()
	if err != nil {
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	data, err := encodeRGB8JPEG(img)
	if err != nil {
		return nil, err
	}
	return &dngwriter.Preview{Width: img.Width, Height: img.Height, JPEGData: data}, nil
}

// buildThumbnail reads a decoder's embedded thumbnail (spec §4.4's
// thumbnail()), carried into IFD0 as uncompressed RGB8 rather than
// re-encoded, matching how small embedded thumbnails are typically
// already a handful of kilobytes.
func buildThumbnail(dec registry.Decoder) (*dngwriter.Thumbnail, error) {
	t, ok := dec.(registry.Thumbnailer)
	if !ok {
		return nil, nil
	}
	img, err := t.Thumbnail()
	if err != nil {
		if re, ok := err.(*rawerr.Error); ok && re.Kind == rawerr.Unsupported {
			return nil, nil
		}
		return nil, err
	}
	if img == nil {
		return nil, nil
	}
	return &dngwriter.Thumbnail{Width: img.Width, Height: img.Height, RGB8: img.Pixels}, nil
}

func encodeRGB8JPEG(img *registry.RGB8Image) ([]byte, error) {
	out := image.NewRGBA(image.Rect(0, 0, img.Width, img.Height))
	for y := 0; y < img.Height; y++ {
		for x := 0; x < img.Width; x++ {
			i := (y*img.Width + x) * 3
			out.Set(x, y, color.RGBA{R: img.Pixels[i], G: img.Pixels[i+1], B: img.Pixels[i+2], A: 0xff})
		}
	}
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, out, &jpeg.Options{Quality: 90}); err != nil {
		return nil, rawerr.Wrap(rawerr.DecoderFailed, err, "rawdng: encoding preview JPEG")
	}
	return buf.Bytes(), nil
}
