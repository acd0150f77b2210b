package rawdng

import (
	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/registry"
	"github.com/rawforge/rawdng/internal/source"
)

// Description is the cheap, decode-free summary SPEC_FULL's analyze
// introspection surface reports (original_source's
// bin/dnglab/dnglab-lib/src/analyze.rs): enough to tell a caller what
// Convert would do without decompressing any sensor data.
type Description struct {
	Format      registry.Format
	Camera      catalog.Camera
	Width       int
	Height      int
	ChunkWidth  int
	ChunkHeight int
	Tiled       bool
	Compression string
}

// Describe sniffs src, resolves its camera identity, and reports its
// layout without decoding any tile or strip. Layout fields are left
// zero-valued when the matched decoder does not implement
// registry.LayoutDescriber.
func Describe(src source.Source) (Description, error) {
	format, err := registry.Sniff(src)
	if err != nil {
		return Description{}, err
	}
	dec, cam, err := registry.Dispatch(src, catalog.Global())
	if err != nil {
		return Description{}, err
	}
	out := Description{Format: format, Camera: cam}
	if ld, ok := dec.(registry.LayoutDescriber); ok {
		layout, err := ld.Layout()
		if err != nil {
			return Description{}, err
		}
		out.Width, out.Height = layout.Width, layout.Height
		out.ChunkWidth, out.ChunkHeight = layout.ChunkWidth, layout.ChunkHeight
		out.Tiled = layout.Tiled
		out.Compression = layout.Compression
	}
	return out, nil
}
