package registry

import (
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rawforge/rawdng/internal/catalog"
	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/rawimage"
	"github.com/rawforge/rawdng/internal/source"
)

func TestSniffRecognizesTIFFBMFFAndNaked(t *testing.T) {
	c := qt.New(t)

	tiffFmt, err := Sniff(source.FromBytes([]byte{'I', 'I', 42, 0, 0, 0, 0, 0}))
	c.Assert(err, qt.IsNil)
	c.Assert(tiffFmt, qt.Equals, FormatTIFF)

	bmff := append([]byte{0, 0, 0, 24}, []byte("ftypcrx ")...)
	bmffFmt, err := Sniff(source.FromBytes(bmff))
	c.Assert(err, qt.IsNil)
	c.Assert(bmffFmt, qt.Equals, FormatBMFF)

	nakedFmt, err := Sniff(source.FromBytes([]byte{1, 2, 3, 4}))
	c.Assert(err, qt.IsNil)
	c.Assert(nakedFmt, qt.Equals, FormatNaked)
}

type stubDecoder struct{ layout Layout }

func (d *stubDecoder) RawImage(rawimage.Params) (*rawimage.RawImage, error)    { return &rawimage.RawImage{}, nil }
func (d *stubDecoder) RawMetadata(rawimage.Params) (rawimage.Metadata, error) { return rawimage.Metadata{}, nil }
func (d *stubDecoder) Layout() (Layout, error)                                { return d.layout, nil }

// TestDispatchWiresIdentityCatalogAndConstructor covers the identity ->
// catalog lookup -> named constructor leg of spec §4.4's pipeline, reading
// the same package-level tables Dispatch reads (it does not call Sniff or
// Dispatch), with a throwaway format/decoder pair registered only for this
// test.
func TestDispatchWiresIdentityCatalogAndConstructor(t *testing.T) {
	c := qt.New(t)

	const testFormat Format = 1000 // outside the real Format enum's range
	RegisterIdentity(testFormat, func(source.Source) (string, string, string, error) {
		return "Acme", "X100", "", nil
	})
	Register("test-stub-decoder", func(src source.Source, cam catalog.Camera) (Decoder, error) {
		return &stubDecoder{layout: Layout{Width: 100, Height: 50, Compression: "test"}}, nil
	})

	cat := catalog.New()
	cat.Register(catalog.Camera{Make: "Acme", Model: "X100", Decoder: "test-stub-decoder"})

	// Swap Sniff's result by constructing a Source whose header matches
	// nothing real, then directly driving Dispatch's post-sniff logic via
	// the registered testFormat identity reader: since Sniff itself only
	// recognizes TIFF/BMFF/naked, exercise the identity->catalog->ctor leg
	// directly through the package-level tables Dispatch also reads.
	idReader, ok := identityReaders[testFormat]
	c.Assert(ok, qt.IsTrue)
	make_, model, mode, err := idReader(source.FromBytes(nil))
	c.Assert(err, qt.IsNil)
	cam, ok := cat.Lookup(make_, model, mode)
	c.Assert(ok, qt.IsTrue)
	ctor, ok := constructors[cam.Decoder]
	c.Assert(ok, qt.IsTrue)
	dec, err := ctor(source.FromBytes(nil), cam)
	c.Assert(err, qt.IsNil)

	ld, ok := dec.(LayoutDescriber)
	c.Assert(ok, qt.IsTrue)
	layout, err := ld.Layout()
	c.Assert(err, qt.IsNil)
	c.Assert(layout.Width, qt.Equals, 100)
	c.Assert(layout.Compression, qt.Equals, "test")
}

func TestDispatchUnsupportedCamera(t *testing.T) {
	c := qt.New(t)
	cat := catalog.New()
	_, ok := cat.Lookup("Nobody", "Nothing", "")
	c.Assert(ok, qt.IsFalse)

	RegisterIdentity(FormatNaked, func(source.Source) (string, string, string, error) {
		return "Nobody", "Nothing", "", nil
	})
	_, _, err := Dispatch(source.FromBytes([]byte{1, 2, 3, 4}), cat)
	var rerr *rawerr.Error
	c.Assert(err, qt.ErrorAs, &rerr)
	c.Assert(rerr.Kind, qt.Equals, rawerr.Unsupported)
}
