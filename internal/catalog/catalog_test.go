package catalog

import (
	"testing"

	qt "github.com/frankban/quicktest"
)

func TestLookupBaseOnly(t *testing.T) {
	c := qt.New(t)
	cat := New()
	cat.Register(Camera{Make: "Acme", Model: "X1", Decoder: "tiff-raw-packed", WhiteLevel: 1000})

	cam, ok := cat.Lookup("Acme", "X1", "")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cam.Decoder, qt.Equals, "tiff-raw-packed")
	c.Assert(cam.WhiteLevel, qt.Equals, uint32(1000))
}

func TestLookupModeOverrideJoins(t *testing.T) {
	c := qt.New(t)
	cat := New()
	cat.Register(Camera{Make: "Acme", Model: "X1", Decoder: "tiff-raw-packed", WhiteLevel: 1000, CFAPattern: [4]uint8{0, 1, 1, 2}})
	cat.RegisterMode(Camera{Make: "Acme", Model: "X1", Mode: "hires", WhiteLevel: 4000})

	cam, ok := cat.Lookup("Acme", "X1", "hires")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cam.WhiteLevel, qt.Equals, uint32(4000), qt.Commentf("override should win"))
	c.Assert(cam.Decoder, qt.Equals, "tiff-raw-packed", qt.Commentf("unset override fields inherit from base"))
	c.Assert(cam.CFAPattern, qt.Equals, [4]uint8{0, 1, 1, 2})
}

func TestLookupUnknownModeFallsBackToBase(t *testing.T) {
	c := qt.New(t)
	cat := New()
	cat.Register(Camera{Make: "Acme", Model: "X1", Decoder: "tiff-raw-packed"})

	cam, ok := cat.Lookup("Acme", "X1", "nonexistent-mode")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cam.Decoder, qt.Equals, "tiff-raw-packed")
}

func TestLookupUnknownCamera(t *testing.T) {
	c := qt.New(t)
	cat := New()
	_, ok := cat.Lookup("Nobody", "Nothing", "")
	c.Assert(ok, qt.IsFalse)
}

func TestGlobalCatalogHasBuiltins(t *testing.T) {
	c := qt.New(t)
	cam, ok := Global().Lookup("Canon", "Canon EOS R5", "")
	c.Assert(ok, qt.IsTrue)
	c.Assert(cam.Decoder, qt.Equals, "canon-crx")

	craw, ok := Global().Lookup("Canon", "Canon EOS R5", "craw")
	c.Assert(ok, qt.IsTrue)
	c.Assert(craw.Decoder, qt.Equals, "canon-crx")
	c.Assert(craw.CalibrationIlluminant1, qt.Equals, cam.CalibrationIlluminant1)
}
