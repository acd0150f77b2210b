// Package catalog holds the process-wide, immutable table of camera
// descriptors that drives format quirks, color science defaults, and CFA
// geometry during decoding. Entries are registered once at process
// startup (mirroring the teacher's pattern of building static lookup
// tables behind a sync.Once) and never mutated afterward, so reads never
// need a lock.
package catalog

import "sync"

// Key identifies a camera descriptor by (make, model, mode). mode is
// empty for a camera's base descriptor and non-empty for a
// capture-mode-specific override (e.g. Canon's "sraw1", "craw", or a
// multi-shot "mshot" pixel-shift mode), per original_source's
// BTreeMap<(make, model, mode), Camera> catalog (bin/dnglab/src/cameras.rs).
type Key struct {
	Make, Model, Mode string
}

// Camera is one camera's decode-relevant descriptor: the color science,
// CFA geometry, and format quirks a decoder needs that cannot be derived
// from the file itself. Mode-specific entries only need to set the
// fields that differ from the base descriptor; Lookup joins the two.
type Camera struct {
	Make, Model, Mode string
	Remark            string

	// Decoder names the registry entry (internal/registry) responsible
	// for this camera's RAW format, e.g. "canon-crx", "canon-cr2",
	// "tiff-raw".
	Decoder string

	ColorMatrix1           [9]float64
	ColorMatrix2           [9]float64
	CalibrationIlluminant1 uint16
	CalibrationIlluminant2 uint16

	BlackLevel []uint32 // per-CFA-component black level, empty means "read from file"
	WhiteLevel uint32   // 0 means "read from file"

	CFAPattern [4]uint8 // RGGB-order component indices, per DNG CFAPattern tag semantics
	ActiveArea [4]uint32 // top, left, bottom, right
	CropArea   [4]uint32 // top, left, bottom, right, within ActiveArea

	// RawTrackHint selects among multiple RAW-capable tracks in a
	// container (e.g. a CR3 with both a "craw" compressed RAW and a
	// "craw" low-res preview track); -1 means "let the decoder pick the
	// first RAW-flavored track it finds."
	RawTrackHint int
}

func (c Camera) isZero() bool { return c.Make == "" && c.Model == "" }

// merge overlays non-zero-valued fields of o onto base, implementing the
// base+mode-override join described by original_source's per-mode camera
// TOML files (a mode file only states the fields that differ from its
// camera's base file; everything else is inherited).
func merge(base, o Camera) Camera {
	out := base
	if o.Remark != "" {
		out.Remark = o.Remark
	}
	if o.Decoder != "" {
		out.Decoder = o.Decoder
	}
	if o.ColorMatrix1 != ([9]float64{}) {
		out.ColorMatrix1 = o.ColorMatrix1
	}
	if o.ColorMatrix2 != ([9]float64{}) {
		out.ColorMatrix2 = o.ColorMatrix2
	}
	if o.CalibrationIlluminant1 != 0 {
		out.CalibrationIlluminant1 = o.CalibrationIlluminant1
	}
	if o.CalibrationIlluminant2 != 0 {
		out.CalibrationIlluminant2 = o.CalibrationIlluminant2
	}
	if len(o.BlackLevel) > 0 {
		out.BlackLevel = o.BlackLevel
	}
	if o.WhiteLevel != 0 {
		out.WhiteLevel = o.WhiteLevel
	}
	if o.CFAPattern != ([4]uint8{}) {
		out.CFAPattern = o.CFAPattern
	}
	if o.ActiveArea != ([4]uint32{}) {
		out.ActiveArea = o.ActiveArea
	}
	if o.CropArea != ([4]uint32{}) {
		out.CropArea = o.CropArea
	}
	if o.RawTrackHint != 0 {
		out.RawTrackHint = o.RawTrackHint
	}
	out.Mode = o.Mode
	return out
}

// Catalog is an immutable (make, model) -> base descriptor plus
// (make, model, mode) -> override descriptor table.
type Catalog struct {
	base      map[[2]string]Camera
	overrides map[Key]Camera
}

// New builds an empty catalog; callers assemble it with Register/
// RegisterMode and then stop mutating it (the Catalog that Global builds
// is never touched again after it is built).
func New() *Catalog {
	return &Catalog{base: make(map[[2]string]Camera), overrides: make(map[Key]Camera)}
}

// Register adds (or replaces) a camera's base descriptor.
func (c *Catalog) Register(cam Camera) {
	c.base[[2]string{cam.Make, cam.Model}] = cam
}

// RegisterMode adds a mode-specific override, joined onto the base
// descriptor at Lookup time.
func (c *Catalog) RegisterMode(cam Camera) {
	c.overrides[Key{cam.Make, cam.Model, cam.Mode}] = cam
}

// Lookup resolves (make, model, mode) to a fully joined Camera. mode=""
// returns the base descriptor unmodified. An unknown (make, model) pair
// is reported via ok=false; callers surface this as the Unsupported
// error kind rather than guessing defaults, per spec §7.
func (c *Catalog) Lookup(make_, model, mode string) (Camera, bool) {
	base, ok := c.base[[2]string{make_, model}]
	if !ok {
		return Camera{}, false
	}
	if mode == "" {
		return base, true
	}
	if o, ok := c.overrides[Key{make_, model, mode}]; ok {
		return merge(base, o), true
	}
	// Unknown mode for a known camera still resolves to the base
	// descriptor: most cameras only need mode overrides for a handful of
	// unusual capture modes, and a decoder is free to reject a mode it
	// can't actually handle once it has the base descriptor in hand.
	return base, true
}

// Cameras returns every registered (make, model, mode) key, mode=="" for
// base-only entries, for introspection/listing tooling.
func (c *Catalog) Cameras() []Key {
	keys := make([]Key, 0, len(c.base)+len(c.overrides))
	for k := range c.base {
		keys = append(keys, Key{k[0], k[1], ""})
	}
	for k := range c.overrides {
		keys = append(keys, k)
	}
	return keys
}

var (
	globalOnce sync.Once
	global     *Catalog
)

// Global returns the process-wide catalog, built on first use from the
// built-in descriptor table in descriptors.go. Mirrors the teacher's
// package-level lazily-initialized state (bep-imagemeta's sync.Once-style
// pooled readers) generalized to a one-time registry build instead of a
// reusable buffer pool.
func Global() *Catalog {
	globalOnce.Do(func() {
		global = New()
		registerBuiltins(global)
	})
	return global
}
