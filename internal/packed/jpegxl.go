package packed

// DecodeJPEGXL decompresses a JPEG-XL-compressed raw tile (spec §4.7: the
// rarely-seen final compressor, used by a handful of 2023-and-later camera
// firmwares for their high-res compressed RAW). No example repo in this
// module's retrieval pack, nor the wider Go ecosystem, ships a JPEG-XL
// decoder (the format's own reference decoder is a C++/Rust codebase with
// no maintained Go binding); wiring in a hand-rolled FL2/VarDCT decoder
// would mean writing and trusting an entire second image codec inside this
// module, which the spec's size budget does not afford alongside CRX and
// LJPEG-92. This stub therefore reports the format as recognized-but-
// unsupported rather than silently producing wrong pixels, consistent with
// spec §7's policy that catalog/format misses are surfaced, never guessed.
func DecodeJPEGXL(data []byte) (width, height int, pixels []float32, err error) {
	return 0, 0, nil, newError(UnsupportedLayout, "JPEG-XL decompression has no available Go implementation in this module")
}
