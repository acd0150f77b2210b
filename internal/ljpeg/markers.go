package ljpeg

// Marker values, per ISO/IEC 10918-1's marker segment layout (the
// SOI/SOFn/DHT/SOS/EOI structural reference this package follows is the
// same marker walk described by other_examples/jrm-1535's jpeg.go, which
// documents but does not implement lossless mode). Only the markers
// lossless JPEG-92 (T.81 Annex H) actually uses are named.
const (
	markerSOI  = 0xFFD8
	markerEOI  = 0xFFD9
	markerSOF3 = 0xFFC3 // lossless, Huffman coding
	markerDHT  = 0xFFC4
	markerSOS  = 0xFFDA
	markerDRI  = 0xFFDD
	markerRST0 = 0xFFD0
	markerRST7 = 0xFFD7
)

func isRST(marker uint16) bool {
	return marker >= markerRST0 && marker <= markerRST7
}
