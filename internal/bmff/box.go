// Package bmff reads the ISO Base Media File Format (ISO/IEC 14496-12)
// container used by Canon CR3/CRM files, including the Canon-specific
// uuid extension boxes that carry color-science data, the CRX tile table,
// and the embedded preview/thumbnail images.
package bmff

import (
	"encoding/binary"
	"fmt"

	"github.com/rawforge/rawdng/internal/source"
)

// FourCC is a four-character box type code, e.g. "ftyp" or "moov".
type FourCC [4]byte

func (f FourCC) String() string { return string(f[:]) }

func fourCC(b []byte) FourCC {
	var f FourCC
	copy(f[:], b)
	return f
}

// BoxHeader is the common prefix of every box: a big-endian size, a
// four-character type, and (size==1) an 8-byte extended size, and
// (type=="uuid") a 16-byte extension UUID. Grounded on
// rawler/src/formats/bmff/mod.rs's BoxHeader (same three fields, same
// "uuid boxes carry a 16-byte UUID before their payload" extension rule
// used throughout ext_cr3).
type BoxHeader struct {
	Type      FourCC
	UUID      *[16]byte
	Offset    int64 // absolute offset of the size field
	HeaderLen int64 // bytes of header before the body starts
	Size      int64 // total box size including header, as declared
}

// BodyOffset is the absolute offset of the first byte after the header.
func (h BoxHeader) BodyOffset() int64 { return h.Offset + h.HeaderLen }

// End is the absolute offset one past the end of the box.
func (h BoxHeader) End() int64 { return h.Offset + h.Size }

// readBoxHeader parses the box header at off and returns it. It does not
// validate that the box's declared size stays within src's bounds;
// callers do that when they take a body subview.
func readBoxHeader(src source.Source, off int64) (BoxHeader, error) {
	fixed, err := src.Subview(int(off), 8)
	if err != nil {
		return BoxHeader{}, fmt.Errorf("bmff: box header at %d: %w", off, err)
	}
	size32 := binary.BigEndian.Uint32(fixed[0:4])
	typ := fourCC(fixed[4:8])

	h := BoxHeader{Type: typ, Offset: off, HeaderLen: 8, Size: int64(size32)}

	if size32 == 1 {
		ext, err := src.Subview(int(off+8), 8)
		if err != nil {
			return BoxHeader{}, fmt.Errorf("bmff: extended size at %d: %w", off+8, err)
		}
		h.Size = int64(binary.BigEndian.Uint64(ext))
		h.HeaderLen = 16
	} else if size32 == 0 {
		// size==0 means "extends to EOF"; resolved by the caller, which
		// knows the container length. Leave Size at 0 as a sentinel.
		h.Size = 0
	}

	if typ == fourCC([]byte("uuid")) {
		id, err := src.Subview(int(off+h.HeaderLen), 16)
		if err != nil {
			return BoxHeader{}, fmt.Errorf("bmff: uuid at %d: %w", off+h.HeaderLen, err)
		}
		var u [16]byte
		copy(u[:], id)
		h.UUID = &u
		h.HeaderLen += 16
	}

	return h, nil
}

// body returns the box's payload bytes (excluding the header), resolving a
// size==0 "extends to end of container" box against containerEnd.
func (h BoxHeader) body(src source.Source, containerEnd int64) ([]byte, error) {
	end := h.End()
	if h.Size == 0 {
		end = containerEnd
	}
	n := end - h.BodyOffset()
	if n < 0 {
		return nil, fmt.Errorf("bmff: box %s at %d has negative body length", h.Type, h.Offset)
	}
	return src.Subview(int(h.BodyOffset()), int(n))
}

// readBoxHeaderExt reads the 1-byte version + 3-byte flags "full box"
// extension shared by most BMFF boxes (FullBox in the spec). Grounded on
// rawler/src/formats/bmff/mod.rs's read_box_header_ext helper, which every
// "full box" reader in the original calls before its own fields.
func readBoxHeaderExt(body []byte) (version uint8, flags uint32, rest []byte) {
	v := binary.BigEndian.Uint32(body[0:4])
	return uint8(v >> 24), v & 0x00ffffff, body[4:]
}

// children walks the sequence of sub-boxes inside body (whose absolute
// start is bodyOffset) and invokes fn for each header plus its own body
// slice. It stops at the first error, including one from fn.
func children(src source.Source, bodyOffset int64, body []byte, fn func(h BoxHeader, body []byte) error) error {
	end := bodyOffset + int64(len(body))
	off := bodyOffset
	for off < end {
		h, err := readBoxHeader(src, off)
		if err != nil {
			return err
		}
		childBody, err := h.body(src, end)
		if err != nil {
			return err
		}
		if err := fn(h, childBody); err != nil {
			return err
		}
		if h.Size == 0 {
			break
		}
		off = h.End()
	}
	return nil
}
