package tiff

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/rawforge/rawdng/internal/source"
)

const maxIFDDepth = 10

const (
	leHeader = 0x4949 // "II"
	beHeader = 0x4d4d // "MM"

	classicMagic = 42
	bigMagic     = 43
)

// Reader parses a little- or big-endian classic TIFF or BigTIFF container
// rooted in a Source, per spec §4.2.
type Reader struct {
	src        source.Source
	byteOrder  binary.ByteOrder
	bigTIFF    bool
	offsetSize int // 4 (classic) or 8 (BigTIFF)
	entrySize  int // 12 (classic) or 20 (BigTIFF)
}

// NewReader parses the 8- (classic) or 16-byte (BigTIFF) file header and
// returns a Reader positioned to read the first IFD, plus that IFD's offset.
func NewReader(src source.Source) (*Reader, int64, error) {
	hdr, err := src.Subview(0, 8)
	if err != nil {
		return nil, 0, newFormatError(TruncatedHeader, "short header: %v", err)
	}

	var byteOrder binary.ByteOrder
	switch binary.BigEndian.Uint16(hdr[0:2]) {
	case leHeader:
		byteOrder = binary.LittleEndian
	case beHeader:
		byteOrder = binary.BigEndian
	default:
		return nil, 0, newFormatError(BadMagic, "bad byte-order marker %x", hdr[0:2])
	}

	version := byteOrder.Uint16(hdr[2:4])
	r := &Reader{src: src, byteOrder: byteOrder}

	switch version {
	case classicMagic:
		r.offsetSize, r.entrySize = 4, 12
		firstIFD := int64(byteOrder.Uint32(hdr[4:8]))
		return r, firstIFD, nil
	case bigMagic:
		r.bigTIFF = true
		r.offsetSize, r.entrySize = 8, 20
		full, err := src.Subview(0, 16)
		if err != nil {
			return nil, 0, newFormatError(TruncatedHeader, "short bigtiff header: %v", err)
		}
		offsetByteSize := byteOrder.Uint16(full[4:6])
		if offsetByteSize != 8 {
			return nil, 0, newFormatError(BadMagic, "unsupported bigtiff offset size %d", offsetByteSize)
		}
		firstIFD := int64(byteOrder.Uint64(full[8:16]))
		return r, firstIFD, nil
	default:
		return nil, 0, newFormatError(BadMagic, "bad version number %d", version)
	}
}

// ByteOrder returns the container's byte order.
func (r *Reader) ByteOrder() binary.ByteOrder { return r.byteOrder }

// ReadIFD reads the IFD at offset, with base==0 (offsets are absolute from
// the start of the Source, the common case for a plain TIFF/DNG/CR2 file),
// together with the child IFDs its pointer tags name. Its NextOffset is
// recorded but not followed; ReadChain follows it. Cycle detection and the
// depth-10 cap from spec §4.2 apply across the IFD and every
// recursively-followed SubIFD/ExifIFD/GPSIFD/InteropIFD.
func (r *Reader) ReadIFD(kind string, offset int64) (*IFD, error) {
	return r.ReadIFDAt(kind, offset, 0)
}

// ReadIFDAt reads the IFD at offset as ReadIFD does, resolving internal
// pointers relative to base (used for maker-note IFDs whose internal offsets
// are relative to the maker-note tag's own value, not the file start).
func (r *Reader) ReadIFDAt(kind string, offset, base int64) (*IFD, error) {
	visited := make(map[int64]bool)
	return r.readIFDChain(kind, offset, base, 0, visited)
}

func (r *Reader) readIFDChain(kind string, offset, base int64, depth int, visited map[int64]bool) (ifd *IFD, err error) {
	defer func() {
		if p := recover(); p != nil {
			if e, ok := p.(error); ok {
				err = e
				return
			}
			panic(p)
		}
	}()

	first := r.readOneIFD(kind, offset, base, depth, visited)

	// IFD0 -> IFD1 (thumbnail) chaining: only classic top-level IFDs do
	// this; SubIFDs/ExifIFD do not chain.
	return first, nil
}

// readOneIFD reads one IFD (not its NextOffset chain target) and recurses
// into any pointer tags it contains. It panics *FormatError values on
// malformed input, consistent with this module's streaming-decoder
// convention; readIFDChain recovers them.
func (r *Reader) readOneIFD(kind string, offset, base int64, depth int, visited map[int64]bool) *IFD {
	if depth > maxIFDDepth {
		panic(newFormatError(RecursionLimit, "IFD recursion exceeded depth %d", maxIFDDepth))
	}
	abs := base + offset
	if visited[abs] {
		panic(newFormatError(CycleDetected, "IFD at offset %d already visited", abs))
	}
	visited[abs] = true

	countBytes, err := r.src.Subview(int(abs), countWidth(r.bigTIFF))
	if err != nil {
		panic(newFormatError(OffsetOutOfRange, "IFD entry count at %d: %v", abs, err))
	}
	var numEntries int64
	if r.bigTIFF {
		numEntries = int64(r.byteOrder.Uint64(countBytes))
	} else {
		numEntries = int64(r.byteOrder.Uint16(countBytes))
	}
	if numEntries < 0 || numEntries > 100000 {
		panic(newFormatError(BadTagCount, "implausible entry count %d", numEntries))
	}

	entriesOff := int(abs) + countWidth(r.bigTIFF)
	entries, err := r.src.Subview(entriesOff, int(numEntries)*r.entrySize)
	if err != nil {
		panic(newFormatError(OffsetOutOfRange, "IFD entries at %d: %v", entriesOff, err))
	}

	ifd := &IFD{
		Kind:      kind,
		Base:      base,
		Offset:    offset,
		ByteOrder: r.byteOrder,
		Tags:      make(map[uint16]Tag, numEntries),
	}

	for i := int64(0); i < numEntries; i++ {
		e := entries[i*int64(r.entrySize) : (i+1)*int64(r.entrySize)]
		tag := r.decodeEntry(e, base)
		ifd.Tags[tag.ID] = tag
	}

	nextOff := entriesOff + int(numEntries)*r.entrySize
	nextBytes, err := r.src.Subview(nextOff, countWidth(r.bigTIFF))
	if err == nil {
		if r.bigTIFF {
			ifd.NextOffset = int64(r.byteOrder.Uint64(nextBytes))
		} else {
			ifd.NextOffset = int64(r.byteOrder.Uint32(nextBytes))
		}
	}

	r.followPointers(ifd, base, depth, visited)
	return ifd
}

func countWidth(bigTIFF bool) int {
	if bigTIFF {
		return 8
	}
	return 2
}

// decodeEntry decodes one 12- (classic) or 20-byte (BigTIFF) IFD entry.
func (r *Reader) decodeEntry(e []byte, base int64) Tag {
	id := r.byteOrder.Uint16(e[0:2])
	typ := Type(r.byteOrder.Uint16(e[2:4]))

	var count uint32
	var valueField []byte
	if r.bigTIFF {
		count = uint32(r.byteOrder.Uint64(e[4:12]))
		valueField = e[12:20]
	} else {
		count = r.byteOrder.Uint32(e[4:8])
		valueField = e[8:12]
	}

	sz, ok := typeSize[typ]
	if !ok {
		// Unknown type: keep the raw inline bytes so callers can still get
		// at Tag.Bytes(), but Count is forced to the number of bytes
		// available inline (nothing sensible to dereference).
		return Tag{ID: id, Type: typ, Count: count, raw: append([]byte(nil), valueField...), ByteOrder: r.byteOrder}
	}

	dataLen := int64(sz) * int64(count)
	var raw []byte
	if dataLen <= int64(len(valueField)) {
		raw = append([]byte(nil), valueField[:dataLen]...)
	} else {
		var off int64
		if r.bigTIFF {
			off = int64(r.byteOrder.Uint64(valueField))
		} else {
			off = int64(r.byteOrder.Uint32(valueField))
		}
		b, err := r.src.Subview(int(base+off), int(dataLen))
		if err != nil {
			panic(newFormatError(OffsetOutOfRange, "tag %d value at %d (len %d): %v", id, base+off, dataLen, err))
		}
		raw = append([]byte(nil), b...)
	}

	return Tag{ID: id, Type: typ, Count: count, raw: raw, ByteOrder: r.byteOrder}
}

// followPointers recurses into SubIFDs/ExifIFD/GPSIFD/InteropIFD tags,
// per spec §4.2 ("Honor SubIFDs and ExifIFDPointer by recursively parsing,
// bounded by depth 10"). Each child's internal pointers are resolved
// relative to the same base as the parent, matching plain TIFF/DNG/CR2
// semantics; maker notes (which may use a different base) are read
// explicitly by internal/metadata via ReadIFDAt, not through this path.
func (r *Reader) followPointers(ifd *IFD, base int64, depth int, visited map[int64]bool) {
	if t, ok := ifd.Tags[TagSubIFDs]; ok {
		offs, err := t.AsU32Slice()
		if err == nil {
			for _, off := range offs {
				child := r.readOneIFD("SubIFD", int64(off), base, depth+1, visited)
				ifd.Children = append(ifd.Children, child)
			}
		}
	}
	for tagID, kind := range map[uint16]string{
		TagExifIFDPointer:    "ExifIFD",
		TagGPSInfoIFDPointer: "GPSIFD",
		TagInteropIFDPointer: "InteropIFD",
	} {
		if t, ok := ifd.Tags[tagID]; ok {
			off, err := t.AsU32(0)
			if err == nil {
				child := r.readOneIFD(kind, int64(off), base, depth+1, visited)
				ifd.Children = append(ifd.Children, child)
			}
		}
	}
}

// ReadChain reads a full top-level IFD chain (IFD0, IFD1, ...), following
// NextOffset links. kinds supplies the name given to the n'th IFD in the
// chain (typically {"IFD0", "IFD1"}); chains longer than len(kinds) reuse
// the last name.
func (r *Reader) ReadChain(offset int64, kinds []string) ([]*IFD, error) {
	var chain []*IFD
	off := offset
	for i := 0; off != 0; i++ {
		kind := "IFD"
		if len(kinds) > 0 {
			if i < len(kinds) {
				kind = kinds[i]
			} else {
				kind = kinds[len(kinds)-1]
			}
		}
		ifd, err := r.ReadIFD(kind, off)
		if err != nil {
			return chain, errors.Wrapf(err, "reading %s at offset %d", kind, off)
		}
		chain = append(chain, ifd)
		off = ifd.NextOffset
		if len(chain) > maxIFDDepth {
			return chain, newFormatError(RecursionLimit, "top-level IFD chain exceeded depth %d", maxIFDDepth)
		}
	}
	return chain, nil
}
