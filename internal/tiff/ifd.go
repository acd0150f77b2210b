package tiff

import "encoding/binary"

// Well-known pointer tags that cause the reader to recurse into a child IFD.
// This is not an exhaustive EXIF tag table (that lives in internal/metadata);
// it is only the set of tags whose value is itself an IFD offset.
const (
	TagSubIFDs              = 0x014a
	TagExifIFDPointer        = 0x8769
	TagGPSInfoIFDPointer     = 0x8825
	TagInteropIFDPointer     = 0xa005
)

// IFD is an ordered tag list plus a base offset (the byte position internal
// pointers are resolved relative to) and its child IFDs, per spec §3. IFDs
// form a DAG rooted at the file header; the Reader that builds them rejects
// cycles and caps recursion depth at 10.
type IFD struct {
	Kind      string // "IFD0", "IFD1", "SubIFD", "ExifIFD", "GPSIFD", "InteropIFD", "MakerNote"
	Base      int64
	Offset    int64
	ByteOrder binary.ByteOrder
	Tags      map[uint16]Tag
	Children  []*IFD

	// NextOffset is the offset of the following top-level IFD (IFD0 -> IFD1
	// thumbnail chain), 0 if none.
	NextOffset int64
}

// Tag looks up a tag by id in this IFD only (not children).
func (ifd *IFD) Tag(id uint16) (Tag, bool) {
	t, ok := ifd.Tags[id]
	return t, ok
}

// FirstU32 returns the first value of tag id coerced to uint32, or 0 if the
// tag is absent. It mirrors the teacher's firstVal convenience accessor
// (mdouchement-tiff's idf.firstVal) for the common "give me the scalar or a
// zero default" access pattern.
func (ifd *IFD) FirstU32(id uint16) uint32 {
	t, ok := ifd.Tags[id]
	if !ok {
		return 0
	}
	v, err := t.AsU32(0)
	if err != nil {
		return 0
	}
	return v
}

// ChildrenOfKind returns every child IFD of the given Kind (SubIFDs may be
// plural; ExifIFD/GPSIFD/InteropIFD are singular but returned the same way
// for a uniform caller-side loop).
func (ifd *IFD) ChildrenOfKind(kind string) []*IFD {
	var out []*IFD
	for _, c := range ifd.Children {
		if c.Kind == kind {
			out = append(out, c)
		}
	}
	return out
}

// Walk visits every IFD in the tree rooted at ifd, depth first, calling fn
// with the accumulated path of Kinds. This is the supplemented
// devtools/inspector-style introspection helper from SPEC_FULL, exported
// for tooling such as the out-of-scope CLI's `analyze` command.
func (ifd *IFD) Walk(fn func(path []string, ifd *IFD)) {
	ifd.walk(nil, fn)
}

func (ifd *IFD) walk(path []string, fn func(path []string, ifd *IFD)) {
	path = append(path, ifd.Kind)
	fn(path, ifd)
	for _, c := range ifd.Children {
		c.walk(path, fn)
	}
}
