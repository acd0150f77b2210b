package bmff

import (
	"encoding/binary"
	"testing"

	qt "github.com/frankban/quicktest"

	"github.com/rawforge/rawdng/internal/source"
)

// box wraps body in a classic 32-bit-size box header of the given
// four-character type, for assembling synthetic BMFF fixtures byte by byte.
func box(typ string, body []byte) []byte {
	out := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(body)))
	copy(out[4:8], typ)
	copy(out[8:], body)
	return out
}

func uuidBox(uuid [16]byte, body []byte) []byte {
	full := append(append([]byte{}, uuid[:]...), body...)
	return box("uuid", full)
}

func fullBoxHeader(version uint8, flags uint32) []byte {
	b := make([]byte, 4)
	v := uint32(version)<<24 | (flags & 0x00ffffff)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func be16(v uint16) []byte { b := make([]byte, 2); binary.BigEndian.PutUint16(b, v); return b }
func be32(v uint32) []byte { b := make([]byte, 4); binary.BigEndian.PutUint32(b, v); return b }
func be64(v uint64) []byte { b := make([]byte, 8); binary.BigEndian.PutUint64(b, v); return b }

func buildCmp1() []byte {
	body := make([]byte, 0, 36)
	body = append(body, be16(0)...)      // unknown1
	body = append(body, be16(56)...)     // header_size
	body = append(body, be16(1)...)      // version
	body = append(body, be16(0)...)      // version_sub
	body = append(body, be32(6000)...)   // f_width
	body = append(body, be32(4000)...)   // f_height
	body = append(body, be32(512)...)    // tile_width
	body = append(body, be32(512)...)    // tile_height
	body = append(body, 14)              // n_bits
	body = append(body, (1<<4)|2)        // n_planes=1, cfa_layout=2
	body = append(body, (0<<4)|0)        // enc_type=0, image_levels=0
	body = append(body, 0x80)            // has_tile_cols=1, has_tile_rows=0
	body = append(body, be32(123456)...) // mdat_hdr_size
	body = append(body, be32(0)...)      // unknown2
	return box("CMP1", body)
}

func buildCdi1() []byte {
	iad1Body := fullBoxHeader(0, 0)
	iad1Body = append(iad1Body, be16(6000)...) // img_width
	iad1Body = append(iad1Body, be16(4000)...) // img_height
	iad1Body = append(iad1Body, be16(0)...)     // unknown1
	iad1Body = append(iad1Body, be16(2)...)     // image_type = Big
	iad1Body = append(iad1Body, be16(0)...)     // unknown2
	iad1Body = append(iad1Body, be16(0)...)     // unknown3
	// Big variant: 16 u16 fields after the fixed header.
	for i := 0; i < 16; i++ {
		iad1Body = append(iad1Body, be16(uint16(10+i))...)
	}
	iad1 := box("IAD1", iad1Body)

	cdi1Body := append(fullBoxHeader(0, 0), iad1...)
	return box("CDI1", cdi1Body)
}

func buildCraw() []byte {
	fixed := make([]byte, crawSampleEntryFixedLen)
	binary.BigEndian.PutUint16(fixed[24:26], 6000) // width
	binary.BigEndian.PutUint16(fixed[26:28], 4000) // height
	binary.BigEndian.PutUint16(fixed[74:76], 14)   // depth

	body := append(fixed, buildCmp1()...)
	body = append(body, buildCdi1()...)
	return box("CRAW", body)
}

func buildCtmd() []byte {
	body := make([]byte, 0)
	body = append(body, make([]byte, 6)...) // reserved
	body = append(body, be16(1)...)         // data_ref_index
	body = append(body, be32(1)...)         // rec_count
	body = append(body, 0, 1, 0, 9)         // unknown1, unknown2, rec_type
	body = append(body, be32(200)...)       // rec_size
	return box("CTMD", body)
}

func buildStsd() []byte {
	header := append(be32(0), be32(1)...) // version/flags=0, entry_count=1
	body := append(header, buildCraw()...)
	body = append(body, buildCtmd()...)
	return box("stsd", body)
}

func buildStsc() []byte {
	body := append(fullBoxHeader(0, 0), be32(1)...) // entry_count=1
	body = append(body, be32(1)...)                 // first_chunk=1
	body = append(body, be32(1)...)                 // samples_per_chunk=1
	body = append(body, be32(1)...)                 // sample_description_index=1
	return box("stsc", body)
}

func buildStsz(size uint32) []byte {
	body := append(fullBoxHeader(0, 0), be32(size)...)
	body = append(body, be32(1)...) // sample_count=1
	return box("stsz", body)
}

func buildCo64(offset uint64) []byte {
	body := append(fullBoxHeader(0, 0), be32(1)...)
	body = append(body, be64(offset)...)
	return box("co64", body)
}

func buildStbl(mdatOffset uint64, sampleSize uint32) []byte {
	body := buildStsd()
	body = append(body, buildStsc()...)
	body = append(body, buildStsz(sampleSize)...)
	body = append(body, buildCo64(mdatOffset)...)
	return box("stbl", body)
}

func buildMinf(mdatOffset uint64, sampleSize uint32) []byte {
	return box("minf", buildStbl(mdatOffset, sampleSize))
}

func buildMdia(mdatOffset uint64, sampleSize uint32) []byte {
	mdhd := append(fullBoxHeader(0, 0), be32(1000)...)
	mdhd = append(mdhd, be32(0)...)
	mdhdBox := box("mdhd", mdhd)
	return box("mdia", append(mdhdBox, buildMinf(mdatOffset, sampleSize)...))
}

func buildTkhd() []byte {
	body := append(fullBoxHeader(0, 0), be32(1)...)
	return box("tkhd", body)
}

func buildTrak(mdatOffset uint64, sampleSize uint32) []byte {
	body := append(buildTkhd(), buildMdia(mdatOffset, sampleSize)...)
	return box("trak", body)
}

func buildMvhd() []byte {
	body := append(fullBoxHeader(0, 0), be32(1000)...)
	body = append(body, be32(0)...)
	return box("mvhd", body)
}

func buildCr3Desc() []byte {
	cncvBody := make([]byte, 30)
	copy(cncvBody, "CanonCRX/1.0")
	cncv := box("CNCV", cncvBody)

	ccdt := box("CCDT", append(be64(0), append(be32(0), be32(0)...)...))
	cctpBody := append(fullBoxHeader(0, 0), append(be32(0), be32(1)...)...)
	cctpBody = append(cctpBody, ccdt...)
	cctp := box("CCTP", cctpBody)

	ctboBody := append(be32(1), append(be32(0), append(be64(0), be64(100)...)...)...)
	ctbo := box("CTBO", ctboBody)

	cmt1 := box("CMT1", []byte("fake-exif-ifd-1"))
	cmt2 := box("CMT2", []byte("fake-exif-ifd-2"))
	cmt3 := box("CMT3", []byte("fake-exif-ifd-3"))
	cmt4 := box("CMT4", []byte("fake-exif-ifd-4"))

	thmbBody := append(fullBoxHeader(0, 0), append(be16(160), be16(120)...)...)
	thmbBody = append(thmbBody, append(be32(4), be16(0)...)...)
	thmbBody = append(thmbBody, []byte{0xff, 0xd8, 0xff, 0xd9}...) // fake JPEG SOI/EOI
	thmb := box("THMB", thmbBody)

	body := append([]byte{}, cncv...)
	body = append(body, cctp...)
	body = append(body, ctbo...)
	body = append(body, cmt1...)
	body = append(body, cmt2...)
	body = append(body, cmt3...)
	body = append(body, cmt4...)
	body = append(body, thmb...)
	return uuidBox(cr3DescUUID, body)
}

func buildCR3File(mdatBody []byte) []byte {
	ftypBody := append([]byte("CR3 "), be32(0)...)
	ftypBody = append(ftypBody, []byte("crx ")...)
	ftyp := box("ftyp", ftypBody)

	// mdat must be placed where co64 points; compute after the fact by
	// laying out ftyp+moov first, then mdat right after.
	moovBody := append(buildMvhd(), buildTrak(0, uint32(len(mdatBody)))...)
	moovBody = append(moovBody, buildCr3Desc()...)
	moovBoxBytes := box("moov", moovBody)

	mdatOffset := uint64(len(ftyp) + len(moovBoxBytes) + 8)

	// Patch the co64 entry (last 8 bytes of the stsc/stsz/co64 tail we
	// built with offset 0) with the real mdat offset now that we know it.
	moovBoxBytes = patchCo64Offset(moovBoxBytes, mdatOffset)

	mdat := box("mdat", mdatBody)

	out := append([]byte{}, ftyp...)
	out = append(out, moovBoxBytes...)
	out = append(out, mdat...)
	return out
}

// patchCo64Offset finds the co64 box's single 8-byte entry (currently 0)
// and overwrites it, since the real mdat offset is only known once ftyp
// and moov have both been serialized.
func patchCo64Offset(moov []byte, offset uint64) []byte {
	marker := []byte("co64")
	idx := indexOf(moov, marker)
	if idx < 0 {
		return moov
	}
	// co64 box: size(4) type(4) version/flags(4) entry_count(4) offset(8);
	// idx points at the type field, 4 bytes into the box.
	entryOff := (idx - 4) + 4 + 4 + 4 + 4
	out := append([]byte{}, moov...)
	binary.BigEndian.PutUint64(out[entryOff:entryOff+8], offset)
	return out
}

func indexOf(haystack, needle []byte) int {
	for i := 0; i+len(needle) <= len(haystack); i++ {
		match := true
		for j := range needle {
			if haystack[i+j] != needle[j] {
				match = false
				break
			}
		}
		if match {
			return i
		}
	}
	return -1
}

func TestParseCR3Fixture(t *testing.T) {
	c := qt.New(t)
	mdatBody := []byte("RAWTILEDATA-PLACEHOLDER")
	data := buildCR3File(mdatBody)

	f, err := Parse(source.FromBytes(data))
	c.Assert(err, qt.IsNil)

	c.Assert(f.Ftyp.MajorBrand.String(), qt.Equals, "CR3 ")
	c.Assert(f.Moov, qt.Not(qt.IsNil))
	c.Assert(len(f.Moov.Traks), qt.Equals, 1)

	stbl := f.Moov.Traks[0].Mdia.Minf.Stbl
	c.Assert(stbl.Stsd.Craw, qt.Not(qt.IsNil))
	c.Assert(stbl.Stsd.Craw.Width, qt.Equals, uint16(6000))
	c.Assert(stbl.Stsd.Craw.Height, qt.Equals, uint16(4000))
	c.Assert(stbl.Stsd.Craw.Cmp1, qt.Not(qt.IsNil))
	c.Assert(stbl.Stsd.Craw.Cmp1.NBits, qt.Equals, uint8(14))
	c.Assert(stbl.Stsd.Craw.Cmp1.TileWidth, qt.Equals, uint32(512))
	c.Assert(stbl.Stsd.Craw.Cdi1, qt.Not(qt.IsNil))
	c.Assert(stbl.Stsd.Craw.Cdi1.Iad1.ImgWidth, qt.Equals, uint16(6000))

	c.Assert(stbl.Stsd.Ctmd, qt.Not(qt.IsNil))
	c.Assert(len(stbl.Stsd.Ctmd.Records), qt.Equals, 1)
	c.Assert(stbl.Stsd.Ctmd.Records[0].RecSize, qt.Equals, uint32(200))

	off, size, err := stbl.SampleOffsetSize(0)
	c.Assert(err, qt.IsNil)
	c.Assert(size, qt.Equals, int64(len(mdatBody)))
	got, err := source.FromBytes(data).Subview(int(off), int(size))
	c.Assert(err, qt.IsNil)
	c.Assert(string(got), qt.Equals, string(mdatBody))

	c.Assert(f.Moov.CR3, qt.Not(qt.IsNil))
	c.Assert(f.Moov.CR3.Cncv.Compressor[:12], qt.Equals, "CanonCRX/1.0")
	c.Assert(len(f.Moov.CR3.Cctp.Ccdts), qt.Equals, 1)
	c.Assert(len(f.Moov.CR3.Ctbo.Records), qt.Equals, 1)
	c.Assert(f.Moov.CR3.Ctbo.Records[0].Size, qt.Equals, uint64(100))
	c.Assert(f.Moov.CR3.Cmt[0], qt.Not(qt.IsNil))
	c.Assert(string(f.Moov.CR3.Cmt[0]), qt.Equals, "fake-exif-ifd-1")
	c.Assert(f.Moov.CR3.Thmb.Width, qt.Equals, uint16(160))
	c.Assert(len(f.Moov.CR3.Thmb.JPEGData), qt.Equals, 4)

	var paths []string
	f.Walk(func(p string) { paths = append(paths, p) })
	c.Assert(len(paths) > 0, qt.IsTrue)
}
