package bmff

import (
	"encoding/binary"
	"fmt"

	"github.com/rawforge/rawdng/internal/source"
)

var (
	typFtyp = fourCC([]byte("ftyp"))
	typMoov = fourCC([]byte("moov"))
	typMdat = fourCC([]byte("mdat"))
	typMvhd = fourCC([]byte("mvhd"))
	typTrak = fourCC([]byte("trak"))
	typTkhd = fourCC([]byte("tkhd"))
	typMdia = fourCC([]byte("mdia"))
	typMdhd = fourCC([]byte("mdhd"))
	typHdlr = fourCC([]byte("hdlr"))
	typMinf = fourCC([]byte("minf"))
	typStbl = fourCC([]byte("stbl"))
	typStsd = fourCC([]byte("stsd"))
	typStsc = fourCC([]byte("stsc"))
	typStsz = fourCC([]byte("stsz"))
	typStts = fourCC([]byte("stts"))
	typCo64 = fourCC([]byte("co64"))
	typCraw = fourCC([]byte("CRAW"))
	typCtmd = fourCC([]byte("CTMD"))
	typCmp1 = fourCC([]byte("CMP1"))
	typCdi1 = fourCC([]byte("CDI1"))
	typIad1 = fourCC([]byte("IAD1"))
	typCncv = fourCC([]byte("CNCV"))
	typCctp = fourCC([]byte("CCTP"))
	typCcdt = fourCC([]byte("CCDT"))
	typCtbo = fourCC([]byte("CTBO"))
	typCmt1 = fourCC([]byte("CMT1"))
	typCmt2 = fourCC([]byte("CMT2"))
	typCmt3 = fourCC([]byte("CMT3"))
	typCmt4 = fourCC([]byte("CMT4"))
	typThmb = fourCC([]byte("THMB"))

	cr3DescUUID = [16]byte{0x85, 0xc0, 0xb6, 0x87, 0x82, 0x0f, 0x11, 0xe0, 0x81, 0x11, 0xf4, 0xce, 0x46, 0x2b, 0x6a, 0x48}
)

// File is the parsed top level of a CR3/CRM container: its brand box, the
// single moov metadata tree, and the location of the mdat payload that moov
// points into via stsc/stsz/co64 sample tables.
type File struct {
	Ftyp       FtypBox
	Moov       *MoovBox
	MdatOffset int64
	MdatSize   int64
}

type FtypBox struct {
	MajorBrand       FourCC
	MinorVersion     uint32
	CompatibleBrands []FourCC
}

type MoovBox struct {
	Mvhd  MvhdBox
	Traks []TrakBox
	CR3   *Cr3DescBox // uuid 85c0b687-820f-11e0-8111-f4ce462b6a48
}

type MvhdBox struct {
	Timescale uint32
	Duration  uint64
}

type TrakBox struct {
	Tkhd TkhdBox
	Mdia MdiaBox
}

type TkhdBox struct {
	TrackID uint32
}

type MdiaBox struct {
	Mdhd MdhdBox
	Minf MinfBox
}

type MdhdBox struct {
	Timescale uint32
	Duration  uint64
}

type MinfBox struct {
	Stbl StblBox
}

// StblBox carries the sample tables needed to locate a track's compressed
// data inside mdat: stsd describes the sample format (our CRAW/CTMD box),
// stsc/stsz/co64 describe where each sample's bytes live. Grounded on
// rawler/src/formats/bmff/stbl.rs.
type StblBox struct {
	Stsd StsdBox
	Stsc []StscEntry
	Stsz StszBox
	Co64 []uint64 // chunk offsets, absolute in the container
}

type StscEntry struct {
	FirstChunk            uint32
	SamplesPerChunk        uint32
	SampleDescriptionIndex uint32
}

type StszBox struct {
	SampleSize  uint32 // nonzero means every sample has this fixed size
	SampleCount uint32
	SampleSizes []uint32 // only populated when SampleSize == 0
}

// SampleOffsetSize returns the absolute offset and byte size of the n'th
// sample (0-based) in this track, derived from stsc+co64+stsz the way a
// BMFF reader must: stsc maps sample index to chunk, co64 gives the
// chunk's start offset, and samples within a chunk are laid out back to
// back in stsz order.
func (s StblBox) SampleOffsetSize(n int) (offset int64, size int64, err error) {
	if n < 0 || uint32(n) >= s.Stsz.SampleCount {
		return 0, 0, fmt.Errorf("bmff: sample index %d out of range (count %d)", n, s.Stsz.SampleCount)
	}
	if s.Stsz.SampleSize != 0 {
		size = int64(s.Stsz.SampleSize)
	} else {
		size = int64(s.Stsz.SampleSizes[n])
	}

	chunkIdx, firstSampleInChunk := s.chunkForSample(uint32(n))
	if chunkIdx < 0 || chunkIdx >= len(s.Co64) {
		return 0, 0, fmt.Errorf("bmff: sample %d maps to out-of-range chunk %d", n, chunkIdx)
	}
	off := s.Co64[chunkIdx]
	for i := firstSampleInChunk; i < uint32(n); i++ {
		if s.Stsz.SampleSize != 0 {
			off += uint64(s.Stsz.SampleSize)
		} else {
			off += uint64(s.Stsz.SampleSizes[i])
		}
	}
	return int64(off), size, nil
}

func (s StblBox) chunkForSample(n uint32) (chunkIdx int, firstSampleInChunk uint32) {
	sampleID := uint32(0)
	for i, entry := range s.Stsc {
		var chunksInRun uint32
		if i+1 < len(s.Stsc) {
			chunksInRun = s.Stsc[i+1].FirstChunk - entry.FirstChunk
		} else {
			chunksInRun = ^uint32(0) // last run extends to however many chunks co64 has
		}
		for c := uint32(0); c < chunksInRun; c++ {
			chunkIndex := int(entry.FirstChunk-1) + int(c)
			if chunkIndex >= len(s.Co64) {
				return -1, 0
			}
			if n < sampleID+entry.SamplesPerChunk {
				return chunkIndex, sampleID
			}
			sampleID += entry.SamplesPerChunk
		}
	}
	return -1, 0
}

// StsdBox is the Canon CR3 sample description: a CRAW visual sample entry
// (the RAW/preview pixel format) and an optional CTMD metadata sample
// entry (per-frame Canon metadata records).
type StsdBox struct {
	Craw *CrawBox
	Ctmd *CtmdBox
}

// CrawBox is Canon's visual sample entry for CR3 RAW/preview tracks: the
// classic ISO sample-entry header (reserved/data_reference_index/width/
// height/etc, elided here since nothing downstream needs it) followed by
// the CMP1 compression descriptor and, for the main RAW track, a CDI1 crop
// descriptor.
type CrawBox struct {
	Width, Height uint16
	Depth         uint16
	Cmp1          *Cmp1Box
	Cdi1          *Cdi1Box
}

// Cmp1Box is Canon's CRX compression header, embedded in the CRAW sample
// entry. Field layout grounded exactly on
// rawler/src/formats/bmff/ext_cr3/cmp1.rs.
type Cmp1Box struct {
	HeaderSize    uint16
	Version       uint16
	VersionSub    uint16
	FWidth        uint32
	FHeight       uint32
	TileWidth     uint32
	TileHeight    uint32
	NBits         uint8
	NPlanes       uint8
	CFALayout     uint8
	EncType       uint8
	ImageLevels   uint8
	HasTileCols   bool
	HasTileRows   bool
	MdatHdrSize   uint32
}

func parseCmp1(body []byte) (*Cmp1Box, error) {
	if len(body) < 32 {
		return nil, fmt.Errorf("bmff: CMP1 box too short (%d bytes)", len(body))
	}
	nBits := body[24]
	nPlanesByte := body[25]
	encByte := body[26]
	tileFlagsByte := body[27]
	return &Cmp1Box{
		HeaderSize:  binary.BigEndian.Uint16(body[2:4]),
		Version:     binary.BigEndian.Uint16(body[4:6]),
		VersionSub:  binary.BigEndian.Uint16(body[6:8]),
		FWidth:      binary.BigEndian.Uint32(body[8:12]),
		FHeight:     binary.BigEndian.Uint32(body[12:16]),
		TileWidth:   binary.BigEndian.Uint32(body[16:20]),
		TileHeight:  binary.BigEndian.Uint32(body[20:24]),
		NBits:       nBits,
		NPlanes:     nPlanesByte >> 4,
		CFALayout:   nPlanesByte & 0xf,
		EncType:     encByte >> 4,
		ImageLevels: encByte & 0xf,
		HasTileCols: tileFlagsByte&0x80 != 0,
		HasTileRows: tileFlagsByte&0x01 != 0,
		MdatHdrSize: binary.BigEndian.Uint32(body[28:32]),
	}, nil
}

// Cdi1Box carries the CR3 crop/active-area rectangles for a RAW track.
// Grounded on rawler/src/formats/bmff/ext_cr3/cdi1.rs + iad1.rs.
type Cdi1Box struct {
	Iad1 Iad1Box
}

type Iad1Box struct {
	ImgWidth, ImgHeight uint16
	ImageType           uint16
	Big                 *Iad1Big // populated when ImageType == 2
}

type Iad1Big struct {
	CropLeft, CropTop, CropRight, CropBottom                 uint16
	ActiveAreaLeft, ActiveAreaTop, ActiveAreaRight, ActiveAreaBottom uint16
}

func parseIad1(body []byte) (Iad1Box, error) {
	if len(body) < 16 {
		return Iad1Box{}, fmt.Errorf("bmff: IAD1 box too short")
	}
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) < 12 {
		return Iad1Box{}, fmt.Errorf("bmff: IAD1 body too short")
	}
	b := Iad1Box{
		ImgWidth:  binary.BigEndian.Uint16(rest[0:2]),
		ImgHeight: binary.BigEndian.Uint16(rest[2:4]),
		ImageType: binary.BigEndian.Uint16(rest[6:8]),
	}
	// tail layout (32 bytes): crop[4] u16, lob[4] u16, tob[4] u16,
	// active_area[4] u16, per rawler's Iad1Big field order.
	tail := rest[12:]
	if b.ImageType == 2 && len(tail) >= 32 {
		b.Big = &Iad1Big{
			CropLeft:         binary.BigEndian.Uint16(tail[0:2]),
			CropTop:          binary.BigEndian.Uint16(tail[2:4]),
			CropRight:        binary.BigEndian.Uint16(tail[4:6]),
			CropBottom:       binary.BigEndian.Uint16(tail[6:8]),
			ActiveAreaLeft:   binary.BigEndian.Uint16(tail[24:26]),
			ActiveAreaTop:    binary.BigEndian.Uint16(tail[26:28]),
			ActiveAreaRight:  binary.BigEndian.Uint16(tail[28:30]),
			ActiveAreaBottom: binary.BigEndian.Uint16(tail[30:32]),
		}
	}
	return b, nil
}

// CtmdBox is Canon's per-frame metadata sample entry: a table of records,
// each tagging a chunk of embedded metadata (EXIF, GPS, timestamps) by
// type. Grounded on rawler/src/formats/bmff/ext_cr3/ctmd.rs.
type CtmdBox struct {
	Records []CtmdRecordHeader
}

type CtmdRecordHeader struct {
	RecType uint16
	RecSize uint32
}

// Cr3DescBox is the Canon uuid box living directly under moov (uuid
// 85c0b687-820f-11e0-8111-f4ce462b6a48 per
// rawler/src/formats/bmff/ext_cr3/cr3desc.rs): compressor identity, the
// CRX tile/record tables, four copies of the EXIF/maker-note IFD blob, and
// an embedded thumbnail.
type Cr3DescBox struct {
	Cncv CncvBox
	Cctp CctpBox
	Ctbo CtboBox
	Cmt  [4][]byte // CMT1..CMT4 raw TIFF/EXIF IFD blobs
	Thmb ThmbBox
}

type CncvBox struct {
	Compressor string
}

func parseCncv(body []byte) (CncvBox, error) {
	if len(body) < 30 {
		return CncvBox{}, fmt.Errorf("bmff: CNCV box too short")
	}
	return CncvBox{Compressor: string(body[:30])}, nil
}

// CctpBox lists the CCDT sub-boxes describing Canon's dual-pixel image
// layout. Grounded on rawler/src/formats/bmff/ext_cr3/cctp.rs.
type CctpBox struct {
	Ccdts []CcdtBox
}

type CcdtBox struct {
	ImageType uint64
	DualPixel uint32
	TrakIndex uint32
}

// CtboBox is the CRX tile offset table: a u32 entry count followed by that
// many records, each a u32 index and two big-endian u64 offset/size
// fields. This layout is externally documented by several independent CR3
// parsers.
type CtboBox struct {
	Records []CtboRecord
}

type CtboRecord struct {
	Index  uint32
	Offset uint64
	Size   uint64
}

func parseCtbo(body []byte) (CtboBox, error) {
	if len(body) < 4 {
		return CtboBox{}, nil
	}
	count := binary.BigEndian.Uint32(body[0:4])
	const recLen = 20
	need := 4 + int(count)*recLen
	if len(body) < need {
		return CtboBox{}, fmt.Errorf("bmff: CTBO declares %d records but body is only %d bytes", count, len(body))
	}
	recs := make([]CtboRecord, count)
	off := 4
	for i := range recs {
		recs[i] = CtboRecord{
			Index:  binary.BigEndian.Uint32(body[off : off+4]),
			Offset: binary.BigEndian.Uint64(body[off+4 : off+12]),
			Size:   binary.BigEndian.Uint64(body[off+12 : off+20]),
		}
		off += recLen
	}
	return CtboBox{Records: recs}, nil
}

// ThmbBox is the embedded JPEG thumbnail carried in the Canon descriptor
// box: version/flags, width, height, a declared JPEG byte count, and an
// image-quality/format word, followed by exactly that many JPEG bytes.
type ThmbBox struct {
	Width, Height uint16
	JPEGData      []byte
}

func parseThmb(body []byte) (ThmbBox, error) {
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) < 10 {
		return ThmbBox{}, fmt.Errorf("bmff: THMB body too short")
	}
	w := binary.BigEndian.Uint16(rest[0:2])
	h := binary.BigEndian.Uint16(rest[2:4])
	jpegSize := binary.BigEndian.Uint32(rest[4:8])
	data := rest[10:]
	if uint32(len(data)) < jpegSize {
		jpegSize = uint32(len(data))
	}
	return ThmbBox{Width: w, Height: h, JPEGData: append([]byte(nil), data[:jpegSize]...)}, nil
}

// Parse reads a whole CR3/CRM container: the top-level ftyp/moov/mdat
// boxes and everything moov needs resolved (trak/mdia/minf/stbl/stsd and
// the Canon uuid extension tree), per spec §4.3's container model.
func Parse(src source.Source) (*File, error) {
	f := &File{}
	end := int64(src.Len())

	err := children(src, 0, mustSubview(src, 0, int(end)), func(h BoxHeader, body []byte) error {
		switch h.Type {
		case typFtyp:
			ftyp, err := parseFtyp(h, body)
			if err != nil {
				return err
			}
			f.Ftyp = ftyp
		case typMoov:
			moov, err := parseMoov(src, h, body)
			if err != nil {
				return err
			}
			f.Moov = moov
		case typMdat:
			f.MdatOffset = h.BodyOffset()
			if h.Size == 0 {
				f.MdatSize = end - h.BodyOffset()
			} else {
				f.MdatSize = h.Size - h.HeaderLen
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	if f.Moov == nil {
		return nil, fmt.Errorf("bmff: no moov box found")
	}
	return f, nil
}

func mustSubview(src source.Source, off, length int) []byte {
	b, err := src.Subview(off, length)
	if err != nil {
		// Parse always calls this with the file's own full extent, so a
		// failure here means src.Len() lied; treat it as empty rather
		// than panicking the top-level Parse call.
		return nil
	}
	return b
}

func parseFtyp(h BoxHeader, body []byte) (FtypBox, error) {
	if len(body) < 8 {
		return FtypBox{}, fmt.Errorf("bmff: ftyp box too short")
	}
	major := fourCC(body[0:4])
	minor := binary.BigEndian.Uint32(body[4:8])
	var brands []FourCC
	for off := 8; off+4 <= len(body); off += 4 {
		brands = append(brands, fourCC(body[off:off+4]))
	}
	return FtypBox{MajorBrand: major, MinorVersion: minor, CompatibleBrands: brands}, nil
}

func parseMoov(src source.Source, h BoxHeader, body []byte) (*MoovBox, error) {
	m := &MoovBox{}
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		switch {
		case ch.Type == typMvhd:
			m.Mvhd = parseMvhd(cbody)
		case ch.Type == typTrak:
			trak, err := parseTrak(src, ch, cbody)
			if err != nil {
				return err
			}
			m.Traks = append(m.Traks, trak)
		case ch.UUID != nil && *ch.UUID == cr3DescUUID:
			desc, err := parseCr3Desc(src, ch, cbody)
			if err != nil {
				return err
			}
			m.CR3 = desc
		}
		return nil
	})
	return m, err
}

func parseMvhd(body []byte) MvhdBox {
	version, _, rest := readBoxHeaderExt(body)
	if version == 1 && len(rest) >= 28 {
		return MvhdBox{
			Timescale: binary.BigEndian.Uint32(rest[16:20]),
			Duration:  binary.BigEndian.Uint64(rest[20:28]),
		}
	}
	if len(rest) >= 16 {
		return MvhdBox{
			Timescale: binary.BigEndian.Uint32(rest[8:12]),
			Duration:  uint64(binary.BigEndian.Uint32(rest[12:16])),
		}
	}
	return MvhdBox{}
}

func parseTrak(src source.Source, h BoxHeader, body []byte) (TrakBox, error) {
	var t TrakBox
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typTkhd:
			t.Tkhd = parseTkhd(cbody)
		case typMdia:
			mdia, err := parseMdia(src, ch, cbody)
			if err != nil {
				return err
			}
			t.Mdia = mdia
		}
		return nil
	})
	return t, err
}

func parseTkhd(body []byte) TkhdBox {
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) >= 12 {
		return TkhdBox{TrackID: binary.BigEndian.Uint32(rest[8:12])}
	}
	return TkhdBox{}
}

func parseMdia(src source.Source, h BoxHeader, body []byte) (MdiaBox, error) {
	var m MdiaBox
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typMdhd:
			m.Mdhd = parseMdhd(cbody)
		case typMinf:
			minf, err := parseMinf(src, ch, cbody)
			if err != nil {
				return err
			}
			m.Minf = minf
		}
		return nil
	})
	return m, err
}

func parseMdhd(body []byte) MdhdBox {
	version, _, rest := readBoxHeaderExt(body)
	if version == 1 && len(rest) >= 28 {
		return MdhdBox{
			Timescale: binary.BigEndian.Uint32(rest[16:20]),
			Duration:  binary.BigEndian.Uint64(rest[20:28]),
		}
	}
	if len(rest) >= 16 {
		return MdhdBox{
			Timescale: binary.BigEndian.Uint32(rest[8:12]),
			Duration:  uint64(binary.BigEndian.Uint32(rest[12:16])),
		}
	}
	return MdhdBox{}
}

func parseMinf(src source.Source, h BoxHeader, body []byte) (MinfBox, error) {
	var m MinfBox
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		if ch.Type == typStbl {
			stbl, err := parseStbl(src, ch, cbody)
			if err != nil {
				return err
			}
			m.Stbl = stbl
		}
		return nil
	})
	return m, err
}

func parseStbl(src source.Source, h BoxHeader, body []byte) (StblBox, error) {
	var s StblBox
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typStsd:
			stsd, err := parseStsd(src, ch, cbody)
			if err != nil {
				return err
			}
			s.Stsd = stsd
		case typStsc:
			s.Stsc = parseStsc(cbody)
		case typStsz:
			s.Stsz = parseStsz(cbody)
		case typCo64:
			s.Co64 = parseCo64(cbody)
		}
		return nil
	})
	return s, err
}

func parseStsc(body []byte) []StscEntry {
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) < 4 {
		return nil
	}
	count := binary.BigEndian.Uint32(rest[0:4])
	entries := make([]StscEntry, 0, count)
	off := 4
	for i := uint32(0); i < count && off+12 <= len(rest); i++ {
		entries = append(entries, StscEntry{
			FirstChunk:             binary.BigEndian.Uint32(rest[off : off+4]),
			SamplesPerChunk:        binary.BigEndian.Uint32(rest[off+4 : off+8]),
			SampleDescriptionIndex: binary.BigEndian.Uint32(rest[off+8 : off+12]),
		})
		off += 12
	}
	return entries
}

func parseStsz(body []byte) StszBox {
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) < 8 {
		return StszBox{}
	}
	s := StszBox{
		SampleSize:  binary.BigEndian.Uint32(rest[0:4]),
		SampleCount: binary.BigEndian.Uint32(rest[4:8]),
	}
	if s.SampleSize == 0 {
		off := 8
		s.SampleSizes = make([]uint32, 0, s.SampleCount)
		for i := uint32(0); i < s.SampleCount && off+4 <= len(rest); i++ {
			s.SampleSizes = append(s.SampleSizes, binary.BigEndian.Uint32(rest[off:off+4]))
			off += 4
		}
	}
	return s
}

func parseCo64(body []byte) []uint64 {
	_, _, rest := readBoxHeaderExt(body)
	if len(rest) < 4 {
		return nil
	}
	count := binary.BigEndian.Uint32(rest[0:4])
	entries := make([]uint64, 0, count)
	off := 4
	for i := uint32(0); i < count && off+8 <= len(rest); i++ {
		entries = append(entries, binary.BigEndian.Uint64(rest[off:off+8]))
		off += 8
	}
	return entries
}

func parseStsd(src source.Source, h BoxHeader, body []byte) (StsdBox, error) {
	var s StsdBox
	if len(body) < 8 {
		return s, fmt.Errorf("bmff: stsd box too short")
	}
	// 4 bytes version/flags + 4 byte entry count precede the sample
	// entries; children start after them.
	childStart := h.BodyOffset() + 8
	childBody := body[8:]
	err := children(src, childStart, childBody, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typCraw:
			craw, err := parseCraw(src, ch, cbody)
			if err != nil {
				return err
			}
			s.Craw = &craw
		case typCtmd:
			ctmd := parseCtmd(cbody)
			s.Ctmd = &ctmd
		}
		return nil
	})
	return s, err
}

// crawSampleEntryFixedLen is the length of the classic ISO VisualSampleEntry
// fixed header (reserved, data_reference_index, predefined/reserved,
// width, height, resolution, frame_count, compressorname, depth,
// pre_defined) that precedes any nested boxes in a CRAW sample entry.
const crawSampleEntryFixedLen = 78

func parseCraw(src source.Source, h BoxHeader, body []byte) (CrawBox, error) {
	var c CrawBox
	if len(body) < crawSampleEntryFixedLen {
		return c, fmt.Errorf("bmff: CRAW sample entry too short")
	}
	c.Width = binary.BigEndian.Uint16(body[24:26])
	c.Height = binary.BigEndian.Uint16(body[26:28])
	c.Depth = binary.BigEndian.Uint16(body[74:76])

	rest := body[crawSampleEntryFixedLen:]
	err := children(src, h.BodyOffset()+crawSampleEntryFixedLen, rest, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typCmp1:
			cmp1, err := parseCmp1(cbody)
			if err != nil {
				return err
			}
			c.Cmp1 = cmp1
		case typCdi1:
			_, _, fullBody := readBoxHeaderExt(cbody)
			var iad1 Iad1Box
			err := children(src, ch.BodyOffset()+4, fullBody, func(gh BoxHeader, gbody []byte) error {
				if gh.Type == typIad1 {
					parsed, err := parseIad1(gbody)
					if err != nil {
						return err
					}
					iad1 = parsed
				}
				return nil
			})
			if err != nil {
				return err
			}
			c.Cdi1 = &Cdi1Box{Iad1: iad1}
		}
		return nil
	})
	return c, err
}

func parseCtmd(body []byte) CtmdBox {
	// Layout per ctmd.rs: reserved[6], data_ref_index(u16), rec_count(u32),
	// then rec_count records of {unknown1 u8, unknown2 u8, rec_type u16,
	// rec_size u32}.
	if len(body) < 12 {
		return CtmdBox{}
	}
	count := binary.BigEndian.Uint32(body[8:12])
	recs := make([]CtmdRecordHeader, 0, count)
	off := 12
	for i := uint32(0); i < count && off+8 <= len(body); i++ {
		recs = append(recs, CtmdRecordHeader{
			RecType: binary.BigEndian.Uint16(body[off+2 : off+4]),
			RecSize: binary.BigEndian.Uint32(body[off+4 : off+8]),
		})
		off += 8
	}
	return CtmdBox{Records: recs}
}

func parseCr3Desc(src source.Source, h BoxHeader, body []byte) (*Cr3DescBox, error) {
	d := &Cr3DescBox{}
	err := children(src, h.BodyOffset(), body, func(ch BoxHeader, cbody []byte) error {
		switch ch.Type {
		case typCncv:
			cncv, err := parseCncv(cbody)
			if err != nil {
				return err
			}
			d.Cncv = cncv
		case typCctp:
			cctp, err := parseCctp(src, ch, cbody)
			if err != nil {
				return err
			}
			d.Cctp = cctp
		case typCtbo:
			ctbo, err := parseCtbo(cbody)
			if err != nil {
				return err
			}
			d.Ctbo = ctbo
		case typCmt1:
			d.Cmt[0] = append([]byte(nil), cbody...)
		case typCmt2:
			d.Cmt[1] = append([]byte(nil), cbody...)
		case typCmt3:
			d.Cmt[2] = append([]byte(nil), cbody...)
		case typCmt4:
			d.Cmt[3] = append([]byte(nil), cbody...)
		case typThmb:
			thmb, err := parseThmb(cbody)
			if err != nil {
				return err
			}
			d.Thmb = thmb
		}
		return nil
	})
	return d, err
}

func parseCctp(src source.Source, h BoxHeader, body []byte) (CctpBox, error) {
	var c CctpBox
	if len(body) < 12 {
		return c, fmt.Errorf("bmff: CCTP box too short")
	}
	rest := body[12:]
	err := children(src, h.BodyOffset()+12, rest, func(ch BoxHeader, cbody []byte) error {
		if ch.Type == typCcdt {
			if len(cbody) < 16 {
				return fmt.Errorf("bmff: CCDT box too short")
			}
			c.Ccdts = append(c.Ccdts, CcdtBox{
				ImageType: binary.BigEndian.Uint64(cbody[0:8]),
				DualPixel: binary.BigEndian.Uint32(cbody[8:12]),
				TrakIndex: binary.BigEndian.Uint32(cbody[12:16]),
			})
		}
		return nil
	})
	return c, err
}
