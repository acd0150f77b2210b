package bmff

// Walk calls fn, depth first, with a dotted path for each box this package
// keeps typed fields for (e.g. "moov.trak.mdia.minf.stbl.stsd.CRAW"); stsd
// itself and the sample tables (stsc, stsz, co64) are not reported. It is
// the BMFF counterpart of internal/tiff's IFD.Walk: an introspection helper
// for tooling and tests to assert container shape without hand-walking
// fixtures box by box.
func (f *File) Walk(fn func(path string)) {
	fn("ftyp")
	if f.Moov == nil {
		return
	}
	fn("moov")
	fn("moov.mvhd")
	for i, trak := range f.Moov.Traks {
		base := "moov.trak"
		_ = i
		fn(base)
		fn(base + ".tkhd")
		fn(base + ".mdia")
		fn(base + ".mdia.mdhd")
		fn(base + ".mdia.minf")
		fn(base + ".mdia.minf.stbl")
		if trak.Mdia.Minf.Stbl.Stsd.Craw != nil {
			fn(base + ".mdia.minf.stbl.stsd.CRAW")
			if trak.Mdia.Minf.Stbl.Stsd.Craw.Cmp1 != nil {
				fn(base + ".mdia.minf.stbl.stsd.CRAW.CMP1")
			}
			if trak.Mdia.Minf.Stbl.Stsd.Craw.Cdi1 != nil {
				fn(base + ".mdia.minf.stbl.stsd.CRAW.CDI1")
			}
		}
		if trak.Mdia.Minf.Stbl.Stsd.Ctmd != nil {
			fn(base + ".mdia.minf.stbl.stsd.CTMD")
		}
	}
	if f.Moov.CR3 != nil {
		fn("moov.uuid(CR3)")
		fn("moov.uuid(CR3).CNCV")
		fn("moov.uuid(CR3).CCTP")
		fn("moov.uuid(CR3).CTBO")
		for i := range f.Moov.CR3.Cmt {
			if f.Moov.CR3.Cmt[i] != nil {
				fn("moov.uuid(CR3).CMT" + string(rune('1'+i)))
			}
		}
		fn("moov.uuid(CR3).THMB")
	}
	fn("mdat")
}
