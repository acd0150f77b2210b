//go:build unix

package source

import (
	"os"
	"syscall"
)

// mmapFile is a Source backed by a memory-mapped file. The mapping is
// read-only (PROT_READ) and shared (MAP_SHARED); the OS pages it in lazily, so opening a
// multi-gigabyte RAW file costs no more than a few page faults during
// decode rather than a full read.
type mmapFile struct {
	f    *os.File
	data []byte
}

// Open memory-maps path for read-only random access.
func Open(path string) (Source, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	fi, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}

	size := fi.Size()
	if size == 0 {
		f.Close()
		return &buffer{}, nil
	}

	data, err := syscall.Mmap(int(f.Fd()), 0, int(size), syscall.PROT_READ, syscall.MAP_SHARED)
	if err != nil {
		f.Close()
		return nil, err
	}

	return &mmapFile{f: f, data: data}, nil
}

func (s *mmapFile) Len() int { return len(s.data) }

func (s *mmapFile) Subview(off, length int) ([]byte, error) {
	if off < 0 || length < 0 || off+length > len(s.data) {
		return nil, &OutOfRangeError{off, length, len(s.data)}
	}
	return s.data[off : off+length], nil
}

func (s *mmapFile) SubviewPadded(off, length int) ([]byte, error) {
	if off < 0 || length < 0 || off > len(s.data) {
		return nil, &OutOfRangeError{off, length, len(s.data)}
	}
	avail := len(s.data) - off
	if avail >= length+minPadding {
		return s.data[off : off+length+minPadding], nil
	}
	out := make([]byte, length+minPadding)
	n := avail
	if n > length {
		n = length
	}
	if n > 0 {
		copy(out, s.data[off:off+n])
	}
	return out, nil
}

func (s *mmapFile) SubviewUntilEOF(off int) ([]byte, error) {
	if off < 0 || off > len(s.data) {
		return nil, &OutOfRangeError{off, 0, len(s.data)}
	}
	return s.data[off:], nil
}

func (s *mmapFile) Close() error {
	var err error
	if s.data != nil {
		err = syscall.Munmap(s.data)
		s.data = nil
	}
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}
