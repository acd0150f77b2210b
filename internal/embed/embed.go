// Package embed implements spec §4.9's original-file embedding: a
// block-parallel zlib compression of the source bytes with a fixed 64KiB
// block layout, an MD5 digest of the uncompressed original, and the
// reverse (digest-verified) extraction path. Compression runs across
// internal/workerpool the way internal/crx runs one task per tile, per
// spec §5 ("per 64 KiB original-file block" task granularity).
package embed

import (
	"bytes"
	"crypto/md5"
	"encoding/binary"
	"io"

	"github.com/klauspost/compress/zlib"

	"github.com/rawforge/rawdng/internal/rawerr"
	"github.com/rawforge/rawdng/internal/workerpool"
)

// BlockSize is the fixed uncompressed block size spec §4.9 mandates.
const BlockSize = 65536

// ZeroPadLen is the format's fixed trailing zero-padding length.
const ZeroPadLen = 28

// Compressed is the on-wire layout of spec §4.9's OriginalCompressed:
// u32 uncompressed_size, u32 offsets[n+1], the n zlib block streams back
// to back, then 28 zero bytes.
type Compressed struct {
	UncompressedSize uint32
	Offsets          []uint32 // n+1 entries, byte offset of each block relative to the start of Blocks, not to the start of the serialized layout
	Blocks           []byte   // concatenated zlib streams
	Digest           [16]byte // md5 of the uncompressed original, carried alongside (OriginalRawFileDigest)
}

// Compress builds a Compressed from the original file's bytes, compressing
// each 64KiB block independently and in parallel across pool (nil uses a
// pool sized to GOMAXPROCS). Per spec §4.9, block sizes are unknown until
// encoded, so the offset table is computed after all blocks finish.
func Compress(original []byte, pool *workerpool.Pool) (*Compressed, error) {
	n := (len(original) + BlockSize - 1) / BlockSize
	if len(original) == 0 {
		n = 0
	}
	blockBufs := make([][]byte, n)

	owned := pool == nil
	if owned {
		pool = workerpool.New(0)
		defer pool.Close()
	}

	tasks := make([]func() error, n)
	for i := 0; i < n; i++ {
		i := i
		tasks[i] = func() error {
			start := i * BlockSize
			end := start + BlockSize
			if end > len(original) {
				end = len(original)
			}
			var buf bytes.Buffer
			zw := zlib.NewWriter(&buf)
			if _, err := zw.Write(original[start:end]); err != nil {
				return rawerr.Wrap(rawerr.Io, err, "embed: compressing block %d", i)
			}
			if err := zw.Close(); err != nil {
				return rawerr.Wrap(rawerr.Io, err, "embed: closing block %d", i)
			}
			blockBufs[i] = buf.Bytes()
			return nil
		}
	}
	if err := pool.Run(tasks); err != nil {
		return nil, err
	}

	offsets := make([]uint32, n+1)
	var blocks []byte
	for i, b := range blockBufs {
		offsets[i] = uint32(len(blocks))
		blocks = append(blocks, b...)
	}
	offsets[n] = uint32(len(blocks))

	digest := md5.Sum(original)
	return &Compressed{
		UncompressedSize: uint32(len(original)),
		Offsets:          offsets,
		Blocks:           blocks,
		Digest:           digest,
	}, nil
}

// WriteTo serializes c in spec §4.9's big-endian on-wire layout.
func (c *Compressed) WriteTo(w io.Writer) (int64, error) {
	var n int64
	if err := binary.Write(w, binary.BigEndian, c.UncompressedSize); err != nil {
		return n, err
	}
	n += 4
	for _, off := range c.Offsets {
		if err := binary.Write(w, binary.BigEndian, off); err != nil {
			return n, err
		}
		n += 4
	}
	m, err := w.Write(c.Blocks)
	n += int64(m)
	if err != nil {
		return n, err
	}
	pad := make([]byte, ZeroPadLen)
	m, err = w.Write(pad)
	n += int64(m)
	return n, err
}

// Decompress reverses Compress, verifying the blocks' layout invariant
// (offsets strictly monotonic, every decompressed block the expected size)
// and the original's MD5 digest unless skipChecks is set, per spec §4.9's
// DigestMismatch failure mode and spec §7's "fatal unless skip_checks"
// policy.
func Decompress(raw []byte, digest [16]byte, skipChecks bool, pool *workerpool.Pool) ([]byte, error) {
	if len(raw) < 4 {
		return nil, rawerr.New(rawerr.DecoderFailed, "embed: truncated header")
	}
	uncompressedSize := binary.BigEndian.Uint32(raw[0:4])
	n := int((uncompressedSize + BlockSize - 1) / BlockSize)
	if uncompressedSize == 0 {
		n = 0
	}
	need := 4 + (n+1)*4
	if len(raw) < need {
		return nil, rawerr.New(rawerr.DecoderFailed, "embed: truncated offset table")
	}
	offsets := make([]uint32, n+1)
	for i := range offsets {
		offsets[i] = binary.BigEndian.Uint32(raw[4+i*4 : 4+i*4+4])
	}
	for i := 1; i <= n; i++ {
		if offsets[i] <= offsets[i-1] {
			return nil, rawerr.New(rawerr.DecoderFailed, "embed: offsets not strictly monotonic at index %d", i)
		}
	}

	blocksStart := 4 + (n+1)*4
	blocks := raw[blocksStart:]

	owned := pool == nil
	if owned {
		pool = workerpool.New(0)
		defer pool.Close()
	}

	out := make([][]byte, n)
	tasks := make([]func() error, n)
	for i := 0; i < n; i++ {
		i := i
		blockStart := int(offsets[i])
		blockEnd := int(offsets[i+1])
		if blockEnd > len(blocks) || blockStart > blockEnd {
			return nil, rawerr.New(rawerr.DecoderFailed, "embed: block %d offsets out of range", i)
		}
		expect := BlockSize
		if i == n-1 {
			expect = int(uncompressedSize) - BlockSize*(n-1)
		}
		tasks[i] = func() error {
			zr, err := zlib.NewReader(bytes.NewReader(blocks[blockStart:blockEnd]))
			if err != nil {
				return rawerr.Wrap(rawerr.DecoderFailed, err, "embed: block %d inflate", i)
			}
			defer zr.Close()
			data, err := io.ReadAll(zr)
			if err != nil {
				return rawerr.Wrap(rawerr.DecoderFailed, err, "embed: block %d inflate", i)
			}
			if len(data) != expect {
				return rawerr.New(rawerr.DecoderFailed, "embed: block %d decompressed to %d bytes, want %d", i, len(data), expect)
			}
			out[i] = data
			return nil
		}
	}
	if err := pool.Run(tasks); err != nil {
		return nil, err
	}

	result := make([]byte, 0, uncompressedSize)
	for _, b := range out {
		result = append(result, b...)
	}

	if !skipChecks {
		got := md5.Sum(result)
		if got != digest {
			return nil, rawerr.New(rawerr.DigestMismatch, "embed: md5 mismatch")
		}
	}
	return result, nil
}
