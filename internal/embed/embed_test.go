package embed

import (
	"bytes"
	"crypto/md5"
	"math/rand"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	original := make([]byte, BlockSize*2+1234)
	rng.Read(original)

	c, err := Compress(original, nil)
	if err != nil {
		t.Fatalf("Compress: %v", err)
	}

	var buf bytes.Buffer
	if _, err := c.WriteTo(&buf); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}

	raw := buf.Bytes()
	headerAndOffsets := 4 + (len(c.Offsets))*4
	blocks := raw[headerAndOffsets : len(raw)-ZeroPadLen]
	_ = blocks

	got, err := Decompress(raw[:len(raw)-ZeroPadLen], md5.Sum(original), false, nil)
	if err != nil {
		t.Fatalf("Decompress: %v", err)
	}
	if !bytes.Equal(got, original) {
		t.Fatalf("round trip mismatch: got %d bytes, want %d", len(got), len(original))
	}

	// Offsets strictly monotonic (spec §8's block invariant).
	for i := 1; i < len(c.Offsets); i++ {
		if c.Offsets[i] <= c.Offsets[i-1] {
			t.Fatalf("offsets not monotonic at %d", i)
		}
	}
}

func TestDigestMismatch(t *testing.T) {
	original := []byte("hello world")
	c, err := Compress(original, nil)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	c.WriteTo(&buf)
	raw := buf.Bytes()
	raw = raw[:len(raw)-ZeroPadLen]

	var badDigest [16]byte
	_, err = Decompress(raw, badDigest, false, nil)
	if err == nil {
		t.Fatal("expected digest mismatch error")
	}
}
