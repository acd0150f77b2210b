package ljpeg

import (
	"math/rand"
	"testing"
)

// TestRoundTrip covers spec §8's "LJPEG-92 round-trip" invariant: for any
// u16 plane with precision in {8,10,12,14,16} and any predictor 1..7,
// decode(encode(plane)) must equal plane byte-for-byte.
func TestRoundTrip(t *testing.T) {
	const width, height = 17, 13
	for _, precision := range []int{8, 10, 12, 14, 16} {
		for predictor := 1; predictor <= 7; predictor++ {
			rng := rand.New(rand.NewSource(int64(precision*10 + predictor)))
			max := uint16(1<<uint(precision)) - 1
			samples := make([]uint16, width*height)
			for i := range samples {
				samples[i] = uint16(rng.Intn(int(max) + 1))
			}

			encoded, err := Encode(samples, width, height, precision, EncodeParams{Predictor: predictor})
			if err != nil {
				t.Fatalf("precision=%d predictor=%d: Encode: %v", precision, predictor, err)
			}
			frame, err := Decode(encoded)
			if err != nil {
				t.Fatalf("precision=%d predictor=%d: Decode: %v", precision, predictor, err)
			}
			if len(frame.Components) != 1 {
				t.Fatalf("expected 1 component, got %d", len(frame.Components))
			}
			got := frame.Components[0].Samples
			for i := range samples {
				if got[i] != samples[i] {
					t.Fatalf("precision=%d predictor=%d: sample %d: got %d want %d", precision, predictor, i, got[i], samples[i])
				}
			}
		}
	}
}

func TestRoundTripWithRestarts(t *testing.T) {
	const width, height = 32, 8
	samples := make([]uint16, width*height)
	rng := rand.New(rand.NewSource(7))
	for i := range samples {
		samples[i] = uint16(rng.Intn(1 << 12))
	}
	encoded, err := Encode(samples, width, height, 12, EncodeParams{Predictor: 4, RestartInterval: 40})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	frame, err := Decode(encoded)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	got := frame.Components[0].Samples
	for i := range samples {
		if got[i] != samples[i] {
			t.Fatalf("sample %d: got %d want %d", i, got[i], samples[i])
		}
	}
}
