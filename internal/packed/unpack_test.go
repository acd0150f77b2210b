package packed

import "testing"

func TestUnpack12LE16BitAligned(t *testing.T) {
	row := []byte{0x34, 0x02, 0xff, 0x0f}
	out, err := Unpack12LE16BitAligned(row, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0x234 || out[1] != 0xfff {
		t.Fatalf("got %x, %x", out[0], out[1])
	}
}

func TestUnpack16LE(t *testing.T) {
	row := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := Unpack16LE(row, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0x0201 || out[1] != 0x0403 {
		t.Fatalf("got %x, %x", out[0], out[1])
	}
}

func TestUnpack16BE(t *testing.T) {
	row := []byte{0x01, 0x02, 0x03, 0x04}
	out, err := Unpack16BE(row, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0x0102 || out[1] != 0x0304 {
		t.Fatalf("got %x, %x", out[0], out[1])
	}
}

func TestUnpack8BitWTable(t *testing.T) {
	var table [256]uint16
	table[5] = 1234
	out, err := Unpack8BitWTable([]byte{5, 5}, 2, table)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 1234 || out[1] != 1234 {
		t.Fatalf("got %v", out)
	}
}

func TestUnpack12BEMSB16RoundTripShape(t *testing.T) {
	// 0xAB, 0xCD, 0xEF -> samples 0xABC, 0xDEF per the classic packed-12 layout.
	out, err := Unpack12BEMSB16([]byte{0xAB, 0xCD, 0xEF}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if out[0] != 0xABC || out[1] != 0xDEF {
		t.Fatalf("got %x, %x", out[0], out[1])
	}
}
