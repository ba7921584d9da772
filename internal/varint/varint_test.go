package varint

import (
	"bytes"
	"testing"
)

func TestDecodeFixtures(t *testing.T) {
	cases := []struct {
		name    string
		in      []byte
		wantV   int64
		wantLen int
	}{
		{"two-byte-128", []byte{0x81, 0x00}, 128, 2},
		{"nine-byte-minus-one", bytes.Repeat([]byte{0xff}, 9), -1, 9},
		{"one-byte-no-continuation", []byte{0x01, 0x01, 0x01}, 1, 1},
		{"zero", []byte{0x00}, 0, 1},
		{"one-byte-max", []byte{0x7f}, 127, 1},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			v, n, err := Decode(c.in)
			if err != nil {
				t.Fatalf("Decode: %v", err)
			}
			if v != c.wantV || n != c.wantLen {
				t.Errorf("Decode(%x) = (%d, %d), want (%d, %d)", c.in, v, n, c.wantV, c.wantLen)
			}
		})
	}
}

func TestDecodeTruncated(t *testing.T) {
	if _, _, err := Decode([]byte{0x81}); err == nil {
		t.Fatal("expected truncated varint error")
	}
	if _, _, err := Decode(nil); err == nil {
		t.Fatal("expected truncated varint error on empty input")
	}
}

func TestDecodeConsumesAtMostNine(t *testing.T) {
	buf := bytes.Repeat([]byte{0xff}, 20)
	_, n, err := Decode(buf)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if n != MaxLen {
		t.Errorf("Decode consumed %d bytes, want %d", n, MaxLen)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []int64{0, 1, -1, 127, 128, 16383, 16384, 1 << 40, -(1 << 40),
		9223372036854775807, -9223372036854775808}
	for _, want := range values {
		buf := make([]byte, MaxLen)
		n := Encode(buf, want)
		if n != Len(want) {
			t.Errorf("Encode(%d) wrote %d bytes, Len reports %d", want, n, Len(want))
		}
		got, gotN, err := Decode(buf[:n])
		if err != nil {
			t.Fatalf("Decode(Encode(%d)): %v", want, err)
		}
		if got != want || gotN != n {
			t.Errorf("round trip for %d: got (%d, %d), want (%d, %d)", want, got, gotN, want, n)
		}
	}
}
