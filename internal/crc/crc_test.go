// internal/crc/crc_test.go
package crc

import "testing"

func TestChecksum_KnownVectors(t *testing.T) {
	// Reference values produced by the KR-CU48 controller itself.
	cases := []struct {
		in   []byte
		want uint16
	}{
		{[]byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x30}, 0x1E3C},
		{[]byte{0x01, 0x05, 0x00, 0x00, 0xFF, 0x00}, 0x3A8C},
		{[]byte{0x01, 0x05, 0x00, 0x00, 0x00, 0x00}, 0xCACD},
		{[]byte{0x01, 0x03, 0x00, 0x00, 0x00, 0x01}, 0x0A84},
	}

	for _, c := range cases {
		if got := Checksum(c.in); got != c.want {
			t.Fatalf("Checksum(% X) = 0x%04X, want 0x%04X", c.in, got, c.want)
		}
	}
}

func TestAppend_LowByteFirst(t *testing.T) {
	frame := Append([]byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x30})
	if len(frame) != 8 {
		t.Fatalf("expected 8 bytes, got %d", len(frame))
	}
	// 0x1E3C encodes as 3C 1E on the wire.
	if frame[6] != 0x3C || frame[7] != 0x1E {
		t.Fatalf("checksum bytes = %02X %02X, want 3C 1E", frame[6], frame[7])
	}
}

func TestVerify_RoundTrip(t *testing.T) {
	payloads := [][]byte{
		{0x01, 0x01},
		{0x05, 0x05, 0x00, 0x2F, 0xFF, 0x00},
		{0x0A, 0x10, 0x00, 0x00, 0x00, 0x02, 0x04, 0xDE, 0xAD, 0xBE, 0xEF},
	}

	for _, p := range payloads {
		frame := Append(append([]byte(nil), p...))
		if !Verify(frame) {
			t.Fatalf("Verify failed for % X", frame)
		}
	}
}

func TestVerify_SingleBitFlip(t *testing.T) {
	frame := Append([]byte{0x01, 0x05, 0x00, 0x00, 0xFF, 0x00})

	for i := range frame {
		for bit := 0; bit < 8; bit++ {
			mutated := append([]byte(nil), frame...)
			mutated[i] ^= 1 << bit
			if Verify(mutated) {
				t.Fatalf("Verify passed with bit %d of byte %d flipped", bit, i)
			}
		}
	}
}

func TestVerify_TooShort(t *testing.T) {
	for _, b := range [][]byte{nil, {0x01}, {0x01, 0x05}, {0x01, 0x05, 0x00}} {
		if Verify(b) {
			t.Fatalf("Verify passed for %d-byte input", len(b))
		}
	}
}
