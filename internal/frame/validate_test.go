// internal/frame/validate_test.go
package frame

import (
	"testing"
	"time"

	"github.com/OstapBloqIt/kerong-emulator/internal/crc"
)

func validFrame(t *testing.T, body ...byte) Frame {
	t.Helper()
	return Frame{Raw: crc.Append(body), At: time.Now()}
}

func TestValidate_TooShort(t *testing.T) {
	_, inv := Validate(Frame{Raw: []byte{0x01, 0x05, 0x00}})
	if inv == nil {
		t.Fatalf("3-byte frame accepted")
	}
	if inv.Kind != KindFraming {
		t.Fatalf("kind = %v, want FRAMING", inv.Kind)
	}
	if inv.Desc != "frame too short: 3 bytes (minimum 4)" {
		t.Fatalf("unexpected description %q", inv.Desc)
	}
}

func TestValidate_TooLong(t *testing.T) {
	_, inv := Validate(Frame{Raw: make([]byte, MaxADU+1)})
	if inv == nil || inv.Kind != KindFraming {
		t.Fatalf("oversized frame not classified as framing error: %+v", inv)
	}
}

func TestValidate_ChecksumMismatch(t *testing.T) {
	f := validFrame(t, 0x01, 0x05, 0x00, 0x00, 0xFF, 0x00)
	f.Raw[len(f.Raw)-1] ^= 0xFF // corrupt the high checksum byte

	_, inv := Validate(f)
	if inv == nil {
		t.Fatalf("corrupted frame accepted")
	}
	if inv.Kind != KindChecksum {
		t.Fatalf("kind = %v, want CRC", inv.Kind)
	}
	if inv.Offset != len(f.Raw)-2 {
		t.Fatalf("offset = %d, want %d", inv.Offset, len(f.Raw)-2)
	}
	if inv.Expected != crc.Checksum(f.Raw[:len(f.Raw)-2]) {
		t.Fatalf("expected checksum not carried")
	}
	if inv.Received == inv.Expected {
		t.Fatalf("received equals expected on a corrupted frame")
	}
}

func TestValidate_ParsesRequest(t *testing.T) {
	f := validFrame(t, 0x05, 0x01, 0x00, 0x00, 0x00, 0x30)

	req, inv := Validate(f)
	if inv != nil {
		t.Fatalf("valid frame rejected: %+v", inv)
	}
	if req.Address != 0x05 {
		t.Fatalf("address = %d, want 5", req.Address)
	}
	if req.Function != 0x01 {
		t.Fatalf("function = 0x%02X, want 0x01", req.Function)
	}
	if len(req.Payload) != 4 {
		t.Fatalf("payload length = %d, want 4", len(req.Payload))
	}
}

func TestValidate_MinimumLegalFrame(t *testing.T) {
	// Address + function only: smallest frame that can carry a checksum.
	f := validFrame(t, 0x01, 0x07)

	req, inv := Validate(f)
	if inv != nil {
		t.Fatalf("4-byte frame rejected: %+v", inv)
	}
	if len(req.Payload) != 0 {
		t.Fatalf("payload length = %d, want 0", len(req.Payload))
	}
}
