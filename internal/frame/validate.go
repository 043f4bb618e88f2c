// internal/frame/validate.go
package frame

import (
	"fmt"

	"github.com/OstapBloqIt/kerong-emulator/internal/crc"
)

// MinADU is the shortest legal frame: address + function + checksum.
const MinADU = 4

// InvalidKind classifies why a frame was rejected.
type InvalidKind int

const (
	KindFraming InvalidKind = iota
	KindChecksum
)

func (k InvalidKind) String() string {
	switch k {
	case KindFraming:
		return "FRAMING"
	case KindChecksum:
		return "CRC"
	default:
		return fmt.Sprintf("INVALID(%d)", int(k))
	}
}

// Invalid describes a rejected frame. For checksum failures it carries
// the received and expected values and the offset of the first checksum
// byte, where the mismatch is observed.
type Invalid struct {
	Frame    Frame
	Kind     InvalidKind
	Desc     string
	Received uint16
	Expected uint16
	Offset   int
}

// Validate checks framing and integrity only; it performs no
// device-specific interpretation. Rules apply in order: minimum
// length, maximum length, checksum, then parse.
func Validate(f Frame) (Request, *Invalid) {
	n := len(f.Raw)

	if n < MinADU {
		return Request{}, &Invalid{
			Frame:  f,
			Kind:   KindFraming,
			Desc:   fmt.Sprintf("frame too short: %d bytes (minimum %d)", n, MinADU),
			Offset: -1,
		}
	}

	if n > MaxADU {
		return Request{}, &Invalid{
			Frame:  f,
			Kind:   KindFraming,
			Desc:   fmt.Sprintf("frame too long: %d bytes (maximum %d)", n, MaxADU),
			Offset: -1,
		}
	}

	if !crc.Verify(f.Raw) {
		received := uint16(f.Raw[n-2]) | uint16(f.Raw[n-1])<<8
		expected := crc.Checksum(f.Raw[:n-2])
		return Request{}, &Invalid{
			Frame:    f,
			Kind:     KindChecksum,
			Desc:     fmt.Sprintf("checksum mismatch: received 0x%04X, expected 0x%04X", received, expected),
			Received: received,
			Expected: expected,
			Offset:   n - 2,
		}
	}

	return Request{
		Frame:    f,
		Address:  f.Raw[0],
		Function: f.Raw[1],
		Payload:  f.Raw[2 : n-2],
	}, nil
}
