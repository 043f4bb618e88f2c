// internal/telemetry/errors.go
package telemetry

import (
	"fmt"
	"strings"
	"time"
)

// Kind is the failure taxonomy for classified frames.
type Kind int

const (
	KindFraming Kind = iota
	KindChecksum
	KindUnsupportedFunction
	KindAddressMismatch
	KindTimeout
)

func (k Kind) String() string {
	switch k {
	case KindFraming:
		return "FRAMING"
	case KindChecksum:
		return "CRC"
	case KindUnsupportedFunction:
		return "UNSUPPORTED"
	case KindAddressMismatch:
		return "ADDRESS"
	case KindTimeout:
		return "TIMEOUT"
	default:
		return fmt.Sprintf("KIND(%d)", int(k))
	}
}

// RecentErrorCap bounds the recent-error ring; inserting past it
// evicts the oldest entry.
const RecentErrorCap = 5

// ErrorDetail is one classified failure with byte-level diagnostics.
// For checksum errors, Expected/Received carry both checksums and
// Offset points at the first checksum byte. Offset is -1 when no
// single byte is implicated.
type ErrorDetail struct {
	At       time.Time
	Kind     Kind
	Frame    []byte
	Desc     string
	Received uint16
	Expected uint16
	Offset   int
}

// Format renders the detail with a hex dump and a marker under the
// offending byte, the shape the error report viewer expects.
func (e ErrorDetail) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s ERROR\n", e.At.Format("2006-01-02 15:04:05.000"), e.Kind)
	fmt.Fprintf(&b, "Description: %s\n\n", e.Desc)
	fmt.Fprintf(&b, "Received Frame (%d bytes):\n", len(e.Frame))

	hexLine := "  "
	posLine := "  "
	for i, c := range e.Frame {
		if i == e.Offset {
			hexLine += fmt.Sprintf("[%02X] ", c)
			posLine += " ^^  "
		} else {
			hexLine += fmt.Sprintf(" %02X  ", c)
			posLine += "     "
		}
	}
	b.WriteString(hexLine)
	b.WriteString("\n")
	if e.Offset >= 0 && e.Offset < len(e.Frame) {
		b.WriteString(posLine)
		b.WriteString("\n")
		fmt.Fprintf(&b, "  Error at byte position %d\n", e.Offset)
	}
	b.WriteString(strings.Repeat("=", 70))
	return b.String()
}
