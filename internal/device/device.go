// internal/device/device.go
package device

import "fmt"

// Supported function codes. The dispatch switch over these is closed:
// anything else is answered with an illegal-function exception.
const (
	FnReadCoils          uint8 = 0x01
	FnReadDiscreteInputs uint8 = 0x02
	FnReadHolding        uint8 = 0x03
	FnReadInput          uint8 = 0x04
	FnWriteSingleCoil    uint8 = 0x05
	FnWriteSingleReg     uint8 = 0x06
	FnWriteMultipleCoils uint8 = 0x0F
	FnWriteMultipleRegs  uint8 = 0x10
)

// Exception codes returned to the bus. These are correct protocol
// responses signaling the master's mistake, not emulator errors.
const (
	ExcIllegalFunction uint8 = 0x01
	ExcIllegalAddress  uint8 = 0x02
	ExcIllegalValue    uint8 = 0x03
	ExcDeviceFailure   uint8 = 0x04
)

// Write-single-coil sentinels. Any other value is an illegal value.
const (
	CoilOn  uint16 = 0xFF00
	CoilOff uint16 = 0x0000
)

// ExcFlag marks an exception reply in the function-code byte.
const ExcFlag uint8 = 0x80

// Protocol count limits for read requests.
const (
	maxReadBits  = 2000
	maxReadRegs  = 125
	maxWriteRegs = 123
)

// FunctionName returns the display name for a function code.
func FunctionName(fc uint8) string {
	switch fc {
	case FnReadCoils:
		return "Read Coils"
	case FnReadDiscreteInputs:
		return "Read Discrete Inputs"
	case FnReadHolding:
		return "Read Holding Registers"
	case FnReadInput:
		return "Read Input Registers"
	case FnWriteSingleCoil:
		return "Write Single Coil"
	case FnWriteSingleReg:
		return "Write Single Register"
	case FnWriteMultipleCoils:
		return "Write Multiple Coils"
	case FnWriteMultipleRegs:
		return "Write Multiple Registers"
	default:
		return fmt.Sprintf("Unknown (0x%02X)", fc)
	}
}

// Result is the outcome of processing one validated request.
// Response is always a complete ADU including checksum.
type Result struct {
	Response  []byte
	Exception uint8 // 0 for a normal reply
	Op        string
	Locked    int // lock operations performed, including rewrites
	Unlocked  int
}

// IsException reports whether the result is an exception reply.
func (r Result) IsException() bool { return r.Exception != 0 }

// ---- wire helpers ----

func u16(b []byte, i int) uint16 {
	return uint16(b[i])<<8 | uint16(b[i+1])
}

func putU16(v uint16) []byte {
	return []byte{byte(v >> 8), byte(v)}
}

// geom parses the start-address/count pair common to most requests.
func geom(payload []byte) (start, count uint16, ok bool) {
	if len(payload) < 4 {
		return 0, 0, false
	}
	return u16(payload, 0), u16(payload, 2), true
}

// packBits packs bit status LSB-first within each byte.
func packBits(bits []bool) []byte {
	out := make([]byte, (len(bits)+7)/8)
	for i, b := range bits {
		if b {
			out[i/8] |= 1 << (i % 8)
		}
	}
	return out
}
