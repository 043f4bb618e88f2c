// internal/telemetry/entry.go
package telemetry

import (
	"fmt"
	"strings"
	"time"

	"github.com/OstapBloqIt/kerong-emulator/internal/device"
	"github.com/OstapBloqIt/kerong-emulator/internal/frame"
)

// Entry is one fully decoded transaction, valid or not. Exactly one
// Entry exists per frame that reached the validator.
type Entry struct {
	At           time.Time
	Device       uint8
	Function     uint8
	FunctionName string
	Request      []byte
	Response     []byte
	Params       string
	Result       string
}

// Format renders the entry for the command-log viewer.
func (e Entry) Format() string {
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] Device 0x%02X - %s (0x%02X)\n",
		e.At.Format("2006-01-02 15:04:05.000"), e.Device, e.FunctionName, e.Function)
	if len(e.Request) > 0 {
		fmt.Fprintf(&b, "  Request:  % X\n", e.Request)
	}
	if len(e.Response) > 0 {
		fmt.Fprintf(&b, "  Response: % X\n", e.Response)
	}
	if e.Params != "" {
		fmt.Fprintf(&b, "  Parameters: %s\n", e.Params)
	}
	if e.Result != "" {
		fmt.Fprintf(&b, "  Result: %s\n", e.Result)
	}
	b.WriteString(strings.Repeat("-", 70))
	return b.String()
}

// decodeEntry builds the command-log entry for a processed request.
// Parameter decoding is function-code specific; lock devices get the
// lock-numbered renderings.
func decodeEntry(req frame.Request, res device.Result, lock bool, at time.Time) Entry {
	e := Entry{
		At:           at,
		Device:       req.Address,
		Function:     req.Function,
		FunctionName: device.FunctionName(req.Function),
		Request:      req.Frame.Raw,
		Response:     res.Response,
	}

	p := req.Payload
	switch req.Function {
	case device.FnReadCoils, device.FnReadDiscreteInputs:
		if len(p) >= 4 {
			start, count := be16(p, 0), be16(p, 2)
			e.Params = fmt.Sprintf("Start: 0x%04X (%d), Count: %d", start, start, count)
		}
		if res.IsException() {
			e.Result = excResult(res)
		} else if len(res.Response) > 3 {
			bc := int(res.Response[2])
			e.Result = fmt.Sprintf("Returned %d bytes: % X", bc, res.Response[3:3+bc])
		}

	case device.FnReadHolding, device.FnReadInput:
		if len(p) >= 4 {
			start, count := be16(p, 0), be16(p, 2)
			e.Params = fmt.Sprintf("Start: 0x%04X (%d), Count: %d", start, start, count)
		}
		if res.IsException() {
			e.Result = excResult(res)
		} else if len(res.Response) > 3 {
			bc := int(res.Response[2])
			e.Result = fmt.Sprintf("Returned %d registers (%d bytes)", bc/2, bc)
		}

	case device.FnWriteSingleCoil:
		if len(p) >= 4 {
			addr, value := be16(p, 0), be16(p, 2)
			var state string
			switch value {
			case device.CoilOn:
				state = "LOCK (bit 1)"
			case device.CoilOff:
				state = "UNLOCK (bit 0)"
			default:
				state = fmt.Sprintf("Invalid (0x%04X)", value)
			}
			if lock {
				e.Params = fmt.Sprintf("Lock #%d (0x%04X), Value: %s", addr+1, addr, state)
			} else {
				e.Params = fmt.Sprintf("Coil: 0x%04X (%d), Value: 0x%04X", addr, addr, value)
			}
		}
		e.Result = opOr(res, "Success")

	case device.FnWriteSingleReg:
		if len(p) >= 4 {
			addr, value := be16(p, 0), be16(p, 2)
			e.Params = fmt.Sprintf("Register: 0x%04X (%d), Value: 0x%04X (%d)", addr, addr, value, value)
		}
		e.Result = opOr(res, "Success")

	case device.FnWriteMultipleCoils:
		if len(p) >= 5 {
			start, count := be16(p, 0), be16(p, 2)
			bc := int(p[4])
			data := p[5:]
			if len(data) > bc {
				data = data[:bc]
			}
			if lock {
				e.Params = fmt.Sprintf("Start: 0x%04X (Lock #%d), Count: %d, Data: % X", start, start+1, count, data)
			} else {
				e.Params = fmt.Sprintf("Start: 0x%04X (%d), Count: %d, Data: % X", start, start, count, data)
			}
			e.Result = opOr(res, fmt.Sprintf("Written %d coils", count))
		}

	case device.FnWriteMultipleRegs:
		if len(p) >= 5 {
			start, count := be16(p, 0), be16(p, 2)
			e.Params = fmt.Sprintf("Start: 0x%04X (%d), Count: %d, Bytes: %d", start, start, count, p[4])
			e.Result = opOr(res, fmt.Sprintf("Written %d registers", count))
		}

	default:
		e.Params = "Unsupported function"
	}

	if e.Result == "" {
		e.Result = excResult(res)
	}
	return e
}

func be16(b []byte, i int) uint16 {
	return uint16(b[i])<<8 | uint16(b[i+1])
}

func excResult(res device.Result) string {
	if res.IsException() {
		return fmt.Sprintf("Exception: 0x%02X", res.Exception)
	}
	return "Success"
}

func opOr(res device.Result, fallback string) string {
	if res.IsException() {
		return excResult(res)
	}
	if res.Op != "" {
		return res.Op
	}
	return fallback
}
