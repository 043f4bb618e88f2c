// internal/device/slave.go
package device

import (
	"fmt"
	"strings"

	"github.com/OstapBloqIt/kerong-emulator/internal/crc"
	"github.com/OstapBloqIt/kerong-emulator/internal/frame"
)

// Kind selects the memory model of an emulated slave.
type Kind int

const (
	// KindLock is the KR-CU48 lock controller: 48 locks, every memory
	// bank bounded at 48. A coil is a lock; true means closed/locked.
	KindLock Kind = iota
	// KindGeneric is a plain slave with four 256-entry banks.
	KindGeneric
)

// Bank sizes per kind.
const (
	LockCount   = 48
	genericSize = 256
)

// Slave is one emulated device. Process is the only way bus traffic
// mutates it; manual toggles go through Process as synthetic writes.
type Slave struct {
	addr uint8
	kind Kind

	coils    []bool
	discrete []bool
	holding  []uint16
	input    []uint16

	// CU48 compat: count==0 on Read Coils reads the whole bank
	// instead of raising an illegal-value exception.
	zeroCountAll bool
}

// NewLock creates a KR-CU48 lock controller slave. All 48 locks start
// closed. Holding registers carry the controller's factory defaults.
func NewLock(addr uint8, zeroCountAll bool) *Slave {
	s := &Slave{
		addr:         addr,
		kind:         KindLock,
		coils:        make([]bool, LockCount),
		discrete:     make([]bool, LockCount),
		holding:      make([]uint16, LockCount),
		input:        make([]uint16, LockCount),
		zeroCountAll: zeroCountAll,
	}
	for i := range s.coils {
		s.coils[i] = true
	}
	s.holding[0x03] = 550    // unlock pulse duration, ms
	s.holding[0x0F] = 0xE230 // controller identity word
	return s
}

// NewGeneric creates a slave with four independent 256-entry banks.
func NewGeneric(addr uint8) *Slave {
	return &Slave{
		addr:     addr,
		kind:     KindGeneric,
		coils:    make([]bool, genericSize),
		discrete: make([]bool, genericSize),
		holding:  make([]uint16, genericSize),
		input:    make([]uint16, genericSize),
	}
}

func (s *Slave) Address() uint8 { return s.addr }
func (s *Slave) Kind() Kind     { return s.kind }

// Locks returns a copy of the lock states. Nil for a generic slave.
func (s *Slave) Locks() []bool {
	if s.kind != KindLock {
		return nil
	}
	out := make([]bool, len(s.coils))
	copy(out, s.coils)
	return out
}

// SetAllLocks forces every lock open or closed. UI bulk action; it
// bypasses counters on purpose, matching a maintenance override.
func (s *Slave) SetAllLocks(locked bool) {
	if s.kind != KindLock {
		return
	}
	for i := range s.coils {
		s.coils[i] = locked
	}
}

// Process executes one validated request against device memory and
// returns the reply or exception ADU. A handler bug surfaces as a
// device-failure exception on the bus, never as a crash.
func (s *Slave) Process(req frame.Request) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = s.exception(req.Function, ExcDeviceFailure)
		}
	}()

	switch req.Function {
	case FnReadCoils:
		return s.readBits(req, s.coils, true)
	case FnReadDiscreteInputs:
		return s.readBits(req, s.discrete, false)
	case FnReadHolding:
		return s.readRegs(req, s.holding)
	case FnReadInput:
		return s.readRegs(req, s.input)
	case FnWriteSingleCoil:
		return s.writeSingleCoil(req)
	case FnWriteSingleReg:
		return s.writeSingleReg(req)
	case FnWriteMultipleCoils:
		return s.writeMultipleCoils(req)
	case FnWriteMultipleRegs:
		return s.writeMultipleRegs(req)
	default:
		return s.exception(req.Function, ExcIllegalFunction)
	}
}

// ---- function code handlers ----

func (s *Slave) readBits(req frame.Request, bank []bool, coilBank bool) Result {
	start, count, ok := geom(req.Payload)
	if !ok {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if count == 0 {
		if s.zeroCountAll && coilBank && int(start) < len(bank) {
			count = uint16(len(bank)) - start
		} else {
			return s.exception(req.Function, ExcIllegalValue)
		}
	}
	if count > maxReadBits {
		return s.exception(req.Function, ExcIllegalValue)
	}
	if int(start)+int(count) > len(bank) {
		return s.exception(req.Function, ExcIllegalAddress)
	}

	data := packBits(bank[start : start+count])
	pdu := append([]byte{byte(len(data))}, data...)
	return s.reply(req.Function, pdu)
}

func (s *Slave) readRegs(req frame.Request, bank []uint16) Result {
	start, count, ok := geom(req.Payload)
	if !ok {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if count == 0 || count > maxReadRegs {
		return s.exception(req.Function, ExcIllegalValue)
	}
	if int(start)+int(count) > len(bank) {
		return s.exception(req.Function, ExcIllegalAddress)
	}

	pdu := make([]byte, 1, 1+2*count)
	pdu[0] = byte(2 * count)
	for _, v := range bank[start : start+count] {
		pdu = append(pdu, byte(v>>8), byte(v))
	}
	return s.reply(req.Function, pdu)
}

func (s *Slave) writeSingleCoil(req frame.Request) Result {
	addr, value, ok := geom(req.Payload)
	if !ok {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if int(addr) >= len(s.coils) {
		return s.exception(req.Function, ExcIllegalAddress)
	}

	var locked bool
	switch value {
	case CoilOn:
		locked = true
	case CoilOff:
		locked = false
	default:
		return s.exception(req.Function, ExcIllegalValue)
	}

	s.coils[addr] = locked

	res := s.reply(req.Function, append(putU16(addr), putU16(value)...))
	if s.kind == KindLock {
		if locked {
			res.Locked = 1
			res.Op = fmt.Sprintf("LOCK #%d LOCKED", addr+1)
		} else {
			res.Unlocked = 1
			res.Op = fmt.Sprintf("LOCK #%d UNLOCKED", addr+1)
		}
	}
	return res
}

func (s *Slave) writeSingleReg(req frame.Request) Result {
	addr, value, ok := geom(req.Payload)
	if !ok {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if int(addr) >= len(s.holding) {
		return s.exception(req.Function, ExcIllegalAddress)
	}

	s.holding[addr] = value
	return s.reply(req.Function, append(putU16(addr), putU16(value)...))
}

func (s *Slave) writeMultipleCoils(req frame.Request) Result {
	start, count, ok := geom(req.Payload)
	if !ok || len(req.Payload) < 5 {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if count == 0 {
		return s.exception(req.Function, ExcIllegalValue)
	}
	if int(start)+int(count) > len(s.coils) {
		return s.exception(req.Function, ExcIllegalAddress)
	}
	byteCount := int(req.Payload[4])
	if byteCount != (int(count)+7)/8 {
		return s.exception(req.Function, ExcIllegalValue)
	}
	values := req.Payload[5:]
	if len(values) < byteCount {
		return s.exception(req.Function, ExcDeviceFailure)
	}

	var ops []string
	res := Result{}
	for i := 0; i < int(count); i++ {
		locked := values[i/8]&(1<<(i%8)) != 0
		idx := int(start) + i
		s.coils[idx] = locked
		if s.kind == KindLock {
			if locked {
				res.Locked++
				ops = append(ops, fmt.Sprintf("Lock #%d LOCKED", idx+1))
			} else {
				res.Unlocked++
				ops = append(ops, fmt.Sprintf("Lock #%d UNLOCKED", idx+1))
			}
		}
	}

	echo := s.reply(req.Function, append(putU16(start), putU16(count)...))
	res.Response = echo.Response
	res.Op = strings.Join(ops, "; ")
	return res
}

func (s *Slave) writeMultipleRegs(req frame.Request) Result {
	start, count, ok := geom(req.Payload)
	if !ok || len(req.Payload) < 5 {
		return s.exception(req.Function, ExcDeviceFailure)
	}
	if count == 0 || count > maxWriteRegs {
		return s.exception(req.Function, ExcIllegalValue)
	}
	if int(start)+int(count) > len(s.holding) {
		return s.exception(req.Function, ExcIllegalAddress)
	}
	byteCount := int(req.Payload[4])
	if byteCount != 2*int(count) {
		return s.exception(req.Function, ExcIllegalValue)
	}
	values := req.Payload[5:]
	if len(values) < byteCount {
		return s.exception(req.Function, ExcDeviceFailure)
	}

	for i := 0; i < int(count); i++ {
		s.holding[int(start)+i] = u16(values, 2*i)
	}
	return s.reply(req.Function, append(putU16(start), putU16(count)...))
}

// ---- reply construction ----

func (s *Slave) reply(fn uint8, pdu []byte) Result {
	adu := make([]byte, 0, 2+len(pdu)+2)
	adu = append(adu, s.addr, fn)
	adu = append(adu, pdu...)
	return Result{Response: crc.Append(adu)}
}

func (s *Slave) exception(fn, code uint8) Result {
	return Result{
		Response:  crc.Append([]byte{s.addr, fn | ExcFlag, code}),
		Exception: code,
	}
}
