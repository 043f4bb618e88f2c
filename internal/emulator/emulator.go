// internal/emulator/emulator.go
package emulator

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"github.com/OstapBloqIt/kerong-emulator/internal/crc"
	"github.com/OstapBloqIt/kerong-emulator/internal/device"
	"github.com/OstapBloqIt/kerong-emulator/internal/frame"
	"github.com/OstapBloqIt/kerong-emulator/internal/sched"
	"github.com/OstapBloqIt/kerong-emulator/internal/telemetry"
)

// Port is the byte stream the engine owns. Read must not block
// indefinitely: return (0, nil) when nothing arrived within the port's
// read timeout, so the silence timer keeps being evaluated. io.EOF
// means the port is gone and stops the run.
type Port interface {
	io.ReadWriteCloser
}

// Config is the runtime configuration the engine needs.
type Config struct {
	BaudRate int
}

// Engine drives one half-duplex processing loop: assemble, validate,
// route, process, delay, reply. One frame completes end to end before
// the next byte is read; telemetry order is frame-arrival order.
type Engine struct {
	cfg  Config
	port Port
	reg  *device.Registry
	asm  *frame.Assembler
	sch  sched.Scheduler
	rec  *telemetry.Recorder

	// mu serializes device memory access between the bus loop and
	// operator toggles.
	mu sync.Mutex
}

// New wires an engine over an open port and a built device registry.
func New(cfg Config, port Port, reg *device.Registry) *Engine {
	return &Engine{
		cfg:  cfg,
		port: port,
		reg:  reg,
		asm:  frame.NewAssembler(cfg.BaudRate),
		sch:  sched.New(cfg.BaudRate),
		rec:  telemetry.NewRecorder(),
	}
}

// Run owns the byte stream until ctx is canceled or the port closes.
// Stopping mid-frame is safe: the partial buffer is discarded, never
// replied to. Malformed traffic never stops the loop.
func (e *Engine) Run(ctx context.Context) error {
	buf := make([]byte, 256)

	for {
		select {
		case <-ctx.Done():
			e.asm.Reset()
			return nil
		default:
		}

		n, err := e.port.Read(buf)
		now := time.Now()

		if n > 0 {
			e.rec.AddBytesIn(n)
			if f, ok := e.asm.Feed(buf[:n], now); ok {
				e.handle(f)
			}
		}

		if err != nil {
			if errors.Is(err, io.EOF) {
				e.asm.Reset()
				return nil
			}
			log.Printf("emulator: port read failed: %v", err)
			time.Sleep(100 * time.Millisecond)
			continue
		}

		if f, ok := e.asm.Tick(now); ok {
			e.handle(f)
		}

		if n == 0 {
			// Idle tick; keep a zero-timeout port from spinning.
			time.Sleep(time.Millisecond)
		}
	}
}

func (e *Engine) handle(f frame.Frame) {
	req, inv := frame.Validate(f)
	if inv != nil {
		e.rec.RecordInvalid(*inv)
		return
	}

	dev, ok := e.reg.Route(req.Address)
	if !ok {
		// A slave is silent when not addressed; only the log sees it.
		e.rec.RecordUnrouted(req)
		return
	}

	e.mu.Lock()
	res := dev.Process(req)
	e.mu.Unlock()

	// Hold the line until the request's tail has physically cleared.
	time.Sleep(e.sch.Delay(len(f.Raw)))

	_, err := e.port.Write(res.Response)
	sent := err == nil
	if err != nil {
		log.Printf("emulator: reply write failed: %v", err)
	}
	e.rec.RecordProcessed(req, res, dev.Kind() == device.KindLock, sent)
}

// ---- read-only exposure for the UI/report collaborator ----

// Snapshot returns the latest published statistics snapshot.
func (e *Engine) Snapshot() *telemetry.Snapshot {
	return e.rec.Snapshot()
}

// Entries copies command-log entries from index from onward.
func (e *Engine) Entries(from int) []telemetry.Entry {
	return e.rec.Entries(from)
}

// LogSize returns the command-log length.
func (e *Engine) LogSize() int {
	return e.rec.LogSize()
}

// Locks returns a copy of the lock grid for one device, or false if
// the address is not an emulated lock controller.
func (e *Engine) Locks(addr uint8) ([]bool, bool) {
	dev, ok := e.reg.Route(addr)
	if !ok || dev.Kind() != device.KindLock {
		return nil, false
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return dev.Locks(), true
}

// ResetStats zeroes the counters and error ring on operator request.
func (e *Engine) ResetStats() {
	e.rec.Reset()
}

// ---- operator write paths ----

// SetLock applies a manual toggle as if it were a successful
// single-bit write: same handler, same counters, its own log entry,
// no bus traffic.
func (e *Engine) SetLock(addr uint8, lock int, locked bool) error {
	dev, ok := e.reg.Route(addr)
	if !ok {
		return fmt.Errorf("emulator: device %d not emulated", addr)
	}
	if dev.Kind() != device.KindLock {
		return fmt.Errorf("emulator: device %d has no locks", addr)
	}
	if lock < 0 || lock >= device.LockCount {
		return fmt.Errorf("emulator: lock index %d out of range 0-%d", lock, device.LockCount-1)
	}

	value := device.CoilOff
	if locked {
		value = device.CoilOn
	}
	raw := crc.Append([]byte{
		addr, device.FnWriteSingleCoil,
		byte(lock >> 8), byte(lock),
		byte(value >> 8), byte(value),
	})
	req, inv := frame.Validate(frame.Frame{Raw: raw, At: time.Now()})
	if inv != nil {
		return fmt.Errorf("emulator: synthetic toggle frame invalid: %s", inv.Desc)
	}

	e.mu.Lock()
	res := dev.Process(req)
	e.mu.Unlock()
	if res.IsException() {
		return fmt.Errorf("emulator: toggle rejected with exception 0x%02X", res.Exception)
	}

	e.rec.RecordManual(req, res, true)
	return nil
}

// SetAllLocks forces a whole device's grid open or closed.
func (e *Engine) SetAllLocks(addr uint8, locked bool) error {
	dev, ok := e.reg.Route(addr)
	if !ok {
		return fmt.Errorf("emulator: device %d not emulated", addr)
	}
	if dev.Kind() != device.KindLock {
		return fmt.Errorf("emulator: device %d has no locks", addr)
	}
	e.mu.Lock()
	dev.SetAllLocks(locked)
	e.mu.Unlock()
	return nil
}
