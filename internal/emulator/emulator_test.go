// internal/emulator/emulator_test.go
package emulator

import (
	"bytes"
	"context"
	"sync"
	"testing"
	"time"

	"github.com/OstapBloqIt/kerong-emulator/internal/crc"
	"github.com/OstapBloqIt/kerong-emulator/internal/device"
)

// fakePort is an in-memory half-duplex bus: the test plays master.
type fakePort struct {
	mu  sync.Mutex
	in  bytes.Buffer
	out bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.in.Len() == 0 {
		return 0, nil // idle tick
	}
	return p.in.Read(b)
}

func (p *fakePort) Write(b []byte) (int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.out.Write(b)
}

func (p *fakePort) Close() error { return nil }

func (p *fakePort) send(b []byte) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.in.Write(b)
}

func (p *fakePort) reply() []byte {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := append([]byte(nil), p.out.Bytes()...)
	return out
}

func startEngine(t *testing.T, kind device.Kind, count, base int) (*Engine, *fakePort, func()) {
	t.Helper()

	reg, err := device.NewRegistry(device.RegistryConfig{
		Kind: kind, Count: count, AddressBase: base,
	})
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}

	port := &fakePort{}
	eng := New(Config{BaudRate: 115200}, port, reg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		eng.Run(ctx)
	}()

	return eng, port, func() {
		cancel()
		select {
		case <-done:
		case <-time.After(time.Second):
			t.Fatalf("engine did not stop")
		}
	}
}

// waitFor polls until cond holds or the deadline passes.
func waitFor(t *testing.T, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func TestEngine_WriteSingleCoilEcho(t *testing.T) {
	eng, port, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	req := crc.Append([]byte{0x01, 0x05, 0x00, 0x00, 0xFF, 0x00})
	port.send(req)

	waitFor(t, func() bool { return eng.Snapshot().Stats.ResponsesSent == 1 }, "echo reply")

	if !bytes.Equal(port.reply(), req) {
		t.Fatalf("reply = % X, want exact echo % X", port.reply(), req)
	}

	s := eng.Snapshot()
	if s.Stats.LocksLocked != 1 {
		t.Fatalf("locks locked = %d, want 1", s.Stats.LocksLocked)
	}
	if s.Stats.ValidRequests != 1 || s.Stats.ResponsesSent != 1 {
		t.Fatalf("counters: %+v", s.Stats)
	}

	locks, ok := eng.Locks(1)
	if !ok || !locks[0] {
		t.Fatalf("lock #1 not closed after no-op lock write")
	}
}

func TestEngine_FreshDeviceReadsAllClosed(t *testing.T) {
	_, port, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	port.send(crc.Append([]byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x30}))
	waitFor(t, func() bool { return len(port.reply()) > 0 }, "read reply")

	want := crc.Append([]byte{0x01, 0x01, 0x06, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF})
	if !bytes.Equal(port.reply(), want) {
		t.Fatalf("reply = % X, want % X", port.reply(), want)
	}
}

func TestEngine_CorruptedChecksumIsSilent(t *testing.T) {
	eng, port, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	raw := crc.Append([]byte{0x01, 0x01, 0x00, 0x00, 0x00, 0x30})
	raw[len(raw)-1] ^= 0x55
	port.send(raw)

	waitFor(t, func() bool { return eng.Snapshot().Stats.TotalRequests == 1 }, "frame classified")

	s := eng.Snapshot()
	if s.Stats.ChecksumErrors != 1 || s.Stats.InvalidRequests != 1 {
		t.Fatalf("counters: %+v", s.Stats)
	}
	if len(s.Errors) != 1 || s.Errors[0].Offset != len(raw)-2 {
		t.Fatalf("error detail: %+v", s.Errors)
	}
	if len(port.reply()) != 0 {
		t.Fatalf("corrupted frame produced a bus reply: % X", port.reply())
	}
}

func TestEngine_UnaddressedFramesStaySilent(t *testing.T) {
	eng, port, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	const n = 3
	req := crc.Append([]byte{0x09, 0x01, 0x00, 0x00, 0x00, 0x08})
	for i := 0; i < n; i++ {
		port.send(req)
		waitFor(t, func() bool {
			return eng.Snapshot().Stats.TotalRequests == uint64(i+1)
		}, "frame processed")
	}

	s := eng.Snapshot()
	if s.Stats.InvalidRequests != 0 {
		t.Fatalf("unaddressed frames counted invalid")
	}
	if s.Stats.AddressMisses != n {
		t.Fatalf("misses = %d, want %d", s.Stats.AddressMisses, n)
	}
	if len(port.reply()) != 0 {
		t.Fatalf("bus reply for unaddressed frame")
	}

	entries := eng.Entries(0)
	if len(entries) != n {
		t.Fatalf("log entries = %d, want %d", len(entries), n)
	}
	for _, e := range entries {
		if e.Result != "No response: address not emulated" {
			t.Fatalf("entry result = %q", e.Result)
		}
	}
}

func TestEngine_ManualToggleVisibleOnBus(t *testing.T) {
	eng, port, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	if err := eng.SetLock(1, 4, false); err != nil {
		t.Fatalf("SetLock: %v", err)
	}

	s := eng.Snapshot()
	if s.Stats.LocksUnlocked != 1 {
		t.Fatalf("unlock not counted: %+v", s.Stats)
	}
	if s.Stats.TotalRequests != 0 {
		t.Fatalf("manual toggle counted as bus request")
	}

	// The master now reads lock #5 back over the bus.
	port.send(crc.Append([]byte{0x01, 0x01, 0x00, 0x04, 0x00, 0x01}))
	waitFor(t, func() bool { return len(port.reply()) > 0 }, "read reply")

	want := crc.Append([]byte{0x01, 0x01, 0x01, 0x00})
	if !bytes.Equal(port.reply(), want) {
		t.Fatalf("reply = % X, want % X", port.reply(), want)
	}
}

func TestEngine_SetLockValidation(t *testing.T) {
	eng, _, stop := startEngine(t, device.KindLock, 1, 1)
	defer stop()

	if err := eng.SetLock(9, 0, true); err == nil {
		t.Fatalf("toggle on missing device accepted")
	}
	if err := eng.SetLock(1, 48, true); err == nil {
		t.Fatalf("lock index 48 accepted")
	}
}

func TestEngine_GenericRegistryOnBus(t *testing.T) {
	_, port, stop := startEngine(t, device.KindGeneric, 2, 0)
	defer stop()

	// Device 0 exists in the 0-based scheme.
	port.send(crc.Append([]byte{0x00, 0x06, 0x00, 0x10, 0xBE, 0xEF}))
	waitFor(t, func() bool { return len(port.reply()) > 0 }, "write echo")

	want := crc.Append([]byte{0x00, 0x06, 0x00, 0x10, 0xBE, 0xEF})
	if !bytes.Equal(port.reply(), want) {
		t.Fatalf("reply = % X, want % X", port.reply(), want)
	}
}
