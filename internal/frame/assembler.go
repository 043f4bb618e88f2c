// internal/frame/assembler.go
package frame

import "time"

const (
	// MaxADU is the largest legal RTU frame: write-multiple-registers
	// with 123 registers (1+1+2+2+1+246+2).
	MaxADU = 256

	// flushCeiling is where a frame that never ends gets force-emitted,
	// so the validator can classify it instead of it buffering forever.
	flushCeiling = 512

	// bitsPerChar covers start, 8 data, parity and stop bits.
	bitsPerChar = 11

	// minGap is the practical silence floor at low baud rates.
	minGap = 10 * time.Millisecond
)

// Assembler splits an unbounded byte stream into frames using the
// 3.5-character silence rule. It never blocks: the caller feeds bytes
// as they arrive and ticks it between reads with the current time.
type Assembler struct {
	gap  time.Duration
	buf  []byte
	last time.Time
}

// NewAssembler returns an assembler tuned for the given baud rate.
func NewAssembler(baud int) *Assembler {
	gap := SilenceGap(baud)
	return &Assembler{
		gap: gap,
		buf: make([]byte, 0, flushCeiling),
	}
}

// SilenceGap returns the inter-frame silence interval for a baud rate:
// 3.5 character times, floored at 10ms.
func SilenceGap(baud int) time.Duration {
	if baud <= 0 {
		return minGap
	}
	gap := time.Duration(35) * bitsPerChar * time.Second / time.Duration(baud*10)
	if gap < minGap {
		gap = minGap
	}
	return gap
}

// Feed appends bytes that arrived at now. If the buffer grows past the
// safety ceiling the oversized frame is emitted immediately.
func (a *Assembler) Feed(p []byte, now time.Time) (Frame, bool) {
	if len(p) == 0 {
		return Frame{}, false
	}
	a.buf = append(a.buf, p...)
	a.last = now
	if len(a.buf) > flushCeiling {
		return a.emit(now), true
	}
	return Frame{}, false
}

// Tick checks the silence timer. It emits the buffered frame when no
// byte has arrived for the silence interval. Empty buffers never
// fabricate frames.
func (a *Assembler) Tick(now time.Time) (Frame, bool) {
	if len(a.buf) == 0 {
		return Frame{}, false
	}
	if now.Sub(a.last) <= a.gap {
		return Frame{}, false
	}
	return a.emit(now), true
}

// Reset discards a partially buffered frame. Used on shutdown: a
// half-received frame is dropped, never replied to.
func (a *Assembler) Reset() {
	a.buf = a.buf[:0]
}

// Pending returns the number of buffered bytes awaiting a boundary.
func (a *Assembler) Pending() int {
	return len(a.buf)
}

func (a *Assembler) emit(now time.Time) Frame {
	raw := make([]byte, len(a.buf))
	copy(raw, a.buf)
	a.buf = a.buf[:0]
	return Frame{Raw: raw, At: now}
}
