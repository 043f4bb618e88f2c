// internal/sched/sched.go
package sched

import "time"

// DefaultTurnaround is the fixed collision-avoidance buffer observed
// before any reply, independent of baud rate.
const DefaultTurnaround = 2 * time.Millisecond

// bitsPerChar covers start, 8 data, parity and stop bits.
const bitsPerChar = 11

// Scheduler enforces the half-duplex turnaround before a reply goes
// back on the bus. The contract is one formula: fixed turnaround plus
// the computed transmission time of the incoming request, so the
// emulator never starts transmitting while the line could still be
// carrying the request's tail.
type Scheduler struct {
	baud       int
	turnaround time.Duration
}

// New returns a scheduler for the given symbol rate.
func New(baud int) Scheduler {
	return Scheduler{baud: baud, turnaround: DefaultTurnaround}
}

// Delay returns how long to hold the line before replying to a
// request of requestLen bytes. Unrouted frames get no reply at all;
// callers must not consult Delay for them.
func (s Scheduler) Delay(requestLen int) time.Duration {
	if s.baud <= 0 {
		return s.turnaround
	}
	tx := time.Duration(requestLen) * bitsPerChar * time.Second / time.Duration(s.baud)
	return s.turnaround + tx
}
