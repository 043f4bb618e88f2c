// internal/sched/sched_test.go
package sched

import (
	"testing"
	"time"
)

func TestDelay_TurnaroundPlusTransmission(t *testing.T) {
	s := New(9600)

	// 8 bytes at 9600 baud: 8 * 11 / 9600 s ≈ 9.166ms on the wire.
	got := s.Delay(8)
	tx := 8 * 11 * time.Second / 9600
	want := DefaultTurnaround + tx
	if got != want {
		t.Fatalf("Delay(8) = %v, want %v", got, want)
	}
}

func TestDelay_ScalesWithBaud(t *testing.T) {
	slow := New(9600).Delay(8)
	fast := New(115200).Delay(8)
	if fast >= slow {
		t.Fatalf("faster baud should shorten the delay: %v >= %v", fast, slow)
	}
	// The turnaround component is baud independent.
	if fast < DefaultTurnaround {
		t.Fatalf("delay %v below fixed turnaround", fast)
	}
}

func TestDelay_ZeroBaudFallsBackToTurnaround(t *testing.T) {
	if got := New(0).Delay(64); got != DefaultTurnaround {
		t.Fatalf("Delay = %v, want bare turnaround", got)
	}
}
