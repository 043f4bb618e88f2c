// internal/telemetry/snapshot.go
package telemetry

import (
	"fmt"
	"sort"
	"strings"

	"github.com/OstapBloqIt/kerong-emulator/internal/device"
)

// Summary renders the statistics report for the display/export layer.
func (s *Snapshot) Summary() string {
	rule := strings.Repeat("=", 60)
	var b strings.Builder

	b.WriteString(rule + "\n")
	b.WriteString("MODBUS RTU SLAVE EMULATOR - STATISTICS\n")
	b.WriteString(rule + "\n")
	fmt.Fprintf(&b, "Runtime: %.1f seconds\n\n", s.Taken.Sub(s.Started).Seconds())

	b.WriteString("REQUESTS:\n")
	fmt.Fprintf(&b, "  Total Requests:     %d\n", s.Stats.TotalRequests)
	fmt.Fprintf(&b, "  Valid Requests:     %d\n", s.Stats.ValidRequests)
	fmt.Fprintf(&b, "  Invalid Requests:   %d\n", s.Stats.InvalidRequests)
	fmt.Fprintf(&b, "  Responses Sent:     %d\n\n", s.Stats.ResponsesSent)

	b.WriteString("ERRORS:\n")
	fmt.Fprintf(&b, "  CRC Errors:         %d\n", s.Stats.ChecksumErrors)
	fmt.Fprintf(&b, "  Framing Errors:     %d\n", s.Stats.FramingErrors)
	fmt.Fprintf(&b, "  Timeout Errors:     %d\n", s.Stats.TimeoutErrors)
	fmt.Fprintf(&b, "  Unsupported Func:   %d\n", s.Stats.UnsupportedFunction)
	fmt.Fprintf(&b, "  Address Misses:     %d\n\n", s.Stats.AddressMisses)

	b.WriteString("LOCK OPERATIONS:\n")
	fmt.Fprintf(&b, "  Locks Unlocked:     %d\n", s.Stats.LocksUnlocked)
	fmt.Fprintf(&b, "  Locks Locked:       %d\n\n", s.Stats.LocksLocked)

	b.WriteString("DATA TRANSFER:\n")
	fmt.Fprintf(&b, "  Bytes Received:     %d\n", s.Stats.BytesReceived)
	fmt.Fprintf(&b, "  Bytes Sent:         %d\n\n", s.Stats.BytesSent)

	b.WriteString("PER-DEVICE REQUESTS:\n")
	for _, addr := range sortedKeys(s.Stats.DeviceRequests) {
		fmt.Fprintf(&b, "  Device %02d:        %d\n", addr, s.Stats.DeviceRequests[addr])
	}

	b.WriteString("\nFUNCTION CODE USAGE:\n")
	for _, fc := range sortedKeys(s.Stats.FunctionCounts) {
		fmt.Fprintf(&b, "  %-25s: %d\n", device.FunctionName(fc), s.Stats.FunctionCounts[fc])
	}

	b.WriteString(rule)
	return b.String()
}

// RecentErrorsReport renders the bounded error ring, most recent first.
func (s *Snapshot) RecentErrorsReport() string {
	if len(s.Errors) == 0 {
		return "No recent errors"
	}
	lines := []string{
		fmt.Sprintf("LAST %d ERRORS (Most Recent First)", RecentErrorCap),
		strings.Repeat("=", 70),
		"",
	}
	for i := len(s.Errors) - 1; i >= 0; i-- {
		lines = append(lines, s.Errors[i].Format(), "")
	}
	return strings.Join(lines, "\n")
}

func sortedKeys(m map[uint8]uint64) []uint8 {
	keys := make([]uint8, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
