// internal/telemetry/recorder.go
package telemetry

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/OstapBloqIt/kerong-emulator/internal/device"
	"github.com/OstapBloqIt/kerong-emulator/internal/frame"
)

// Stats are the aggregate counters for one run.
type Stats struct {
	TotalRequests   uint64
	ValidRequests   uint64
	InvalidRequests uint64
	ResponsesSent   uint64

	ChecksumErrors      uint64
	FramingErrors       uint64
	TimeoutErrors       uint64
	UnsupportedFunction uint64
	AddressMisses       uint64

	BytesReceived uint64
	BytesSent     uint64

	LocksLocked   uint64
	LocksUnlocked uint64

	DeviceRequests map[uint8]uint64
	FunctionCounts map[uint8]uint64
}

// Snapshot is an immutable view published after every mutation.
// Readers never observe counters mid-update.
type Snapshot struct {
	Started time.Time
	Taken   time.Time
	Stats   Stats
	Errors  []ErrorDetail // oldest first
}

// Recorder owns the live counters, the bounded recent-error ring and
// the append-only command log. The processing loop is the writer;
// external observers poll Snapshot and Entries, read-only.
type Recorder struct {
	mu    sync.Mutex
	start time.Time
	stats Stats
	errs  []ErrorDetail
	log   []Entry
	snap  atomic.Pointer[Snapshot]
}

// NewRecorder returns a recorder with zeroed counters and an empty
// published snapshot.
func NewRecorder() *Recorder {
	r := &Recorder{start: time.Now()}
	r.stats.DeviceRequests = make(map[uint8]uint64)
	r.stats.FunctionCounts = make(map[uint8]uint64)
	r.publishLocked()
	return r
}

// AddBytesIn accounts bytes read off the bus.
func (r *Recorder) AddBytesIn(n int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats.BytesReceived += uint64(n)
	r.publishLocked()
}

// RecordInvalid absorbs one frame the validator rejected: counters, a
// ring entry and a command-log entry. The loop carries on; nothing
// propagates.
func (r *Recorder) RecordInvalid(inv frame.Invalid) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalRequests++
	r.stats.InvalidRequests++

	detail := ErrorDetail{
		At:       inv.Frame.At,
		Frame:    inv.Frame.Raw,
		Desc:     inv.Desc,
		Received: inv.Received,
		Expected: inv.Expected,
		Offset:   inv.Offset,
	}
	switch inv.Kind {
	case frame.KindChecksum:
		r.stats.ChecksumErrors++
		detail.Kind = KindChecksum
	default:
		r.stats.FramingErrors++
		detail.Kind = KindFraming
	}
	r.pushErrorLocked(detail)

	var dev, fn uint8
	if len(inv.Frame.Raw) > 0 {
		dev = inv.Frame.Raw[0]
	}
	if len(inv.Frame.Raw) > 1 {
		fn = inv.Frame.Raw[1] & 0x7F
	}
	r.log = append(r.log, Entry{
		At:           inv.Frame.At,
		Device:       dev,
		Function:     fn,
		FunctionName: device.FunctionName(fn),
		Request:      inv.Frame.Raw,
		Params:       fmt.Sprintf("Frame length: %d bytes", len(inv.Frame.Raw)),
		Result:       "Rejected: " + inv.Desc,
	})

	r.publishLocked()
}

// RecordUnrouted logs a well-formed frame addressed to a device that
// is not emulated. The bus stays silent; the invalid counter is not
// touched, only the miss counter and the log.
func (r *Recorder) RecordUnrouted(req frame.Request) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalRequests++
	r.stats.ValidRequests++
	r.stats.AddressMisses++
	r.stats.DeviceRequests[req.Address]++
	r.stats.FunctionCounts[req.Function&0x7F]++

	r.log = append(r.log, Entry{
		At:           req.Frame.At,
		Device:       req.Address,
		Function:     req.Function,
		FunctionName: device.FunctionName(req.Function),
		Request:      req.Frame.Raw,
		Result:       "No response: address not emulated",
	})

	r.publishLocked()
}

// RecordProcessed logs one routed request with its reply or exception.
// An illegal-function exception additionally lands in the error ring:
// it is still transmitted, but the operator wants to see it.
func (r *Recorder) RecordProcessed(req frame.Request, res device.Result, lock, sent bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.TotalRequests++
	r.stats.ValidRequests++
	r.stats.DeviceRequests[req.Address]++
	r.stats.FunctionCounts[req.Function&0x7F]++
	if sent {
		r.stats.ResponsesSent++
		r.stats.BytesSent += uint64(len(res.Response))
	}
	r.stats.LocksLocked += uint64(res.Locked)
	r.stats.LocksUnlocked += uint64(res.Unlocked)

	if res.Exception == device.ExcIllegalFunction {
		r.stats.UnsupportedFunction++
		r.pushErrorLocked(ErrorDetail{
			At:     req.Frame.At,
			Kind:   KindUnsupportedFunction,
			Frame:  req.Frame.Raw,
			Desc:   fmt.Sprintf("unsupported function 0x%02X", req.Function),
			Offset: 1,
		})
	}

	r.log = append(r.log, decodeEntry(req, res, lock, req.Frame.At))
	r.publishLocked()
}

// RecordManual logs an operator toggle applied through the device as a
// synthetic single-bit write. Lock counters move; request counters do
// not, since nothing crossed the bus.
func (r *Recorder) RecordManual(req frame.Request, res device.Result, lock bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.stats.LocksLocked += uint64(res.Locked)
	r.stats.LocksUnlocked += uint64(res.Unlocked)

	e := decodeEntry(req, res, lock, req.Frame.At)
	e.Response = nil
	e.Result = "Manual: " + e.Result
	r.log = append(r.log, e)

	r.publishLocked()
}

// Reset zeroes counters and the error ring on operator request. The
// command log survives; its rotation belongs to the export layer.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.start = time.Now()
	r.stats = Stats{
		DeviceRequests: make(map[uint8]uint64),
		FunctionCounts: make(map[uint8]uint64),
	}
	r.errs = nil
	r.publishLocked()
}

// Snapshot returns the last published snapshot. Lock-free; safe from
// any goroutine.
func (r *Recorder) Snapshot() *Snapshot {
	return r.snap.Load()
}

// Entries copies the command log from index from onward.
func (r *Recorder) Entries(from int) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	if from < 0 || from >= len(r.log) {
		return nil
	}
	out := make([]Entry, len(r.log)-from)
	copy(out, r.log[from:])
	return out
}

// LogSize returns the number of command-log entries so far.
func (r *Recorder) LogSize() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.log)
}

func (r *Recorder) pushErrorLocked(e ErrorDetail) {
	r.errs = append(r.errs, e)
	if len(r.errs) > RecentErrorCap {
		r.errs = r.errs[len(r.errs)-RecentErrorCap:]
	}
}

func (r *Recorder) publishLocked() {
	s := &Snapshot{
		Started: r.start,
		Taken:   time.Now(),
		Stats:   r.stats,
		Errors:  append([]ErrorDetail(nil), r.errs...),
	}
	s.Stats.DeviceRequests = make(map[uint8]uint64, len(r.stats.DeviceRequests))
	for k, v := range r.stats.DeviceRequests {
		s.Stats.DeviceRequests[k] = v
	}
	s.Stats.FunctionCounts = make(map[uint8]uint64, len(r.stats.FunctionCounts))
	for k, v := range r.stats.FunctionCounts {
		s.Stats.FunctionCounts[k] = v
	}
	r.snap.Store(s)
}
