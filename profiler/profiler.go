// Package profiler keeps rolling timing statistics for named operations and
// reports them together with runtime memory figures.
package profiler

import (
	"runtime"
	"sort"
	"sync"
	"time"
)

// DefaultMaxSamples bounds the durations kept per operation.
const DefaultMaxSamples = 1000

// Profiler records operation durations. It is safe for concurrent use.
type Profiler struct {
	mu         sync.Mutex
	startTime  time.Time
	maxSamples int
	operations map[string]*timeTracker
}

// timeTracker tracks timing statistics for one operation over a sliding window.
type timeTracker struct {
	durations []time.Duration
	totalTime time.Duration
	minTime   time.Duration
	maxTime   time.Duration
	count     int64
	failures  int64
}

// OperationStats is the snapshot of one operation.
type OperationStats struct {
	Count    int64   `json:"count"`
	Failures int64   `json:"failures"`
	AvgMs    float64 `json:"avg_ms"`
	MinMs    float64 `json:"min_ms"`
	MaxMs    float64 `json:"max_ms"`
}

// Stats is a point-in-time report.
type Stats struct {
	UptimeSeconds float64                   `json:"uptime_seconds"`
	Goroutines    int                       `json:"goroutines"`
	HeapAlloc     uint64                    `json:"heap_alloc"`
	HeapSys       uint64                    `json:"heap_sys"`
	NumGC         uint32                    `json:"gc_cycles"`
	Operations    map[string]OperationStats `json:"operations"`
}

// New creates a profiler keeping at most maxSamples durations per operation.
// Non-positive values use DefaultMaxSamples.
func New(maxSamples int) *Profiler {
	if maxSamples <= 0 {
		maxSamples = DefaultMaxSamples
	}
	return &Profiler{
		startTime:  time.Now(),
		maxSamples: maxSamples,
		operations: make(map[string]*timeTracker),
	}
}

// StartOperation begins timing an operation.
//
// Arguments:
// - name: The name of the operation to track
//
// Returns:
// - A function to call when the operation completes, reporting whether it failed
func (p *Profiler) StartOperation(name string) func(failed bool) {
	start := time.Now()
	return func(failed bool) {
		p.RecordOperation(name, time.Since(start), failed)
	}
}

// RecordOperation records the completion time of an operation.
func (p *Profiler) RecordOperation(name string, duration time.Duration, failed bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	tracker, exists := p.operations[name]
	if !exists {
		tracker = &timeTracker{minTime: duration, maxTime: duration}
		p.operations[name] = tracker
	}

	tracker.durations = append(tracker.durations, duration)
	tracker.totalTime += duration
	if len(tracker.durations) > p.maxSamples {
		// Remove oldest sample
		tracker.totalTime -= tracker.durations[0]
		tracker.durations = tracker.durations[1:]
	}

	tracker.count++
	if failed {
		tracker.failures++
	}
	if duration < tracker.minTime {
		tracker.minTime = duration
	}
	if duration > tracker.maxTime {
		tracker.maxTime = duration
	}
}

// Operations returns the tracked operation names in sorted order.
func (p *Profiler) Operations() []string {
	p.mu.Lock()
	defer p.mu.Unlock()

	names := make([]string, 0, len(p.operations))
	for name := range p.operations {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Snapshot returns the current statistics.
func (p *Profiler) Snapshot() Stats {
	var mem runtime.MemStats
	runtime.ReadMemStats(&mem)

	p.mu.Lock()
	defer p.mu.Unlock()

	ops := make(map[string]OperationStats, len(p.operations))
	for name, t := range p.operations {
		s := OperationStats{
			Count:    t.count,
			Failures: t.failures,
			MinMs:    millis(t.minTime),
			MaxMs:    millis(t.maxTime),
		}
		if n := len(t.durations); n > 0 {
			s.AvgMs = millis(t.totalTime) / float64(n)
		}
		ops[name] = s
	}

	return Stats{
		UptimeSeconds: time.Since(p.startTime).Seconds(),
		Goroutines:    runtime.NumGoroutine(),
		HeapAlloc:     mem.HeapAlloc,
		HeapSys:       mem.HeapSys,
		NumGC:         mem.NumGC,
		Operations:    ops,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
