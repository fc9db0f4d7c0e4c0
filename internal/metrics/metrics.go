// Package metrics provides the observational performance collector invoked
// by every coordinator operation.
//
// Collection never affects control flow: coordinators record a Sample after
// each operation completes and continue regardless of what the collector
// does with it. The aggregating Recorder is the default implementation;
// callers that want raw samples can supply a CollectorFunc.
package metrics

import (
	"sync"
	"time"
)

// Sample describes one completed coordinator operation.
type Sample struct {
	// Category identifies the operation, convention "coordinator.operation"
	// (e.g. "rendezvous.wait_for_bus", "capacity.board_passenger").
	Category string
	// Success is the operation's business outcome.
	Success bool
	// Wait is how long the operation blocked waiting for a monitor,
	// semaphore, or queue slot. Zero for non-blocking operations.
	Wait time.Duration
	// Processing is the non-blocking remainder of the operation's duration.
	Processing time.Duration
	// Metadata carries optional operation-specific context (bus, stop,
	// passenger identifiers).
	Metadata map[string]any
}

// Collector receives operation samples. Implementations must be safe for
// concurrent use and must not block.
type Collector interface {
	Record(Sample)
}

// CollectorFunc adapts a function to the Collector interface.
type CollectorFunc func(Sample)

// Record implements Collector.
func (f CollectorFunc) Record(s Sample) { f(s) }

// Nop returns a Collector that discards all samples.
func Nop() Collector {
	return CollectorFunc(func(Sample) {})
}

// CategoryStats aggregates all samples recorded for one category.
type CategoryStats struct {
	Count           int
	Successes       int
	TotalWait       time.Duration
	MaxWait         time.Duration
	TotalProcessing time.Duration
}

// Failures returns the number of unsuccessful samples.
func (c CategoryStats) Failures() int { return c.Count - c.Successes }

// MeanWait returns the average blocking time per sample.
func (c CategoryStats) MeanWait() time.Duration {
	if c.Count == 0 {
		return 0
	}
	return c.TotalWait / time.Duration(c.Count)
}

// Recorder aggregates samples per category. It is safe for concurrent use.
type Recorder struct {
	mu    sync.RWMutex
	stats map[string]CategoryStats
}

// NewRecorder creates an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{stats: make(map[string]CategoryStats)}
}

// Record implements Collector.
func (r *Recorder) Record(s Sample) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cs := r.stats[s.Category]
	cs.Count++
	if s.Success {
		cs.Successes++
	}
	cs.TotalWait += s.Wait
	if s.Wait > cs.MaxWait {
		cs.MaxWait = s.Wait
	}
	cs.TotalProcessing += s.Processing
	r.stats[s.Category] = cs
}

// Stats returns the aggregate for one category and whether any sample has
// been recorded for it.
func (r *Recorder) Stats(category string) (CategoryStats, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	cs, ok := r.stats[category]
	return cs, ok
}

// Snapshot returns a copy of all aggregates keyed by category.
func (r *Recorder) Snapshot() map[string]CategoryStats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]CategoryStats, len(r.stats))
	for k, v := range r.stats {
		out[k] = v
	}
	return out
}

// Reset discards all recorded aggregates.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.stats = make(map[string]CategoryStats)
}
