package observability

import (
	"sync"
	"sync/atomic"
	"time"
)

// Metrics aggregates counters per retrieval engine. It backs the debug
// telemetry surface, not an external metrics system.
type Metrics struct {
	mu sync.Mutex

	requestTotal  atomic.Int64
	requestFailed atomic.Int64

	engineMetrics map[string]*EngineMetrics
}

// EngineMetrics holds counters for one retrieval engine.
type EngineMetrics struct {
	searchCount    atomic.Int64
	errorCount     atomic.Int64
	variationCount atomic.Int64
	rawHitCount    atomic.Int64
	totalDuration  atomic.Int64 // milliseconds
}

// NewMetrics creates a metrics collector.
func NewMetrics() *Metrics {
	return &Metrics{engineMetrics: make(map[string]*EngineMetrics)}
}

var globalMetrics = NewMetrics()

// GlobalMetrics returns the process-wide metrics instance.
func GlobalMetrics() *Metrics {
	return globalMetrics
}

// RecordSearch records a completed search with its fan-out telemetry.
func (m *Metrics) RecordSearch(engine string, variations, rawHits int, duration time.Duration) {
	m.requestTotal.Add(1)
	em := m.getEngineMetrics(engine)
	em.searchCount.Add(1)
	em.variationCount.Add(int64(variations))
	em.rawHitCount.Add(int64(rawHits))
	em.totalDuration.Add(duration.Milliseconds())
}

// RecordFailure records a failed search.
func (m *Metrics) RecordFailure(engine string) {
	m.requestFailed.Add(1)
	m.getEngineMetrics(engine).errorCount.Add(1)
}

// Snapshot returns a point-in-time view of the collected counters.
func (m *Metrics) Snapshot() map[string]EngineSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make(map[string]EngineSnapshot, len(m.engineMetrics))
	for engine, em := range m.engineMetrics {
		out[engine] = EngineSnapshot{
			Searches:   em.searchCount.Load(),
			Errors:     em.errorCount.Load(),
			Variations: em.variationCount.Load(),
			RawHits:    em.rawHitCount.Load(),
			DurationMs: em.totalDuration.Load(),
		}
	}
	return out
}

// EngineSnapshot is an immutable copy of one engine's counters.
type EngineSnapshot struct {
	Searches   int64 `json:"searches"`
	Errors     int64 `json:"errors"`
	Variations int64 `json:"variations"`
	RawHits    int64 `json:"raw_hits"`
	DurationMs int64 `json:"duration_ms"`
}

func (m *Metrics) getEngineMetrics(engine string) *EngineMetrics {
	m.mu.Lock()
	defer m.mu.Unlock()
	em, ok := m.engineMetrics[engine]
	if !ok {
		em = &EngineMetrics{}
		m.engineMetrics[engine] = em
	}
	return em
}
