package app

import (
	"sync/atomic"
	"time"
)

// Metrics tracks engine activity. Counters are atomic so the host can read
// a snapshot while the control goroutine records.
type Metrics struct {
	// Draw timing
	drawCount   atomic.Uint64
	drawTotalNs atomic.Int64
	drawMinNs   atomic.Int64
	drawMaxNs   atomic.Int64
	lastDrawNs  atomic.Int64

	// Draw outcomes
	pendingDraws atomic.Uint64
	emitted      atomic.Uint64
	nodeErrors   atomic.Uint64

	// Document activity
	updates       atomic.Uint64
	changes       atomic.Uint64
	invalidations atomic.Uint64

	startTime atomic.Int64
}

// NewMetrics creates a new metrics tracker.
func NewMetrics() *Metrics {
	m := &Metrics{}
	m.Reset()
	return m
}

// RecordDraw records one draw pass.
func (m *Metrics) RecordDraw(duration time.Duration, pending bool, emitted, errs int) {
	ns := duration.Nanoseconds()

	m.drawCount.Add(1)
	m.drawTotalNs.Add(ns)
	m.lastDrawNs.Store(ns)

	for {
		old := m.drawMinNs.Load()
		if ns >= old || m.drawMinNs.CompareAndSwap(old, ns) {
			break
		}
	}
	for {
		old := m.drawMaxNs.Load()
		if ns <= old || m.drawMaxNs.CompareAndSwap(old, ns) {
			break
		}
	}

	if pending {
		m.pendingDraws.Add(1)
	}
	m.emitted.Add(uint64(emitted))
	m.nodeErrors.Add(uint64(errs))
}

// RecordUpdate records a content update and whether it changed the index.
func (m *Metrics) RecordUpdate(changed bool) {
	m.updates.Add(1)
	if changed {
		m.changes.Add(1)
	}
}

// RecordInvalidation records a watched file being invalidated.
func (m *Metrics) RecordInvalidation() {
	m.invalidations.Add(1)
}

// Snapshot returns a snapshot of current metrics.
func (m *Metrics) Snapshot() MetricsSnapshot {
	count := m.drawCount.Load()

	var avg int64
	if count > 0 {
		avg = m.drawTotalNs.Load() / int64(count)
	}

	minNs := m.drawMinNs.Load()
	if minNs == 1<<63-1 {
		minNs = 0
	}

	return MetricsSnapshot{
		Uptime:        time.Since(time.Unix(0, m.startTime.Load())),
		DrawCount:     count,
		AvgDrawNs:     avg,
		MinDrawNs:     minNs,
		MaxDrawNs:     m.drawMaxNs.Load(),
		LastDrawNs:    m.lastDrawNs.Load(),
		PendingDraws:  m.pendingDraws.Load(),
		Emitted:       m.emitted.Load(),
		NodeErrors:    m.nodeErrors.Load(),
		Updates:       m.updates.Load(),
		Changes:       m.changes.Load(),
		Invalidations: m.invalidations.Load(),
	}
}

// Reset clears all metrics.
func (m *Metrics) Reset() {
	m.drawCount.Store(0)
	m.drawTotalNs.Store(0)
	m.drawMinNs.Store(1<<63 - 1)
	m.drawMaxNs.Store(0)
	m.lastDrawNs.Store(0)
	m.pendingDraws.Store(0)
	m.emitted.Store(0)
	m.nodeErrors.Store(0)
	m.updates.Store(0)
	m.changes.Store(0)
	m.invalidations.Store(0)
	m.startTime.Store(time.Now().UnixNano())
}

// MetricsSnapshot is a point-in-time view of metrics.
type MetricsSnapshot struct {
	Uptime        time.Duration
	DrawCount     uint64
	AvgDrawNs     int64
	MinDrawNs     int64
	MaxDrawNs     int64
	LastDrawNs    int64
	PendingDraws  uint64
	Emitted       uint64
	NodeErrors    uint64
	Updates       uint64
	Changes       uint64
	Invalidations uint64
}

// PendingRate returns the percentage of draws that left work pending.
func (s MetricsSnapshot) PendingRate() float64 {
	if s.DrawCount == 0 {
		return 0
	}
	return float64(s.PendingDraws) / float64(s.DrawCount) * 100
}

// Timer provides a simple way to measure elapsed time.
type Timer struct {
	start time.Time
}

// StartTimer creates a new timer.
func StartTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Elapsed returns the elapsed time since the timer started.
func (t *Timer) Elapsed() time.Duration {
	return time.Since(t.start)
}
