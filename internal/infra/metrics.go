package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	messagesEnqueued  atomic.Uint64
	messagesDropped   atomic.Uint64
	messagesApplied   atomic.Uint64
	messagesIgnored   atomic.Uint64
	integrityFailures atomic.Uint64
	errorsTotal       atomic.Uint64
	sessionSwitches   atomic.Uint64

	// Latency of engine apply calls
	applyLatencySumNs atomic.Int64
	applyLatencyCount atomic.Uint64

	// Gauges
	connected atomic.Int32 // 1 = connected, 0 = not
}

// GlobalMetrics is the singleton metrics instance.
var GlobalMetrics = &Metrics{}

// RecordEnqueued records one raw message accepted into the queue.
func (m *Metrics) RecordEnqueued() {
	m.messagesEnqueued.Add(1)
}

// RecordDropped records messages discarded by the overflow policy.
func (m *Metrics) RecordDropped(n uint64) {
	m.messagesDropped.Add(n)
}

// RecordApplied records a successful book update with its apply latency.
func (m *Metrics) RecordApplied(latencyNs int64) {
	m.messagesApplied.Add(1)
	m.applyLatencySumNs.Add(latencyNs)
	m.applyLatencyCount.Add(1)
}

// RecordIgnored records a message that was not relevant to book state.
func (m *Metrics) RecordIgnored() {
	m.messagesIgnored.Add(1)
}

// RecordIntegrityFailure records a checksum mismatch reported by the engine.
func (m *Metrics) RecordIntegrityFailure() {
	m.integrityFailures.Add(1)
}

// RecordError records a generic processing failure.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// RecordSessionSwitch records one instrument switch.
func (m *Metrics) RecordSessionSwitch() {
	m.sessionSwitches.Add(1)
}

// SetConnected sets the transport connection gauge.
func (m *Metrics) SetConnected(connected bool) {
	if connected {
		m.connected.Store(1)
	} else {
		m.connected.Store(0)
	}
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	MessagesEnqueued  uint64
	MessagesDropped   uint64
	MessagesApplied   uint64
	MessagesIgnored   uint64
	IntegrityFailures uint64
	ErrorsTotal       uint64
	SessionSwitches   uint64
	AvgApplyLatencyNs int64
	Connected         bool
	Timestamp         time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.applyLatencyCount.Load()
	if count > 0 {
		avgLatency = m.applyLatencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		MessagesEnqueued:  m.messagesEnqueued.Load(),
		MessagesDropped:   m.messagesDropped.Load(),
		MessagesApplied:   m.messagesApplied.Load(),
		MessagesIgnored:   m.messagesIgnored.Load(),
		IntegrityFailures: m.integrityFailures.Load(),
		ErrorsTotal:       m.errorsTotal.Load(),
		SessionSwitches:   m.sessionSwitches.Load(),
		AvgApplyLatencyNs: avgLatency,
		Connected:         m.connected.Load() == 1,
		Timestamp:         time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.messagesEnqueued.Store(0)
	m.messagesDropped.Store(0)
	m.messagesApplied.Store(0)
	m.messagesIgnored.Store(0)
	m.integrityFailures.Store(0)
	m.errorsTotal.Store(0)
	m.sessionSwitches.Store(0)
	m.applyLatencySumNs.Store(0)
	m.applyLatencyCount.Store(0)
	m.connected.Store(0)
}
