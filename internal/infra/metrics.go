package infra

import (
	"sync/atomic"
	"time"
)

// Metrics provides lightweight observability without external dependencies.
// Uses atomic operations for thread-safety.
type Metrics struct {
	// Counters
	ordersPlaced     atomic.Uint64
	ordersCompleted  atomic.Uint64
	ordersCancelled  atomic.Uint64
	priceUpdates     atomic.Uint64
	summaryRefreshes atomic.Uint64
	eventsDropped    atomic.Uint64
	errorsTotal      atomic.Uint64

	// Completion latency tracking
	latencySumNs atomic.Int64
	latencyCount atomic.Uint64

	// Gauges
	queueDepth atomic.Int32
}

// RecordOrderPlaced records a newly created order.
func (m *Metrics) RecordOrderPlaced() {
	m.ordersPlaced.Add(1)
}

// RecordOrderCompleted records a completed order with its completion latency.
func (m *Metrics) RecordOrderCompleted(latencyNs int64) {
	m.ordersCompleted.Add(1)
	m.latencySumNs.Add(latencyNs)
	m.latencyCount.Add(1)
}

// RecordOrderCancelled records a cancelled order.
func (m *Metrics) RecordOrderCancelled() {
	m.ordersCancelled.Add(1)
}

// RecordPriceUpdate records a quote price/volume update.
func (m *Metrics) RecordPriceUpdate() {
	m.priceUpdates.Add(1)
}

// RecordSummaryRefresh records a market summary recomputation.
func (m *Metrics) RecordSummaryRefresh() {
	m.summaryRefreshes.Add(1)
}

// RecordEventDropped records a best-effort event dropped on a full buffer.
func (m *Metrics) RecordEventDropped() {
	m.eventsDropped.Add(1)
}

// RecordError records an error occurrence.
func (m *Metrics) RecordError() {
	m.errorsTotal.Add(1)
}

// SetQueueDepth sets the current completion queue depth.
func (m *Metrics) SetQueueDepth(depth int32) {
	m.queueDepth.Store(depth)
}

// MetricsSnapshot is a point-in-time view of all metrics.
type MetricsSnapshot struct {
	OrdersPlaced     uint64
	OrdersCompleted  uint64
	OrdersCancelled  uint64
	PriceUpdates     uint64
	SummaryRefreshes uint64
	EventsDropped    uint64
	ErrorsTotal      uint64
	AvgLatencyNs     int64
	QueueDepth       int32
	Timestamp        time.Time
}

// Snapshot returns current metrics as a snapshot.
func (m *Metrics) Snapshot() MetricsSnapshot {
	var avgLatency int64
	count := m.latencyCount.Load()
	if count > 0 {
		avgLatency = m.latencySumNs.Load() / int64(count)
	}

	return MetricsSnapshot{
		OrdersPlaced:     m.ordersPlaced.Load(),
		OrdersCompleted:  m.ordersCompleted.Load(),
		OrdersCancelled:  m.ordersCancelled.Load(),
		PriceUpdates:     m.priceUpdates.Load(),
		SummaryRefreshes: m.summaryRefreshes.Load(),
		EventsDropped:    m.eventsDropped.Load(),
		ErrorsTotal:      m.errorsTotal.Load(),
		AvgLatencyNs:     avgLatency,
		QueueDepth:       m.queueDepth.Load(),
		Timestamp:        time.Now(),
	}
}

// Reset clears all metrics (for testing).
func (m *Metrics) Reset() {
	m.ordersPlaced.Store(0)
	m.ordersCompleted.Store(0)
	m.ordersCancelled.Store(0)
	m.priceUpdates.Store(0)
	m.summaryRefreshes.Store(0)
	m.eventsDropped.Store(0)
	m.errorsTotal.Store(0)
	m.latencySumNs.Store(0)
	m.latencyCount.Store(0)
	m.queueDepth.Store(0)
}
