package monitoring

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// Process metrics
	Spawns *prometheus.CounterVec

	// Stream metrics
	BytesRead    prometheus.Counter
	BytesWritten prometheus.Counter

	// Frame metrics
	Frames         *prometheus.CounterVec
	ProtocolErrors prometheus.Counter

	// Buffer metrics
	RingCapacity  prometheus.Gauge
	RingGrowths   prometheus.Counter
	ArenaCapacity prometheus.Gauge
	ArenaResets   prometheus.Counter

	// Session metrics
	SessionsActive prometheus.Gauge

	// Snapshot for JSON dumps - track current values
	snapshot Snapshot

	mu sync.RWMutex
}

// Snapshot holds current metric values for JSON dumps
type Snapshot struct {
	Spawns         int64 `json:"spawns"`
	SpawnFailures  int64 `json:"spawn_failures"`
	BytesRead      int64 `json:"bytes_read"`
	BytesWritten   int64 `json:"bytes_written"`
	Frames         int64 `json:"frames"`
	ProtocolErrors int64 `json:"protocol_errors"`
	RingCapacity   int64 `json:"ring_capacity"`
	ArenaCapacity  int64 `json:"arena_capacity"`
	ArenaResets    int64 `json:"arena_resets"`
	SessionsActive int64 `json:"sessions_active"`
}

// NewMetrics creates a new metrics collector registered on reg. A nil reg
// registers on the default registry.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		Spawns: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "editorhost_spawns_total",
				Help: "Total number of child spawn attempts",
			},
			[]string{"outcome"},
		),

		BytesRead: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorhost_stream_read_bytes_total",
				Help: "Bytes read from child stdout",
			},
		),
		BytesWritten: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorhost_stream_written_bytes_total",
				Help: "Bytes written to child stdin",
			},
		),

		Frames: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "editorhost_frames_total",
				Help: "Frames decoded from the child",
			},
			[]string{"kind"},
		),
		ProtocolErrors: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorhost_protocol_errors_total",
				Help: "Frames that could not be decoded",
			},
		),

		RingCapacity: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "editorhost_ring_capacity_bytes",
				Help: "Capacity of the session read buffer",
			},
		),
		RingGrowths: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorhost_ring_growths_total",
				Help: "Reallocations of the session read buffer",
			},
		),
		ArenaCapacity: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "editorhost_arena_capacity_bytes",
				Help: "Capacity of the session message arena",
			},
		),
		ArenaResets: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "editorhost_arena_resets_total",
				Help: "Bulk releases of the session message arena",
			},
		),

		SessionsActive: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "editorhost_sessions_active",
				Help: "Number of running transport sessions",
			},
		),
	}
}

// RecordSpawn records a spawn attempt
func (m *Metrics) RecordSpawn(ok bool) {
	outcome := "ok"
	if !ok {
		outcome = "failed"
	}
	m.Spawns.WithLabelValues(outcome).Inc()

	m.mu.Lock()
	m.snapshot.Spawns++
	if !ok {
		m.snapshot.SpawnFailures++
	}
	m.mu.Unlock()
}

// RecordRead records bytes read from the child
func (m *Metrics) RecordRead(n int) {
	m.BytesRead.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesRead += int64(n)
	m.mu.Unlock()
}

// RecordWrite records bytes written to the child
func (m *Metrics) RecordWrite(n int) {
	m.BytesWritten.Add(float64(n))
	m.mu.Lock()
	m.snapshot.BytesWritten += int64(n)
	m.mu.Unlock()
}

// RecordFrame records a decoded frame
func (m *Metrics) RecordFrame(kind string) {
	m.Frames.WithLabelValues(kind).Inc()
	m.mu.Lock()
	m.snapshot.Frames++
	m.mu.Unlock()
}

// RecordProtocolError records an undecodable frame
func (m *Metrics) RecordProtocolError() {
	m.ProtocolErrors.Inc()
	m.mu.Lock()
	m.snapshot.ProtocolErrors++
	m.mu.Unlock()
}

// RecordRing records the read buffer footprint after a read
func (m *Metrics) RecordRing(capacity, newGrowths int) {
	m.RingCapacity.Set(float64(capacity))
	if newGrowths > 0 {
		m.RingGrowths.Add(float64(newGrowths))
	}
	m.mu.Lock()
	m.snapshot.RingCapacity = int64(capacity)
	m.mu.Unlock()
}

// RecordArenaReset records a bulk arena release
func (m *Metrics) RecordArenaReset(capacity int) {
	m.ArenaResets.Inc()
	m.ArenaCapacity.Set(float64(capacity))
	m.mu.Lock()
	m.snapshot.ArenaResets++
	m.snapshot.ArenaCapacity = int64(capacity)
	m.mu.Unlock()
}

// IncSessionsActive increments running sessions
func (m *Metrics) IncSessionsActive() {
	m.SessionsActive.Inc()
	m.mu.Lock()
	m.snapshot.SessionsActive++
	m.mu.Unlock()
}

// DecSessionsActive decrements running sessions
func (m *Metrics) DecSessionsActive() {
	m.SessionsActive.Dec()
	m.mu.Lock()
	m.snapshot.SessionsActive--
	m.mu.Unlock()
}

// Snapshot returns the current values
func (m *Metrics) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.snapshot
}
