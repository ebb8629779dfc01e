package monitoring

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecordSpawn(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordSpawn(true)
	m.RecordSpawn(true)
	m.RecordSpawn(false)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Spawns.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Spawns.WithLabelValues("failed")))

	snap := m.Snapshot()
	assert.Equal(t, int64(3), snap.Spawns)
	assert.Equal(t, int64(1), snap.SpawnFailures)
}

func TestStreamAndBufferMetrics(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.RecordRead(100)
	m.RecordRead(28)
	m.RecordWrite(7)
	m.RecordFrame("notification")
	m.RecordProtocolError()
	m.RecordRing(4096, 2)
	m.RecordArenaReset(8192)

	assert.Equal(t, 128.0, testutil.ToFloat64(m.BytesRead))
	assert.Equal(t, 7.0, testutil.ToFloat64(m.BytesWritten))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Frames.WithLabelValues("notification")))
	assert.Equal(t, 4096.0, testutil.ToFloat64(m.RingCapacity))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.RingGrowths))
	assert.Equal(t, 8192.0, testutil.ToFloat64(m.ArenaCapacity))

	snap := m.Snapshot()
	assert.Equal(t, int64(128), snap.BytesRead)
	assert.Equal(t, int64(1), snap.ProtocolErrors)
	assert.Equal(t, int64(1), snap.ArenaResets)
}

func TestSessionsActive(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	m.IncSessionsActive()
	m.IncSessionsActive()
	m.DecSessionsActive()

	assert.Equal(t, 1.0, testutil.ToFloat64(m.SessionsActive))
	assert.Equal(t, int64(1), m.Snapshot().SessionsActive)
}

func TestSeparateRegistries(t *testing.T) {
	require.NotPanics(t, func() {
		NewMetrics(prometheus.NewRegistry())
		NewMetrics(prometheus.NewRegistry())
	})
}
