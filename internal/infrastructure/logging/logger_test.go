package logging

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New(Config{Level: "chatty"})
	assert.Error(t, err)
}

func TestNewLevels(t *testing.T) {
	tests := []struct {
		in   string
		want zapcore.Level
	}{
		{"", zapcore.InfoLevel},
		{"debug", zapcore.DebugLevel},
		{"info", zapcore.InfoLevel},
		{"warn", zapcore.WarnLevel},
		{"error", zapcore.ErrorLevel},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			l, err := New(Config{Level: tt.in, OutputPaths: []string{filepath.Join(t.TempDir(), "log")}})
			require.NoError(t, err)
			assert.True(t, l.Core().Enabled(tt.want))
			if tt.want > zapcore.DebugLevel {
				assert.False(t, l.Core().Enabled(tt.want-1))
			}
		})
	}
}

func TestProductionWritesJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "editorhost.log")
	l, err := New(Config{OutputPaths: []string{path}})
	require.NoError(t, err)

	for i := 0; i < 200; i++ {
		l.Named("session").Warn("editor stderr", zap.Int("n", i))
	}
	require.NoError(t, l.Sync())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := 0
	for _, line := range splitLines(data) {
		var entry map[string]any
		require.NoError(t, sonic.Unmarshal(line, &entry))
		assert.Equal(t, "editor stderr", entry["message"])
		assert.Equal(t, "session", entry["logger"])
		assert.Contains(t, entry, "timestamp")
		lines++
	}
	assert.Equal(t, 200, lines, "entries are not sampled")
}

func splitLines(data []byte) [][]byte {
	var out [][]byte
	start := 0
	for i, c := range data {
		if c == '\n' {
			if i > start {
				out = append(out, data[start:i])
			}
			start = i + 1
		}
	}
	return out
}

func TestNop(t *testing.T) {
	l := Nop()
	assert.False(t, l.Core().Enabled(zapcore.ErrorLevel))
	l.Named("process").Info("discarded")
}

func TestNamedAndWith(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	l := &Logger{Logger: zap.New(core)}

	l.Named("session").With(zap.String("session_id", "sess_1")).Info("started")

	entries := logs.All()
	require.Len(t, entries, 1)
	assert.Equal(t, "session", entries[0].LoggerName)
	assert.Equal(t, "sess_1", entries[0].ContextMap()["session_id"])
}
