package id

import (
	"strings"
	"sync"
	"testing"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateIsUniqueAndSorted(t *testing.T) {
	gen := NewGenerator()

	prev := gen.Generate()
	for i := 0; i < 1000; i++ {
		next := gen.Generate()
		require.Equal(t, 1, next.Compare(prev), "ids must increase")
		prev = next
	}
}

func TestGenerateWithPrefix(t *testing.T) {
	gen := NewGenerator()

	s := gen.GenerateWithPrefix("sess")
	prefix, rest, ok := strings.Cut(s, "_")
	require.True(t, ok)
	assert.Equal(t, "sess", prefix)
	assert.Len(t, rest, 26)
	_, err := ulid.Parse(rest)
	assert.NoError(t, err)
}

func TestSessionID(t *testing.T) {
	sid := NewSessionID()

	assert.True(t, strings.HasPrefix(sid.String(), "sess_"))
	assert.NotEqual(t, sid, NewSessionID())
}

func TestConcurrentGeneration(t *testing.T) {
	gen := NewGenerator()
	const workers, each = 8, 200

	var mu sync.Mutex
	seen := make(map[string]bool, workers*each)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < each; i++ {
				s := gen.Generate().String()
				mu.Lock()
				seen[s] = true
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Len(t, seen, workers*each)
}
