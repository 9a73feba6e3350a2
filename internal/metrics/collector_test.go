package metrics

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollectorEmpty(t *testing.T) {
	c := NewCollector()
	snap := c.Snapshot()
	assert.Empty(t, snap.Operations)
	assert.GreaterOrEqual(t, snap.UptimeSeconds, 0.0)
}

func TestCollectorRecordTiming(t *testing.T) {
	c := NewCollector()
	c.RecordTiming(OpSendText, 100*time.Millisecond, false)
	c.RecordTiming(OpSendText, 300*time.Millisecond, true)
	c.RecordTiming(OpCreateConversation, 50*time.Millisecond, false)

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 2)

	create := snap.Operations[0]
	assert.Equal(t, OpCreateConversation, create.Name)
	assert.Equal(t, int64(1), create.Count)

	text := snap.Operations[1]
	assert.Equal(t, OpSendText, text.Name)
	assert.Equal(t, int64(2), text.Count)
	assert.Equal(t, int64(1), text.Failures)
	assert.Equal(t, int64(400), text.TotalTimeMs)
	assert.Equal(t, 200.0, text.AvgTimeMs)
	assert.Equal(t, int64(100), text.MinTimeMs)
	assert.Equal(t, int64(300), text.MaxTimeMs)
}

func TestCollectorConcurrent(t *testing.T) {
	c := NewCollector()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.RecordTiming(OpSendAudio, time.Millisecond, false)
		}()
	}
	wg.Wait()

	snap := c.Snapshot()
	require.Len(t, snap.Operations, 1)
	assert.Equal(t, int64(50), snap.Operations[0].Count)
}
