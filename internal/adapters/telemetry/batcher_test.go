package telemetry_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/creator/internal/adapters/telemetry"
)

type collector struct {
	mu      sync.Mutex
	flushes []string
	flushCh chan struct{}
}

func newCollector() *collector {
	return &collector{flushCh: make(chan struct{}, 16)}
}

func (c *collector) onFlush(data []byte) {
	c.mu.Lock()
	c.flushes = append(c.flushes, string(data))
	c.mu.Unlock()
	select {
	case c.flushCh <- struct{}{}:
	default:
	}
}

func (c *collector) get() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.flushes...)
}

func TestBatchProcessor_FlushOnSize(t *testing.T) {
	c := newCollector()
	bp := telemetry.NewBatchProcessor(8, time.Hour, c.onFlush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("one\n"))
	require.NoError(t, err)
	assert.Empty(t, c.get())

	_, err = bp.Write([]byte("two\nthr"))
	require.NoError(t, err)
	assert.Equal(t, []string{"one\ntwo\n"}, c.get(), "partial lines stay buffered")

	require.NoError(t, bp.Close())
	assert.Equal(t, []string{"one\ntwo\n", "thr"}, c.get())
}

func TestBatchProcessor_LongLine(t *testing.T) {
	c := newCollector()
	bp := telemetry.NewBatchProcessor(4, time.Hour, c.onFlush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("abcdef"))
	require.NoError(t, err)
	assert.Equal(t, []string{"abcdef"}, c.get())
}

func TestBatchProcessor_FlushOnTime(t *testing.T) {
	c := newCollector()
	bp := telemetry.NewBatchProcessor(100, 20*time.Millisecond, c.onFlush)
	defer func() { _ = bp.Close() }()

	_, err := bp.Write([]byte("tick\n"))
	require.NoError(t, err)

	select {
	case <-c.flushCh:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for flush")
	}
	assert.Equal(t, []string{"tick\n"}, c.get())
}

func TestBatchProcessor_Closed(t *testing.T) {
	c := newCollector()
	bp := telemetry.NewBatchProcessor(0, 0, c.onFlush)
	require.NoError(t, bp.Close())
	require.NoError(t, bp.Close())

	_, err := bp.Write([]byte("late"))
	require.Error(t, err)
	bp.Flush()
	assert.Empty(t, c.get())
}

func TestBatchProcessor_Concurrent(t *testing.T) {
	c := newCollector()
	bp := telemetry.NewBatchProcessor(16, time.Hour, c.onFlush)

	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range 10 {
				_, _ = bp.Write([]byte("line\n"))
			}
		}()
	}
	wg.Wait()
	require.NoError(t, bp.Close())

	total := 0
	for _, f := range c.get() {
		total += len(f)
	}
	assert.Equal(t, 100*len("line\n"), total)
}
