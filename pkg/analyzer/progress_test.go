package analyzer

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_Reports(t *testing.T) {
	var got []Progress
	tracker := NewTracker(func(p Progress) { got = append(got, p) })

	tracker.Add(3)
	tracker.Tick("src/a.ts")
	tracker.TickCached("src/b.ts")
	tracker.Tick("src/c.tsx")

	require.Len(t, got, 3)
	assert.Equal(t, Progress{Done: 2, Total: 3, Cached: 1, Path: "src/b.ts"}, got[1])
	assert.Equal(t, Progress{Done: 3, Total: 3, Cached: 1}, tracker.Snapshot())
}

func TestTracker_ConcurrentTicks(t *testing.T) {
	tracker := NewTracker(nil)
	tracker.Add(100)

	var wg sync.WaitGroup
	for i := range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				tracker.TickCached("hit.ts")
			} else {
				tracker.Tick("miss.ts")
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, Progress{Done: 100, Total: 100, Cached: 25}, tracker.Snapshot())
}

func TestTrackerFromContext(t *testing.T) {
	assert.Nil(t, TrackerFromContext(context.Background()))

	tracker := NewTracker(nil)
	assert.Same(t, tracker, TrackerFromContext(WithTracker(context.Background(), tracker)))
}
