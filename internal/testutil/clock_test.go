package testutil

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestManualClock_StartsAtGivenValue(t *testing.T) {
	clock := NewManualClock(1000)
	assert.Equal(t, int64(1000), clock.Now())
}

func TestManualClock_SetAndAdvance(t *testing.T) {
	clock := NewManualClock(0)

	clock.Set(250)
	assert.Equal(t, int64(250), clock.Now())

	assert.Equal(t, int64(300), clock.Advance(50))
	assert.Equal(t, int64(300), clock.Now())

	// Moving backwards is allowed
	clock.Set(10)
	assert.Equal(t, int64(10), clock.Now())
}

func TestManualClock_ThreadSafe(t *testing.T) {
	clock := NewManualClock(0)
	const numGoroutines = 100
	const callsPerGoroutine = 100

	var wg sync.WaitGroup
	wg.Add(numGoroutines)
	for i := 0; i < numGoroutines; i++ {
		go func() {
			defer wg.Done()
			for j := 0; j < callsPerGoroutine; j++ {
				clock.Advance(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(numGoroutines*callsPerGoroutine), clock.Now())
}
