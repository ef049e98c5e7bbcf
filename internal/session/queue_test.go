package session

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestActionQueue_FIFOThenReady(t *testing.T) {
	var q actionQueue
	var order []int
	for i := 0; i < 3; i++ {
		require.True(t, q.pushUnlessReady(func() { order = append(order, i) }))
	}
	assert.Equal(t, 3, q.len())

	readyCalls := 0
	for {
		fn, ok := q.popOrMarkReady(func() { readyCalls++ })
		if !ok {
			break
		}
		fn()
	}
	assert.Equal(t, []int{0, 1, 2}, order)
	assert.Equal(t, 1, readyCalls)
	assert.False(t, q.pushUnlessReady(func() {}), "a ready queue refuses new actions")
	assert.Zero(t, q.len())

	q.clear()
	assert.True(t, q.pushUnlessReady(func() {}))
	assert.Equal(t, 1, q.len())
}

func TestActionQueue_ConcurrentPushDuringDrainRunsOnce(t *testing.T) {
	for iter := 0; iter < 200; iter++ {
		var q actionQueue
		var ran atomic.Int64
		const pushers, each = 4, 50

		var wg sync.WaitGroup
		for g := 0; g < pushers; g++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := 0; i < each; i++ {
					fn := func() { ran.Add(1) }
					if !q.pushUnlessReady(fn) {
						fn()
					}
				}
			}()
		}
		for {
			fn, ok := q.popOrMarkReady(nil)
			if !ok {
				break
			}
			fn()
		}
		wg.Wait()
		require.Equal(t, int64(pushers*each), ran.Load())
		require.Zero(t, q.len())
	}
}

func TestExecuteWhenClientIsReady_AfterDrainRunsImmediately(t *testing.T) {
	f := newFixture(t)
	s := New(f.env, newFakePlayer(), nil)
	f.handshake(t, s)

	ran := false
	assert.Equal(t, RanImmediately, s.ExecuteWhenClientIsReady(func() { ran = true }))
	assert.True(t, ran)
	assert.Zero(t, s.PendingActions())
}
