package debounce

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestTriggerRunsOnlyLast(t *testing.T) {
	d := New(30 * time.Millisecond)
	var last atomic.Int32
	var runs atomic.Int32

	for i := 1; i <= 5; i++ {
		v := int32(i)
		d.Trigger(func(uint64) {
			runs.Add(1)
			last.Store(v)
		})
		time.Sleep(5 * time.Millisecond)
	}

	assert.Eventually(t, func() bool { return runs.Load() == 1 }, time.Second, 5*time.Millisecond)
	time.Sleep(50 * time.Millisecond)
	assert.EqualValues(t, 1, runs.Load())
	assert.EqualValues(t, 5, last.Load())
}

func TestLatest(t *testing.T) {
	d := New(time.Hour)
	first := d.Trigger(func(uint64) {})
	second := d.Trigger(func(uint64) {})

	assert.False(t, d.Latest(first))
	assert.True(t, d.Latest(second))

	d.Stop()
	assert.False(t, d.Latest(second))
}

func TestStopCancelsPendingRun(t *testing.T) {
	d := New(20 * time.Millisecond)
	var ran atomic.Bool
	d.Trigger(func(uint64) { ran.Store(true) })
	d.Stop()

	time.Sleep(50 * time.Millisecond)
	assert.False(t, ran.Load())
}
