package looper

import (
	"testing"
	"time"

	"github.com/joeycumines/abe/job"
	"github.com/stretchr/testify/assert"
)

func TestDispatchQueue_SyncWaitsForExecution(t *testing.T) {
	l := newTestLooper(t)
	dq := NewDispatchQueue(l)
	t.Cleanup(func() { _ = dq.Close() })

	ran := false
	j := job.New(func() { ran = true })
	j.Bind(dq)

	ok := dq.Sync(j, 0, 2*time.Second)
	assert.True(t, ok)
	assert.True(t, ran)
	assert.EqualValues(t, 1, j.Ticks())
}

func TestDispatchQueue_SyncTimesOut(t *testing.T) {
	l := newTestLooper(t)
	dq := NewDispatchQueue(l)
	t.Cleanup(func() { _ = dq.Close() })

	j := job.New(func() {})
	j.Bind(dq)

	ok := dq.Sync(j, 500_000, 10*time.Millisecond) // 500ms delay, 10ms deadline
	assert.False(t, ok)
}
