package looper

import (
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/abe/job"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLooper(t *testing.T) *Looper {
	t.Helper()
	l := New(WithName("test-"+t.Name()), WithThreadType(ThreadNormal))
	l.Start()
	t.Cleanup(func() {
		l.RequestExit(true)
	})
	return l
}

func TestLooper_ImmediateOrder(t *testing.T) {
	l := newTestLooper(t)

	var mu sync.Mutex
	var order []int
	const n = 10
	jobs := make([]*job.Job, n)
	for i := 0; i < n; i++ {
		i := i
		jobs[i] = job.New(func() {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
		})
		jobs[i].Bind(l)
	}
	for _, j := range jobs {
		j.Run(0)
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == n
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	for i, v := range order {
		assert.Equal(t, i, v)
	}
}

// TestLooper_TimedOrder posts J1 with 50ms delay, then J2 with 10ms, then
// J3 with 10ms. Expected order: J2, J3, J1 (equal deadlines broken by
// insertion order).
func TestLooper_TimedOrder(t *testing.T) {
	l := newTestLooper(t)

	var mu sync.Mutex
	var order []string
	record := func(name string) func() {
		return func() {
			mu.Lock()
			order = append(order, name)
			mu.Unlock()
		}
	}
	j1 := job.New(record("J1"))
	j2 := job.New(record("J2"))
	j3 := job.New(record("J3"))
	j1.Bind(l)
	j2.Bind(l)
	j3.Bind(l)

	j1.Run(50_000)
	j2.Run(10_000)
	j3.Run(10_000)

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(order) == 3
	}, 2*time.Second, time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"J2", "J3", "J1"}, order)
}

func TestLooper_CancelBeforeFire(t *testing.T) {
	l := newTestLooper(t)

	ran := false
	j := job.New(func() { ran = true })
	j.Bind(l)
	j.Run(100_000) // 100ms out, plenty of time to cancel
	j.Cancel()

	time.Sleep(150 * time.Millisecond)
	assert.False(t, ran)
	assert.EqualValues(t, 0, j.Ticks())
}

func TestLooper_CancelDuringExecutionDoesNotStopIt(t *testing.T) {
	l := newTestLooper(t)

	started := make(chan struct{})
	release := make(chan struct{})
	j := job.New(func() {
		close(started)
		<-release
	})
	j.Bind(l)
	j.Run(0)

	<-started
	j.Cancel() // no-op: already executing
	close(release)

	require.Eventually(t, func() bool {
		return j.Ticks() == 1
	}, 2*time.Second, time.Millisecond)
}

func TestDispatchQueue_IsolatedFlush(t *testing.T) {
	l := newTestLooper(t)
	a := NewDispatchQueue(l)
	b := NewDispatchQueue(l)
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	ranB := make(chan struct{}, 1)
	jA := job.New(func() {})
	jB := job.New(func() { ranB <- struct{}{} })
	jA.Bind(a)
	jB.Bind(b)

	jA.Run(50_000)
	jB.Run(50_000)

	a.Flush()

	select {
	case <-ranB:
	case <-time.After(2 * time.Second):
		t.Fatal("flushing queue A dropped queue B's job")
	}
	assert.EqualValues(t, 0, jA.Ticks())
}

func TestDispatchQueue_RemoveRestrictedToOwnQueue(t *testing.T) {
	l := newTestLooper(t)
	a := NewDispatchQueue(l)
	b := NewDispatchQueue(l)
	t.Cleanup(func() { _ = a.Close(); _ = b.Close() })

	jShared := job.New(func() {})
	jShared.Bind(a)
	jShared.Run(50_000)

	// b never enqueued jShared, so its RemoveJob must not touch it.
	b.RemoveJob(jShared)
	assert.True(t, a.Exists(jShared))
}

func TestLooper_RequestExitStopsLoop(t *testing.T) {
	l := New(WithName("exit-test"), WithThreadType(ThreadNormal))
	l.Start()

	require.Eventually(t, func() bool {
		return l.State() == StateRunning
	}, 2*time.Second, time.Millisecond)

	l.RequestExit(true)
	assert.Equal(t, StateTerminated, l.State())
	l.Join()
}

// TestLooper_JoinFromOwnJobDoesNotDeadlock covers a self-shutdown pattern:
// a Job running on a Looper requests exit and then joins that same
// Looper from within its own callback. Since the Job executes inline on
// the Looper's backing Thread, a naive Join would wait on itself forever.
func TestLooper_JoinFromOwnJobDoesNotDeadlock(t *testing.T) {
	l := New(WithName("self-join-looper"), WithThreadType(ThreadNormal))
	l.Start()

	done := make(chan struct{})
	j := job.New(func() {
		l.RequestExit(false)
		l.Join()
		close(done)
	})
	j.Bind(l)
	j.Run(0)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Looper.Join from within its own job deadlocked")
	}
}
