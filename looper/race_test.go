package looper

import (
	"sync"
	"testing"
	"time"

	"github.com/joeycumines/abe/job"
)

// TestLooper_ConcurrentEnqueueAndStatsDataRace runs a Looper's dispatch
// loop while many goroutines concurrently bind and run jobs (a mix of
// immediate and delayed) and another goroutine concurrently reads Stats and
// State, none holding any lock of their own. Correctness here is "go test
// -race reports nothing"; there's no single-threaded invariant to assert
// beyond the loop not deadlocking.
// RUN WITH: go test -race -run TestLooper_ConcurrentEnqueueAndStatsDataRace
func TestLooper_ConcurrentEnqueueAndStatsDataRace(t *testing.T) {
	l := New(WithName("race-enqueue"), WithThreadType(ThreadNormal))
	l.Start()
	defer l.RequestExit(true)

	const producers = 8
	const perProducer = 500
	var wg sync.WaitGroup

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				j := job.New(func() {})
				j.Bind(l)
				if (p+i)%2 == 0 {
					j.Run(0)
				} else {
					j.Run(1000)
				}
			}
		}(p)
	}

	stop := make(chan struct{})
	readerDone := make(chan struct{})
	go func() {
		defer close(readerDone)
		for {
			select {
			case <-stop:
				return
			default:
			}
			_ = l.Stats()
			_ = l.State()
		}
	}()

	wg.Wait()
	time.Sleep(50 * time.Millisecond)
	close(stop)
	<-readerDone
}

// TestLooper_ConcurrentRemoveExistsDataRace concurrently enqueues,
// removes, and checks existence of a shared set of Jobs from multiple
// goroutines while the loop runs, and a MainLooper-style external reader
// polls Stats in a tight loop throughout.
// RUN WITH: go test -race -run TestLooper_ConcurrentRemoveExistsDataRace
func TestLooper_ConcurrentRemoveExistsDataRace(t *testing.T) {
	l := New(WithName("race-remove"), WithThreadType(ThreadNormal))
	l.Start()
	defer l.RequestExit(true)

	const n = 200
	jobs := make([]*job.Job, n)
	for i := range jobs {
		jobs[i] = job.New(func() {})
		jobs[i].Bind(l)
	}

	var wg sync.WaitGroup
	for i := range jobs {
		j := jobs[i]
		wg.Add(3)
		go func() {
			defer wg.Done()
			j.Run(5_000)
		}()
		go func() {
			defer wg.Done()
			_ = l.Exists(j)
		}()
		go func() {
			defer wg.Done()
			l.RemoveJob(j)
		}()
	}

	stop := make(chan struct{})
	statsDone := make(chan struct{})
	go func() {
		defer close(statsDone)
		for {
			select {
			case <-stop:
				return
			default:
				_ = l.Stats()
			}
		}
	}()

	wg.Wait()
	close(stop)
	<-statsDone
}
