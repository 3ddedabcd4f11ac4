package lfqueue

import (
	"sync"
	"testing"
)

// TestPushNPopN_ConcurrentWithLen stresses PushN/PopN from many concurrent
// producers and consumers while Len is read concurrently from yet another
// goroutine, to surface any unsynchronized access under -race.
// RUN WITH: go test -race -run TestPushNPopN_ConcurrentWithLen
func TestPushNPopN_ConcurrentWithLen(t *testing.T) {
	q := New[int]()
	const producers = 8
	const perProducer = 5000
	const consumers = 4

	var wg sync.WaitGroup

	lenDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-lenDone:
				return
			default:
				_ = q.Len()
			}
		}
	}()

	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.PushN(i)
			}
		}()
	}

	var mu sync.Mutex
	popped := 0
	stop := make(chan struct{})
	var cwg sync.WaitGroup
	for c := 0; c < consumers; c++ {
		cwg.Add(1)
		go func() {
			defer cwg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				if _, ok := q.PopN(); ok {
					mu.Lock()
					popped++
					mu.Unlock()
				}
			}
		}()
	}

	wg.Wait()
	for {
		mu.Lock()
		n := popped
		mu.Unlock()
		if n >= producers*perProducer {
			break
		}
	}
	close(stop)
	cwg.Wait()
	close(lenDone)

	if popped != producers*perProducer {
		t.Fatalf("popped %d, want %d", popped, producers*perProducer)
	}
	if l := q.Len(); l != 0 {
		t.Fatalf("Len() = %d after draining every push", l)
	}
}

// TestPush1Pop1_ConcurrentSPSCWithLen runs the SPSC fast path's producer
// and consumer on separate goroutines (its documented contract) while a
// third goroutine polls Len, exercising the SPSC path the same way the
// MPMC path is exercised above.
// RUN WITH: go test -race -run TestPush1Pop1_ConcurrentSPSCWithLen
func TestPush1Pop1_ConcurrentSPSCWithLen(t *testing.T) {
	q := New[int]()
	const n = 50000

	lenDone := make(chan struct{})
	go func() {
		for {
			select {
			case <-lenDone:
				return
			default:
				_ = q.Len()
			}
		}
	}()

	produceDone := make(chan struct{})
	go func() {
		defer close(produceDone)
		for i := 0; i < n; i++ {
			q.Push1(i)
		}
	}()

	got := make([]int, 0, n)
	for len(got) < n {
		if v, ok := q.Pop1(); ok {
			got = append(got, v)
		}
	}
	<-produceDone
	close(lenDone)

	for i, v := range got {
		if v != i {
			t.Fatalf("index %d: got %d, want %d", i, v, i)
		}
	}
}
