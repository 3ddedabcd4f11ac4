package looper

import (
	"bytes"
	"runtime"
	"strconv"
	"sync"
	"sync/atomic"
)

// ThreadType is one of the eight scheduling levels a Thread may request.
type ThreadType int

const (
	ThreadLowest ThreadType = iota
	ThreadBackground
	ThreadNormal
	ThreadForeground
	ThreadSystem
	ThreadKernel
	ThreadRealtime
	ThreadHighest
)

// ThreadState is a Thread's lifecycle stage.
type ThreadState int32

const (
	ThreadNew ThreadState = iota
	// ThreadBlocked is "kThreadIntReady": the backing goroutine has
	// started and locked its OS thread, but is waiting for Run.
	ThreadBlocked
	ThreadRunning
	ThreadTerminated
)

const maxThreadNameLen = 15

// Thread is a named OS thread (via runtime.LockOSThread) that runs a
// single closure exactly once. It starts immediately on construction but
// blocks until Run is called, applying its name and scheduling policy
// first.
//
// The source's JobDispatcher trick (a Thread's payload being itself a
// Job) is a C++ artifact of needing a single virtual-dispatch surface;
// here the Looper's dispatch loop is just a free function passed in
// directly, since Go closures make that indirection unnecessary.
type Thread struct {
	name  string
	typ   ThreadType
	fn    func()
	state atomic.Int32

	ready     chan struct{}
	readyOnce sync.Once
	done      chan struct{}

	tid atomic.Int64 // OS thread id, valid once state >= ThreadRunning

	// runner is the id of the goroutine currently executing fn, or 0 when
	// fn isn't running. Join compares against it to detect a job calling
	// back into its own Thread.
	runner atomic.Uint64
}

// goroutineID parses the header line runtime.Stack produces ("goroutine
// N [running]:") to recover the calling goroutine's id. Go has no public
// API for this; every package that needs a goroutine-local key resorts to
// this same trick.
func goroutineID() uint64 {
	var buf [64]byte
	n := runtime.Stack(buf[:], false)
	b := bytes.TrimPrefix(buf[:n], []byte("goroutine "))
	if i := bytes.IndexByte(b, ' '); i >= 0 {
		b = b[:i]
	}
	id, _ := strconv.ParseUint(string(b), 10, 64)
	return id
}

// NewThread constructs and immediately starts the backing goroutine,
// which blocks until Run is called. name is truncated to 15 bytes (the
// Linux TASK_COMM_LEN-derived limit applied by applyThreadName).
func NewThread(name string, typ ThreadType, fn func()) *Thread {
	if len(name) > maxThreadNameLen {
		name = name[:maxThreadNameLen]
	}
	t := &Thread{
		name:  name,
		typ:   typ,
		fn:    fn,
		ready: make(chan struct{}),
		done:  make(chan struct{}),
	}
	go t.main()
	return t
}

func (t *Thread) main() {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	t.state.Store(int32(ThreadBlocked))
	<-t.ready
	t.tid.Store(int64(currentOSThreadID()))
	applyThreadName(t.name)
	applySchedPolicy(t.typ)
	t.state.Store(int32(ThreadRunning))
	t.runner.Store(goroutineID())
	t.fn()
	t.runner.Store(0)
	t.state.Store(int32(ThreadTerminated))
	close(t.done)
}

// Run releases the thread from kThreadIntReady, letting it apply its
// name/scheduling policy and execute its Job. Idempotent.
func (t *Thread) Run() {
	t.readyOnce.Do(func() { close(t.ready) })
}

// Join blocks until the thread's Job has completed. Calling Join from
// within the thread's own closure (a job on a Looper joining its own
// backing Thread) would otherwise deadlock waiting on itself; that case
// is detected and substituted with an immediate no-op, matching a detach.
func (t *Thread) Join() {
	if r := t.runner.Load(); r != 0 && r == goroutineID() {
		return
	}
	<-t.done
}

// State returns the thread's current lifecycle stage.
func (t *Thread) State() ThreadState { return ThreadState(t.state.Load()) }

// OSThreadID returns the underlying OS thread id, valid once State() is
// at least ThreadRunning; 0 otherwise.
func (t *Thread) OSThreadID() int64 { return t.tid.Load() }
