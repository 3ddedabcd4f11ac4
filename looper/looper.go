// Package looper implements ABE's cooperative scheduling core: Job,
// Looper, DispatchQueue, Thread and MainLooper.
package looper

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/joeycumines/abe/chrono"
	"github.com/joeycumines/abe/job"
	"github.com/joeycumines/abe/lfqueue"
	catrate "github.com/joeycumines/go-catrate"
	"github.com/joeycumines/izerolog"
	"github.com/joeycumines/logiface"
)

// State is a Looper's lifecycle stage.
type State int32

const (
	StateNew State = iota
	StateReady
	StateReadyToRun
	StateRunning
	StateTerminating
	StateTerminated
)

// ownerToken is the constant identity Looper uses with its own Mutex.
// The mutex runs in Plain mode, where Lock ignores ownership and Unlock
// only checks that the token matches the locking one; every call site
// passes this same value, so any constant works.
const ownerToken int64 = 0

// Stats is a snapshot of a Looper's execution counters: jobs executed,
// wakeups, and cumulative sleep/exec time.
type Stats struct {
	JobsExecuted uint64
	Wakeups      uint64
	SleepNanos   int64
	ExecNanos    int64
}

type statsCounters struct {
	jobsExecuted atomic.Uint64
	wakeups      atomic.Uint64
	sleepNanos   atomic.Int64
	execNanos    atomic.Int64
}

func (s *statsCounters) snapshot() Stats {
	return Stats{
		JobsExecuted: s.jobsExecuted.Load(),
		Wakeups:      s.wakeups.Load(),
		SleepNanos:   s.sleepNanos.Load(),
		ExecNanos:    s.execNanos.Load(),
	}
}

// Looper is a single-threaded event loop: its backing Thread is the sole
// consumer of both an immediate MPMC queue and a mutex-guarded sorted
// timed list, while any number of producers may enqueue concurrently.
type Looper struct {
	name   string
	isMain bool
	typ    ThreadType
	thread *Thread

	mu   *chrono.Mutex
	cond *chrono.Condition

	immediate *lfqueue.Queue[*task]
	timed     []*task
	nextSeq   uint64

	terminated  bool
	requestExit bool
	state       atomic.Int32

	contextsMu sync.RWMutex
	contexts   map[uint32]any

	stats        statsCounters
	statsLimiter *catrate.Limiter
	jitter       time.Duration
	logger       *logiface.Logger[*izerolog.Event]

	nextQueueID atomic.Uint64
}

var (
	_ job.Enqueuer = (*Looper)(nil)
	_ job.Enqueuer = (*DispatchQueue)(nil)
)

// Option configures a Looper at construction.
type Option func(*looperConfig)

type looperConfig struct {
	name   string
	typ    ThreadType
	logger *logiface.Logger[*izerolog.Event]
	jitter time.Duration
}

// WithName sets the Looper's diagnostic name, used in log lines and
// Thread comm names. Defaults to "looper".
func WithName(name string) Option { return func(c *looperConfig) { c.name = name } }

// WithThreadType sets the backing Thread's scheduling priority. Defaults
// to ThreadNormal.
func WithThreadType(typ ThreadType) Option { return func(c *looperConfig) { c.typ = typ } }

// WithLogger overrides the package default logger for this Looper's
// profile lines.
func WithLogger(l *logiface.Logger[*izerolog.Event]) Option {
	return func(c *looperConfig) { c.logger = l }
}

// WithStrictTimedJitter overrides how far ahead of a timed task's
// deadline the dispatch loop will already fire it rather than sleep the
// remainder. Defaults to 1ms; pass 0 for exact-deadline dispatch.
func WithStrictTimedJitter(d time.Duration) Option {
	return func(c *looperConfig) { c.jitter = d }
}

func resolveLooperOptions(opts []Option) looperConfig {
	cfg := looperConfig{name: "looper", typ: ThreadNormal, jitter: time.Millisecond}
	for _, o := range opts {
		o(&cfg)
	}
	return cfg
}

// New constructs a Looper and starts its backing Thread, blocked until
// Start is called.
func New(opts ...Option) *Looper {
	cfg := resolveLooperOptions(opts)
	l := newLooper(cfg.name, cfg.typ, false)
	l.jitter = cfg.jitter
	if cfg.logger != nil {
		l.logger = cfg.logger
	} else {
		l.logger = log
	}
	l.thread = NewThread(cfg.name, cfg.typ, l.run)
	l.state.Store(int32(StateReady))
	return l
}

func newLooper(name string, typ ThreadType, isMain bool) *Looper {
	return &Looper{
		name:      name,
		isMain:    isMain,
		typ:       typ,
		mu:        chrono.NewMutex(chrono.Plain),
		cond:      chrono.NewCondition(),
		immediate: lfqueue.New[*task](),
		jitter:    time.Millisecond,
		logger:    log,
		// one log line per name per second, independent of how many
		// jobs actually ran in that window
		statsLimiter: catrate.NewLimiter(map[time.Duration]int{time.Second: 1}),
	}
}

// Name returns the Looper's diagnostic name.
func (l *Looper) Name() string { return l.name }

// State returns the Looper's current lifecycle stage.
func (l *Looper) State() State { return State(l.state.Load()) }

// Stats returns a snapshot of the Looper's execution counters.
func (l *Looper) Stats() Stats { return l.stats.snapshot() }

// Start transitions a non-main Looper from Ready to ReadyToRun and
// releases its backing Thread to begin dispatching. Calling Start more
// than once, or on a MainLooper, is a no-op.
func (l *Looper) Start() {
	if l.isMain || l.thread == nil {
		return
	}
	if !l.state.CompareAndSwap(int32(StateReady), int32(StateReadyToRun)) {
		return
	}
	l.thread.Run()
}

// EnqueueJob implements job.Enqueuer: j is posted with the given delay in
// microseconds (0 meaning immediate).
func (l *Looper) EnqueueJob(j *job.Job, delayUs int64) {
	l.enqueue(j, delayUs, 0)
}

// RemoveJob implements job.Enqueuer: every pending task referencing j,
// regardless of which DispatchQueue (if any) posted it, is dropped.
func (l *Looper) RemoveJob(j *job.Job) {
	l.removeMatching(j, 0, false)
}

// Exists reports whether j has a pending (not yet executed) task on this
// Looper.
func (l *Looper) Exists(j *job.Job) bool {
	return l.existsMatching(j, 0, false)
}

// Flush drops every pending task, both immediate and timed, across all
// DispatchQueues.
func (l *Looper) Flush() {
	l.mu.Lock(ownerToken)
	for {
		if _, ok := l.immediate.PopN(); !ok {
			break
		}
	}
	l.timed = nil
	l.mu.Unlock(ownerToken)
	l.cond.Broadcast()
}

// RequestExit asks the dispatch loop to stop once it next finds nothing
// immediately ready to run — in-flight and already-due work still
// completes, but tasks still waiting on a future deadline are abandoned.
// If wait is true, RequestExit blocks until the loop has actually
// terminated.
func (l *Looper) RequestExit(wait bool) {
	l.mu.Lock(ownerToken)
	l.requestExit = true
	l.state.Store(int32(StateTerminating))
	l.mu.Unlock(ownerToken)
	l.cond.Broadcast()
	if !wait {
		return
	}
	l.mu.Lock(ownerToken)
	for !l.terminated {
		l.cond.Wait(l.mu, ownerToken)
	}
	l.mu.Unlock(ownerToken)
}

// Join blocks until the backing Thread's dispatch loop has returned. A
// MainLooper has no backing Thread and Join returns immediately.
func (l *Looper) Join() {
	if l.thread != nil {
		l.thread.Join()
	}
}

// BindContext attaches an opaque value at id, overwriting any previous
// binding. Used by callers that need to stash user data reachable from
// code running on this Looper without plumbing it through every Job.
func (l *Looper) BindContext(id uint32, v any) {
	l.contextsMu.Lock()
	if l.contexts == nil {
		l.contexts = make(map[uint32]any)
	}
	l.contexts[id] = v
	l.contextsMu.Unlock()
}

// Context retrieves a value bound with BindContext.
func (l *Looper) Context(id uint32) (any, bool) {
	l.contextsMu.RLock()
	defer l.contextsMu.RUnlock()
	v, ok := l.contexts[id]
	return v, ok
}

// UnbindContext removes a binding made with BindContext.
func (l *Looper) UnbindContext(id uint32) {
	l.contextsMu.Lock()
	delete(l.contexts, id)
	l.contextsMu.Unlock()
}

// newQueueID allocates a fresh queue identity for a DispatchQueue
// backed by this Looper.
func (l *Looper) newQueueID() uint64 {
	return l.nextQueueID.Add(1)
}

// enqueue implements the three-step enqueue algorithm: drop if the loop
// is winding down, push zero-delay tasks straight onto the MPMC queue,
// otherwise insertion-sort into the timed list.
func (l *Looper) enqueue(j *job.Job, delayUs int64, queueID uint64) {
	l.mu.Lock(ownerToken)
	if l.terminated || l.requestExit {
		l.mu.Unlock(ownerToken)
		l.logger.Warning().Err(ErrLooperTerminated).Str("looper", l.name).Log("enqueue dropped")
		return
	}
	l.mu.Unlock(ownerToken)

	now := chrono.MonotonicMicros()
	t := &task{job: j, delayUs: delayUs, queueID: queueID}
	if delayUs <= 0 {
		t.deadline = now
		l.immediate.PushN(t)
		l.cond.Signal()
		return
	}

	t.deadline = now + delayUs
	l.mu.Lock(ownerToken)
	l.nextSeq++
	t.seq = l.nextSeq
	idx := sort.Search(len(l.timed), func(i int) bool {
		if l.timed[i].deadline != t.deadline {
			return l.timed[i].deadline > t.deadline
		}
		return l.timed[i].seq > t.seq
	})
	l.timed = append(l.timed, nil)
	copy(l.timed[idx+1:], l.timed[idx:])
	l.timed[idx] = t
	becameHead := idx == 0
	l.mu.Unlock(ownerToken)
	if becameHead {
		l.cond.Signal()
	}
}

// drainImmediateLocked moves every task currently sitting on the MPMC
// queue into the timed list, tagging each with the deadline it was
// pushed at (so it sorts ahead of or alongside already-due timed tasks)
// and a sequence number for stable ordering. Must be called with l.mu
// held. Reports whether anything was moved.
func (l *Looper) drainImmediateLocked() bool {
	drained := false
	for {
		t, ok := l.immediate.PopN()
		if !ok {
			break
		}
		l.nextSeq++
		t.seq = l.nextSeq
		l.timed = append(l.timed, t)
		drained = true
	}
	if drained {
		sort.Stable(byDeadline(l.timed))
	}
	return drained
}

// popLocked implements the dispatch loop's dequeue algorithm. Must be called
// with l.mu held; returns either a ready task, or nil with nextUs set to
// the microseconds until the timed list's head is due (-1 meaning "wait
// indefinitely", used when the list is empty and the MPMC queue is dry).
func (l *Looper) popLocked() (t *task, nextUs int64) {
	for {
		now := chrono.MonotonicMicros()
		if len(l.timed) > 0 && l.timed[0].deadline <= now+l.jitter.Microseconds() {
			t = l.timed[0]
			l.timed = l.timed[1:]
			return t, 0
		}

		next := int64(0)
		haveNext := false
		if len(l.timed) > 0 {
			next = l.timed[0].deadline - now
			if next < 0 {
				next = 0
			}
			haveNext = true
		}

		if !l.drainImmediateLocked() {
			if haveNext {
				return nil, next
			}
			return nil, -1
		}
		// drained new tasks into the timed list; loop to re-check the head
	}
}

// run is the Looper's dispatch loop: it is passed to NewThread as the
// closure that thread executes, or called directly by MainLooper.Loop on
// the process's main thread.
func (l *Looper) run() {
	setCurrent(l)
	defer clearCurrent()

	l.state.Store(int32(StateRunning))
	for l.dispatchOnce() {
	}

	l.mu.Lock(ownerToken)
	l.terminated = true
	l.state.Store(int32(StateTerminated))
	l.mu.Unlock(ownerToken)
	l.cond.Broadcast()
}

// dispatchOnce runs a single iteration of the dispatch loop: pop and
// execute a ready task, or sleep until one is due / requestExit is
// observed. It returns false when the loop should stop.
func (l *Looper) dispatchOnce() bool {
	l.mu.Lock(ownerToken)
	t, next := l.popLocked()
	if t != nil {
		l.mu.Unlock(ownerToken)
		l.executeTask(t)
		return true
	}

	// Nothing ready right now. Terminating stops here rather than
	// sleeping for a future timed task or an indefinite wakeup: a
	// requestExit is a request to finish in-flight work and stop, not to
	// drain everything still scheduled.
	if l.requestExit {
		l.mu.Unlock(ownerToken)
		return false
	}

	start := chrono.MonotonicNanos()
	if next >= 0 {
		l.cond.WaitRelative(l.mu, ownerToken, time.Duration(next)*time.Microsecond)
	} else {
		l.cond.Wait(l.mu, ownerToken)
	}
	l.stats.sleepNanos.Add(chrono.MonotonicNanos() - start)
	l.stats.wakeups.Add(1)
	l.mu.Unlock(ownerToken)
	return true
}

func (l *Looper) executeTask(t *task) {
	start := chrono.MonotonicNanos()
	t.job.Execute()
	l.stats.execNanos.Add(chrono.MonotonicNanos() - start)
	l.stats.jobsExecuted.Add(1)

	if _, ok := l.statsLimiter.Allow(l.name); ok {
		s := l.stats.snapshot()
		l.logger.Info().
			Str("looper", l.name).
			Uint64("jobs_executed", s.JobsExecuted).
			Uint64("wakeups", s.Wakeups).
			Int64("sleep_ns", s.SleepNanos).
			Int64("exec_ns", s.ExecNanos).
			Log("looper profile")
	}
}

// removeMatching drops every task referencing j from both the MPMC queue
// (via drain) and the timed list. When restrictQueue is true, only tasks
// tagged with queueID are dropped; otherwise every match is dropped
// regardless of origin.
func (l *Looper) removeMatching(j *job.Job, queueID uint64, restrictQueue bool) {
	l.mu.Lock(ownerToken)
	l.drainImmediateLocked()
	headBefore := headDeadline(l.timed)
	out := l.timed[:0]
	for _, t := range l.timed {
		if t.job == j && (!restrictQueue || t.queueID == queueID) {
			continue
		}
		out = append(out, t)
	}
	l.timed = out
	headAfter := headDeadline(l.timed)
	l.mu.Unlock(ownerToken)
	if headBefore != headAfter {
		l.cond.Signal()
	}
}

// existsMatching reports whether a task referencing j is still pending,
// restricted to queueID when restrictQueue is true.
func (l *Looper) existsMatching(j *job.Job, queueID uint64, restrictQueue bool) bool {
	l.mu.Lock(ownerToken)
	defer l.mu.Unlock(ownerToken)
	l.drainImmediateLocked()
	for _, t := range l.timed {
		if t.job == j && (!restrictQueue || t.queueID == queueID) {
			return true
		}
	}
	return false
}

// flushQueue drops every pending task tagged with queueID, leaving tasks
// belonging to other DispatchQueues (or posted directly to the Looper)
// untouched.
func (l *Looper) flushQueue(queueID uint64) {
	l.mu.Lock(ownerToken)
	l.drainImmediateLocked()
	out := l.timed[:0]
	for _, t := range l.timed {
		if t.queueID != queueID {
			out = append(out, t)
		}
	}
	l.timed = out
	l.mu.Unlock(ownerToken)
}

func headDeadline(timed []*task) (d int64) {
	if len(timed) == 0 {
		return -1
	}
	return timed[0].deadline
}

// currentLoopers maps an OS thread id (as returned by currentOSThreadID)
// to the Looper dispatching on it, letting Current find "this thread's"
// Looper without the caller threading one through explicitly. Only
// populated when threadLocalSupported.
var currentLoopers sync.Map // map[int64]*Looper

func setCurrent(l *Looper) {
	if !threadLocalSupported {
		return
	}
	currentLoopers.Store(int64(currentOSThreadID()), l)
}

func clearCurrent() {
	if !threadLocalSupported {
		return
	}
	currentLoopers.Delete(int64(currentOSThreadID()))
}

// Current returns the Looper dispatching on the calling OS thread, if
// any. It returns (nil, false) from any thread that isn't running a
// Looper's dispatch loop, and unconditionally on platforms where
// threadLocalSupported is false.
func Current() (*Looper, bool) {
	if !threadLocalSupported {
		return nil, false
	}
	v, ok := currentLoopers.Load(int64(currentOSThreadID()))
	if !ok {
		return nil, false
	}
	return v.(*Looper), true
}
