// Package job implements ABE's Job: a unit of work that can run inline, on
// a Looper, or on a DispatchQueue.
package job

import (
	"sync"
	"sync/atomic"
)

// Enqueuer is satisfied by anything a Job can be bound to: looper.Looper
// and looper.DispatchQueue. It is defined here, rather than in looper, so
// that job has no dependency on looper — looper depends on job instead.
type Enqueuer interface {
	EnqueueJob(j *Job, delayUs int64)
	RemoveJob(j *Job)
}

// Job wraps a callback and a tick counter. It owns at most one Enqueuer
// reference at a time: binding to a new target replaces, rather than
// adds to, the previous one.
type Job struct {
	onJob func()

	mu     sync.Mutex
	target Enqueuer

	ticks atomic.Uint64
}

// New constructs a Job that invokes onJob on every execution.
func New(onJob func()) *Job {
	return &Job{onJob: onJob}
}

// Bind attaches target (a Looper or DispatchQueue) as this Job's enqueue
// destination. A nil target makes Run execute inline.
func (j *Job) Bind(target Enqueuer) {
	j.mu.Lock()
	j.target = target
	j.mu.Unlock()
}

// Run executes the Job: if bound to a Looper or DispatchQueue, it is
// enqueued there with the given delay (microseconds; 0 means immediate).
// Otherwise it executes synchronously on the calling goroutine.
func (j *Job) Run(delayUs int64) {
	j.mu.Lock()
	target := j.target
	j.mu.Unlock()
	if target != nil {
		target.EnqueueJob(j, delayUs)
		return
	}
	j.Execute()
}

// Cancel removes this Job from its bound Looper/DispatchQueue, if any. A
// copy already dispatched for execution is not interrupted.
func (j *Job) Cancel() {
	j.mu.Lock()
	target := j.target
	j.mu.Unlock()
	if target != nil {
		target.RemoveJob(j)
	}
}

// Execute runs onJob and increments Ticks. Called by a Looper's dispatch
// loop, or directly by Run when the Job is unbound.
func (j *Job) Execute() {
	j.onJob()
	j.ticks.Add(1)
}

// Ticks returns the number of completed executions.
func (j *Job) Ticks() uint64 { return j.ticks.Load() }
