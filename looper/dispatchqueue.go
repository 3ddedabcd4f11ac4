package looper

import (
	"context"
	"time"

	"github.com/joeycumines/abe/job"
	"github.com/joeycumines/microbatch"
)

// submission is a DispatchQueue's pending batch item: the Job plus the
// delay it was submitted with.
type submission struct {
	job     *job.Job
	delayUs int64
}

// DispatchQueue is a filtered view over a shared Looper: every task it
// enqueues is tagged with this queue's identity, and remove/exists/flush
// restrict themselves to tasks carrying that tag, so two DispatchQueues
// sharing one Looper never interfere with each other.
//
// Zero-delay submissions are coalesced into small batches before being
// handed to the Looper, trading a little latency for fewer mutex
// acquisitions under bursty load; delayed submissions bypass the batcher
// entirely, since batching buys nothing for work that isn't due yet.
type DispatchQueue struct {
	id      uint64
	looper  *Looper
	batcher *microbatch.Batcher[submission]
}

// NewDispatchQueue constructs a DispatchQueue backed by l.
func NewDispatchQueue(l *Looper) *DispatchQueue {
	dq := &DispatchQueue{id: l.newQueueID(), looper: l}
	dq.batcher = microbatch.NewBatcher[submission](
		&microbatch.BatcherConfig{MaxSize: 32, FlushInterval: time.Millisecond},
		dq.flushBatch,
	)
	return dq
}

func (dq *DispatchQueue) flushBatch(_ context.Context, batch []submission) error {
	for _, s := range batch {
		dq.looper.enqueue(s.job, s.delayUs, dq.id)
	}
	return nil
}

// EnqueueJob implements job.Enqueuer.
func (dq *DispatchQueue) EnqueueJob(j *job.Job, delayUs int64) {
	if delayUs > 0 {
		dq.looper.enqueue(j, delayUs, dq.id)
		return
	}
	// Submit only blocks long enough to hand the job to the batcher's
	// internal goroutine, not for the batch itself to flush.
	_, _ = dq.batcher.Submit(context.Background(), submission{job: j, delayUs: delayUs})
}

// RemoveJob implements job.Enqueuer, restricted to tasks this queue
// enqueued.
func (dq *DispatchQueue) RemoveJob(j *job.Job) {
	dq.looper.removeMatching(j, dq.id, true)
}

// Exists reports whether j has a pending task that this queue enqueued.
func (dq *DispatchQueue) Exists(j *job.Job) bool {
	return dq.looper.existsMatching(j, dq.id, true)
}

// Flush drops every pending task this queue enqueued, leaving other
// DispatchQueues sharing the same Looper untouched.
func (dq *DispatchQueue) Flush() {
	dq.looper.flushQueue(dq.id)
}

// Close shuts down the queue's internal batcher, flushing any pending
// batch to the Looper before returning.
func (dq *DispatchQueue) Close() error {
	return dq.batcher.Shutdown(context.Background())
}

// Sync enqueues j with the given delay and blocks the caller until j's
// Ticks counter advances past its value at the time Sync was called, or
// until deadline elapses (0 meaning wait indefinitely). It reports
// whether j actually ran.
func (dq *DispatchQueue) Sync(j *job.Job, delayUs int64, deadline time.Duration) bool {
	before := j.Ticks()
	dq.EnqueueJob(j, delayUs)

	var timeout <-chan time.Time
	if deadline > 0 {
		timer := time.NewTimer(deadline)
		defer timer.Stop()
		timeout = timer.C
	}
	poll := time.NewTicker(time.Millisecond)
	defer poll.Stop()
	for {
		if j.Ticks() != before {
			return true
		}
		select {
		case <-poll.C:
		case <-timeout:
			ran := j.Ticks() != before
			if !ran {
				dq.looper.logger.Warning().Err(ErrSyncTimeout).Log("sync deadline elapsed")
			}
			return ran
		}
	}
}
