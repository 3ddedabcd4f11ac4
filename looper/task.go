package looper

import "github.com/joeycumines/abe/job"

// task pairs a Job reference with an absolute monotonic-microsecond
// deadline (the enqueue time, for an immediate task) and the identity of the
// DispatchQueue that enqueued it, if any (0 means enqueued directly on a
// Looper).
type task struct {
	job      *job.Job
	deadline int64
	delayUs  int64
	queueID  uint64
	seq      uint64
}

// byDeadline sorts tasks by ascending deadline, ties broken by insertion
// order (seq) for a stable overall order.
type byDeadline []*task

func (s byDeadline) Len() int      { return len(s) }
func (s byDeadline) Swap(i, j int) { s[i], s[j] = s[j], s[i] }
func (s byDeadline) Less(i, j int) bool {
	if s[i].deadline != s[j].deadline {
		return s[i].deadline < s[j].deadline
	}
	return s[i].seq < s[j].seq
}
