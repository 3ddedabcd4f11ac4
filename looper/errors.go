package looper

import (
	"errors"
	"fmt"
)

// Sentinel errors for conditions the core reports as a boolean/optional
// result rather than aborting. None of these are ever returned directly
// from the bool-returning APIs below; they exist so logging and any
// future error-returning wrapper has a stable value to compare against
// with errors.Is.
var (
	// ErrLooperTerminated is logged when enqueue drops a task because the
	// loop has already terminated or is terminating.
	ErrLooperTerminated = errors.New("looper: enqueue dropped, loop terminated")
	// ErrSyncTimeout is logged when DispatchQueue.Sync's deadline elapses
	// before the job ran.
	ErrSyncTimeout = errors.New("looper: sync wait timed out")
	// ErrWaitTimedOut corresponds to chrono.Condition.WaitRelative timing
	// out rather than being woken.
	ErrWaitTimedOut = errors.New("looper: waitRelative timed out")
	// ErrQueueEmpty corresponds to a pop against an empty lock-free queue.
	ErrQueueEmpty = errors.New("looper: pop on empty queue")
	// ErrJobNotFound corresponds to a RemoveJob/Exists call that found no
	// matching task.
	ErrJobNotFound = errors.New("looper: job not found")
)

// FatalKind classifies a FatalError, letting OnFatal (or a test overriding
// it) branch on what kind of invariant broke without parsing the message.
type FatalKind int

const (
	GuardCorruption FatalKind = iota
	DoubleDestroy
	DoubleRetain
	WrongThread
	AllocatorExhausted
)

func (k FatalKind) String() string {
	switch k {
	case GuardCorruption:
		return "GuardCorruption"
	case DoubleDestroy:
		return "DoubleDestroy"
	case DoubleRetain:
		return "DoubleRetain"
	case WrongThread:
		return "WrongThread"
	case AllocatorExhausted:
		return "AllocatorExhausted"
	default:
		return "Unknown"
	}
}

// FatalError is the value passed to OnFatal for every programming-error or
// resource-exhaustion condition the looper package detects itself (as
// opposed to ones detected by refs/sharedbuffer/abuffer, which use their
// own package-level Fatal funcs).
type FatalError struct {
	Kind FatalKind
	Msg  string
}

func (e *FatalError) Error() string { return e.Msg }

// OnFatal handles a FatalError: by default it logs at error level and then
// panics, so a broken invariant always aborts the process rather than
// continuing in an undefined state. Tests override it to assert on the
// fatal path without crashing the test binary.
var OnFatal = func(e *FatalError) {
	log.Error().Str("kind", e.Kind.String()).Log(e.Msg)
	panic(e)
}

func fatal(kind FatalKind, format string, args ...any) {
	OnFatal(&FatalError{Kind: kind, Msg: fmt.Sprintf(format, args...)})
}
