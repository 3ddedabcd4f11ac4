// Package chrono implements ABE's cooperative concurrency primitives:
// Mutex, Condition, and monotonic/epoch Time helpers.
package chrono

import (
	"sync"

	"github.com/joeycumines/abe/refs"
)

// Fatal is called when Mutex or Condition misuse is detected in a mode
// that cannot report an error (an Unlock by an owner that does not hold a
// Plain or Recursive Mutex, or a Condition used with a second Mutex).
// Overridable for tests; defaults to refs.Fatal.
var Fatal = refs.Fatal

// Mode selects a Mutex's reentrancy behavior, fixed at construction.
type Mode int

const (
	// Plain mirrors a bare pthread_mutex_t: locking twice from the same
	// owner deadlocks, exactly as it would with an OS mutex.
	Plain Mode = iota
	// Recursive allows the same owner to lock repeatedly; the mutex is
	// released only once Unlock has been called an equal number of times.
	Recursive
	// ErrorChecking rejects self-recursion and foreign unlock attempts
	// with an error instead of deadlocking or corrupting state.
	ErrorChecking
)

// ErrWouldDeadlock is returned by Lock in ErrorChecking mode when the
// calling owner already holds the mutex.
var ErrWouldDeadlock = errorString("chrono: lock would deadlock (already held by this owner)")

// ErrNotOwner is returned by Unlock in ErrorChecking mode when the caller
// does not hold the mutex.
var ErrNotOwner = errorString("chrono: unlock by non-owner")

type errorString string

func (e errorString) Error() string { return string(e) }

// Mutex is a condition-variable-guarded lock supporting the three modes a
// Looper's dispatch loop and its callers need: a plain OS-style mutex, a
// recursive mutex for reentrant call chains, and an error-checking mutex
// for debug builds that want misuse reported rather than hung.
//
// Ownership is identified by an explicit owner token rather than the
// calling goroutine's identity: Go goroutines have no stable, exposed
// identifier, so recursion and ownership checks here are keyed on
// whatever int64 the caller supplies (typically a worker or thread id).
// A Mutex used purely for mutual exclusion, with no recursion or
// ownership checks desired, should pass a constant owner of 0 and use
// Plain mode, whose Lock never inspects the token (Unlock still checks
// that it matches the locking owner).
type Mutex struct {
	mode   Mode
	mu     sync.Mutex
	cond   *sync.Cond
	locked bool
	owner  int64
	depth  int
}

// NewMutex constructs a Mutex in the given mode.
func NewMutex(mode Mode) *Mutex {
	m := &Mutex{mode: mode}
	m.cond = sync.NewCond(&m.mu)
	return m
}

// Lock acquires the mutex on behalf of owner, blocking until available.
// In ErrorChecking mode, a self-recursive lock returns ErrWouldDeadlock
// instead of blocking forever. Plain and Recursive modes never return an
// error; Plain mode self-recursion blocks, matching a bare OS mutex.
func (m *Mutex) Lock(owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for m.locked {
		if m.mode != Plain && m.owner == owner {
			if m.mode == ErrorChecking {
				return ErrWouldDeadlock
			}
			m.depth++
			return nil
		}
		m.cond.Wait()
	}
	m.locked = true
	m.owner = owner
	m.depth = 1
	return nil
}

// TryLock attempts to acquire the mutex without blocking, reporting
// success. Recursive mode counts a self-recursive TryLock as success.
func (m *Mutex) TryLock(owner int64) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.locked {
		m.locked = true
		m.owner = owner
		m.depth = 1
		return true
	}
	if m.mode == Recursive && m.owner == owner {
		m.depth++
		return true
	}
	return false
}

// Unlock releases one level of ownership held by owner. In ErrorChecking
// mode an unlock by a non-owner returns ErrNotOwner; in Plain and
// Recursive modes the same misuse is fatal, matching undefined behavior
// on a bare OS mutex.
func (m *Mutex) Unlock(owner int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.unlockLocked(owner); err != nil {
		return err
	}
	m.cond.Signal()
	return nil
}

// unlockLocked runs Unlock's bookkeeping assuming m.mu is already held by
// the caller. It does not signal m.cond: goroutines blocked in Lock wait
// on it, so each caller wakes one of them itself once the bookkeeping is
// done (Unlock below, and Condition.Wait before it parks).
func (m *Mutex) unlockLocked(owner int64) error {
	if !m.locked || m.owner != owner {
		if m.mode == ErrorChecking {
			return ErrNotOwner
		}
		Fatal("chrono: unlock by non-owner %d (held by %d, locked=%v)", owner, m.owner, m.locked)
		return nil
	}
	m.depth--
	if m.depth > 0 {
		return nil
	}
	m.locked = false
	m.owner = 0
	return nil
}
