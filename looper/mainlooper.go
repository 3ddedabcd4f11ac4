package looper

import (
	"os"
	"os/signal"
	"runtime"
	"sync"
	"syscall"
)

var (
	mainLooperOnce sync.Once
	mainLooperInst *Looper
)

// MainLooper returns the process-wide main-thread Looper, constructing
// it and installing its SIGINT handler on first call. There is at most
// one per process.
func MainLooper() *Looper {
	mainLooperOnce.Do(func() {
		mainLooperInst = newLooper("main", ThreadForeground, true)
		mainLooperInst.state.Store(int32(StateReady))
		installSIGINTHandler(mainLooperInst)
	})
	return mainLooperInst
}

// Loop runs the main Looper's dispatch loop on the calling goroutine,
// which must be the process's actual main goroutine: Loop locks it to
// the current OS thread for the call's duration, and blocks until
// RequestExit is observed (via SIGINT or Terminate).
func (l *Looper) Loop() {
	if !l.isMain {
		fatal(WrongThread, "looper: Loop called on a Looper that is not the MainLooper")
		return
	}
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	l.state.Store(int32(StateReadyToRun))
	l.run()
}

// Terminate requests the main Looper stop. Safe to call from any thread,
// including a goroutine spawned by a signal handler.
func (l *Looper) Terminate(wait bool) {
	l.RequestExit(wait)
}

// installSIGINTHandler wires SIGINT to RequestExit. A self-pipe is
// created and written to alongside the condvar broadcast that actually
// wakes the dispatch loop: the broadcast is sufficient on its own, but
// the raw wake fd is the one piece of direct unix syscall plumbing this
// port's termination path keeps, for any future embedder that polls the
// Looper's readiness from outside Go's scheduler (e.g. via cgo).
func installSIGINTHandler(l *Looper) {
	wakeR, wakeW, err := createWakePipe()
	if err != nil {
		log.Warning().Err(err).Log("looper: failed to create wake pipe, SIGINT still works via the condvar")
		wakeR, wakeW = -1, -1
	}

	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT)
	go func() {
		for range ch {
			if wakeW >= 0 {
				wake(wakeW)
			}
			l.RequestExit(false)
		}
	}()
	if wakeR >= 0 {
		go drainWakePipe(wakeR)
	}
}
