//go:build !unix

package looper

// createWakePipe, wake and drainWakePipe are no-ops outside the unix
// build tag set: SIGINT-driven termination still works via RequestExit's
// condvar broadcast, which is platform-independent.
func createWakePipe() (r, w int, err error) { return -1, -1, nil }

func wake(w int) {}

func drainWakePipe(r int) {}
