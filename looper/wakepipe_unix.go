//go:build unix

package looper

import "golang.org/x/sys/unix"

func createWakePipe() (r, w int, err error) {
	var fds [2]int
	if err := unix.Pipe(fds[:]); err != nil {
		return -1, -1, err
	}
	return fds[0], fds[1], nil
}

func wake(w int) {
	_, _ = unix.Write(w, []byte{0})
}

func drainWakePipe(r int) {
	buf := make([]byte, 64)
	for {
		n, err := unix.Read(r, buf)
		if n <= 0 || err != nil {
			return
		}
	}
}
