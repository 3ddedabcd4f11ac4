//go:build linux

package looper

import (
	"unsafe"

	"golang.org/x/sys/unix"
)

// threadLocalSupported gates Looper's Current() thread-local registry:
// it depends on gettid(2) being a stable per-OS-thread key, which only
// golang.org/x/sys/unix exposes on Linux.
const threadLocalSupported = true

func currentOSThreadID() int {
	return unix.Gettid()
}

// applyThreadName sets the calling OS thread's comm name via PR_SET_NAME.
// Best-effort: failure is not fatal, since sandboxes and some container
// runtimes deny it.
func applyThreadName(name string) {
	if name == "" {
		return
	}
	buf := make([]byte, len(name)+1)
	copy(buf, name)
	_ = unix.Prctl(unix.PR_SET_NAME, uintptr(unsafe.Pointer(&buf[0])), 0, 0, 0)
}

// applySchedPolicy applies schedParamsFor's mapping via the real Linux
// scheduling syscalls. Real-time policies require CAP_SYS_NICE; failures
// are swallowed since this is best-effort the way nice(2)/renice are.
func applySchedPolicy(typ ThreadType) {
	policy, prio := schedParamsFor(typ)
	switch policy {
	case policyOther:
		_ = unix.Setpriority(unix.PRIO_PROCESS, 0, int(prio))
	case policyFIFO:
		_ = unix.SchedSetscheduler(0, unix.SCHED_FIFO, &unix.SchedParam{Priority: prio})
	case policyRR:
		_ = unix.SchedSetscheduler(0, unix.SCHED_RR, &unix.SchedParam{Priority: prio})
	}
}
