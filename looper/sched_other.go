//go:build !linux

package looper

// threadLocalSupported is false outside Linux: gettid(2) has no portable
// equivalent exposed by golang.org/x/sys/unix, so Looper.Current is
// unavailable there rather than risk colliding on a fabricated id.
const threadLocalSupported = false

// currentOSThreadID, applyThreadName and applySchedPolicy are no-ops
// outside Linux: PR_SET_NAME and SCHED_FIFO/SCHED_RR have no portable
// equivalent.
func currentOSThreadID() int { return 0 }

func applyThreadName(name string) {}

func applySchedPolicy(typ ThreadType) {}
