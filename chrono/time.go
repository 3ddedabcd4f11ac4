package chrono

import "time"

// processStart anchors MonotonicNanos. time.Since(processStart) always
// subtracts two monotonic readings when processStart itself carries one
// (which time.Now() always does), so the result is immune to wall-clock
// adjustments (NTP steps, manual clock changes) exactly as CLOCK_MONOTONIC
// is on platforms that have one. See the "Monotonic Clocks" section of the
// time package's documentation.
var processStart = time.Now()

// MonotonicNanos returns nanoseconds elapsed since process start, suitable
// for scheduling deadlines and durations. Not comparable across processes.
func MonotonicNanos() int64 { return int64(time.Since(processStart)) }

// MonotonicMicros is MonotonicNanos at microsecond resolution, the unit
// Task deadlines are expressed in.
func MonotonicMicros() int64 { return MonotonicNanos() / int64(time.Microsecond) }

// EpochNanos returns nanoseconds since the Unix epoch, suitable for
// logging and display timestamps. Subject to wall-clock adjustments.
func EpochNanos() int64 { return time.Now().UnixNano() }
