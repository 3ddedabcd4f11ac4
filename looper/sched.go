package looper

// schedPolicy is a portable stand-in for the OS scheduling policies a
// ThreadType maps onto, decoupled from any particular platform's
// syscall constants so the mapping itself is testable everywhere.
type schedPolicy int

const (
	policyOther schedPolicy = iota // CFS / SCHED_OTHER, priority expressed as a nice value
	policyFIFO                     // SCHED_FIFO
	policyRR                       // SCHED_RR
)

// schedParamsFor maps ThreadType's eight levels onto two real-time bands
// plus the OS default: levels below ThreadSystem stay on the default
// policy with an interpolated nice value; System/Kernel request
// SCHED_FIFO; Realtime/Highest request SCHED_RR. Each band's priority is
// linearly interpolated across its member levels.
func schedParamsFor(typ ThreadType) (schedPolicy, int32) {
	switch {
	case typ <= ThreadForeground:
		return policyOther, int32(19 - int(typ)*13) // Lowest=19 .. Foreground=-20
	case typ <= ThreadKernel:
		if typ == ThreadKernel {
			return policyFIFO, 50
		}
		return policyFIFO, 1
	default:
		if typ == ThreadHighest {
			return policyRR, 99
		}
		return policyRR, 50
	}
}
