package timex

import "time"

// Sleeper blocks the calling goroutine for a short, bounded duration.
// Protocol code takes a Sleeper so it can run against a virtual clock.
type Sleeper interface {
	Sleep(d time.Duration)
}

// SleepFunc adapts a plain function to Sleeper.
type SleepFunc func(time.Duration)

func (f SleepFunc) Sleep(d time.Duration) { f(d) }

// Spin busy-waits on the monotonic clock. The scheduler sleep granularity
// on hosts is far coarser than the microsecond delays bit-banging needs.
var Spin Sleeper = SleepFunc(func(d time.Duration) {
	if d <= 0 {
		return
	}
	start := time.Now()
	for time.Since(start) < d {
	}
})

// Virtual is a Sleeper that only accumulates requested time. It is not safe
// for concurrent use.
type Virtual struct {
	Elapsed time.Duration
	Calls   int
}

func (v *Virtual) Sleep(d time.Duration) {
	if d > 0 {
		v.Elapsed += d
	}
	v.Calls++
}
