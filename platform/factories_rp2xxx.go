//go:build rp2040 || rp2350

package platform

import (
	"machine"
	"runtime/interrupt"

	"tinygo.org/x/drivers/delay"

	"ccdump-go/x/timex"
)

// DefaultPinFactory maps logical numbers directly to machine.Pin(n). This
// matches Pico/Pico 2 GP numbering.
func DefaultPinFactory() PinFactory { return rp2PinFactory{} }

// DefaultSleeper busy-waits with cycle-counted delays; time.Sleep would hand
// the core to the scheduler and blow the microsecond budget.
func DefaultSleeper() timex.Sleeper { return timex.SleepFunc(delay.Sleep) }

// CriticalSection runs fn with interrupts masked on this core.
func CriticalSection(fn func()) {
	state := interrupt.Disable()
	fn()
	interrupt.Restore(state)
}

type rp2PinFactory struct{}

func (rp2PinFactory) ByNumber(n int) (Pin, bool) {
	// Constrain to RP2 user GPIOs (GP0..GP28).
	if n < 0 || n > 28 {
		return nil, false
	}
	return &rp2Pin{p: machine.Pin(n), n: n}, true
}

type rp2Pin struct {
	p machine.Pin
	n int
}

func (r *rp2Pin) ConfigureInput(pull Pull) error {
	var mode machine.PinMode
	switch pull {
	case PullUp:
		mode = machine.PinInputPullup
	case PullDown:
		mode = machine.PinInputPulldown
	default:
		mode = machine.PinInput
	}
	r.p.Configure(machine.PinConfig{Mode: mode})
	return nil
}

func (r *rp2Pin) ConfigureOutput(initial bool) error {
	r.p.Configure(machine.PinConfig{Mode: machine.PinOutput})
	r.p.Set(initial)
	return nil
}

func (r *rp2Pin) Set(level bool) { r.p.Set(level) }
func (r *rp2Pin) Get() bool      { return r.p.Get() }
func (r *rp2Pin) Number() int    { return r.n }
