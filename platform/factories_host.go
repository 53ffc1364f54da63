//go:build !rp2040 && !rp2350

package platform

import (
	"sync"

	"ccdump-go/x/timex"
)

// FakePin implements Pin for host-side tests and simulation.
//
// While configured as output, Get returns the host level. While configured
// as input, Get returns the externally driven level, which falls back to the
// line's idle level (high, as the target carries its own pull-up) when
// nothing drives it.
type FakePin struct {
	mu       sync.Mutex
	number   int
	modeOut  bool
	level    bool
	external bool
	driven   bool
	onChange func(level bool)
}

func (p *FakePin) ConfigureInput(_ Pull) error {
	p.mu.Lock()
	p.modeOut = false
	p.mu.Unlock()
	return nil
}

func (p *FakePin) ConfigureOutput(initial bool) error {
	p.mu.Lock()
	p.modeOut = true
	p.mu.Unlock()
	p.Set(initial)
	return nil
}

// Set changes the host level and fires the change hook on a real transition.
// The hook runs without the pin lock held so it may call Drive.
func (p *FakePin) Set(level bool) {
	p.mu.Lock()
	old := p.level
	p.level = level
	hook := p.onChange
	p.mu.Unlock()
	if hook != nil && old != level {
		hook(level)
	}
}

func (p *FakePin) Get() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.modeOut {
		return p.level
	}
	if p.driven {
		return p.external
	}
	return true
}

func (p *FakePin) Number() int { return p.number }

// Level returns the host-side level regardless of direction.
func (p *FakePin) Level() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.level
}

// IsOutput reports whether the host currently drives the pin.
func (p *FakePin) IsOutput() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.modeOut
}

// Drive sets the level seen by the host while the pin is an input.
func (p *FakePin) Drive(level bool) {
	p.mu.Lock()
	p.external, p.driven = level, true
	p.mu.Unlock()
}

// Float stops driving the pin from the far side.
func (p *FakePin) Float() {
	p.mu.Lock()
	p.driven = false
	p.mu.Unlock()
}

// OnChange installs a hook called on every host level transition.
func (p *FakePin) OnChange(fn func(level bool)) {
	p.mu.Lock()
	p.onChange = fn
	p.mu.Unlock()
}

// HostPinFactory returns stable *FakePin instances per number.
type HostPinFactory struct {
	mu   sync.Mutex
	pins map[int]*FakePin
}

func (f *HostPinFactory) ByNumber(n int) (Pin, bool) {
	if n < 0 {
		return nil, false
	}
	return f.Fake(n), true
}

// Fake exposes the underlying *FakePin, creating it on first use.
func (f *HostPinFactory) Fake(n int) *FakePin {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.pins == nil {
		f.pins = make(map[int]*FakePin)
	}
	p, ok := f.pins[n]
	if !ok {
		p = &FakePin{number: n}
		f.pins[n] = p
	}
	return p
}

// DefaultPinFactory provides a host GPIO factory.
func DefaultPinFactory() PinFactory { return &HostPinFactory{} }

// DefaultSleeper spins on the host monotonic clock.
func DefaultSleeper() timex.Sleeper { return timex.Spin }

// CriticalSection runs fn directly; a host process cannot mask preemption.
func CriticalSection(fn func()) { fn() }
