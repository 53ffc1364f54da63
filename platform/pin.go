// Package platform provides GPIO pins and timing primitives for the debug
// link. Host builds get in-memory fake pins and a spinning sleeper; RP2
// builds map logical numbers to machine.Pin and busy-wait with
// tinygo.org/x/drivers/delay.
package platform

type Pull uint8

const (
	PullNone Pull = iota
	PullUp
	PullDown
)

// Pin is one GPIO line. Direction is always explicit: callers configure a
// pin as input or output before using it.
type Pin interface {
	Number() int
	ConfigureInput(pull Pull) error
	ConfigureOutput(initial bool) error
	Set(bool)
	Get() bool
}

// PinFactory resolves logical pin numbers for the current board.
type PinFactory interface {
	ByNumber(n int) (Pin, bool)
}
