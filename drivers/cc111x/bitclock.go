package cc111x

import (
	"time"

	"ccdump-go/x/timex"
)

// BitClock moves single bits over the link. Data changes while DC is low,
// is presented at the rising edge and is latched by the receiver at the
// falling edge. Bytes travel MSB first.
//
// Nothing at this layer can fail; corruption only shows up as implausible
// bytes further up.
type BitClock struct {
	link       *Link
	sleep      timex.Sleeper
	half       time.Duration
	turnaround time.Duration
}

func (c *BitClock) wait() { c.sleep.Sleep(c.half) }

// WriteBit clocks one bit out. DD must already be an output.
func (c *BitClock) WriteBit(v bool) {
	l := c.link
	l.DC.Set(false)
	l.DD.Set(v)
	c.wait()
	l.DC.Set(true)
	c.wait()
	l.DC.Set(false)
	c.wait()
}

// ReadBit clocks one bit in. DD must already be an input and settled.
func (c *BitClock) ReadBit() bool {
	l := c.link
	l.DC.Set(true)
	c.wait()
	v := l.DD.Get()
	l.DC.Set(false)
	c.wait()
	return v
}

// SendByte takes DD as output and sends b.
func (c *BitClock) SendByte(b byte) {
	c.link.driveData()
	for i := 7; i >= 0; i-- {
		c.WriteBit(b>>uint(i)&1 == 1)
	}
}

// RecvByte releases DD, waits for the target to start driving, then
// samples eight bits.
func (c *BitClock) RecvByte() byte {
	c.settleInput()
	var v byte
	for i := 7; i >= 0; i-- {
		if c.ReadBit() {
			v |= 1 << uint(i)
		}
	}
	return v
}

// Edge emits one bare clock pulse (rising then falling) from idle-low.
func (c *BitClock) Edge() {
	l := c.link
	l.DC.Set(true)
	c.wait()
	l.DC.Set(false)
	c.wait()
}

func (c *BitClock) settleInput() {
	c.link.releaseData()
	c.sleep.Sleep(c.turnaround)
}
