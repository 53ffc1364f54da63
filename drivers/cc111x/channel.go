package cc111x

// Channel frames whole request/response exchanges over a BitClock. All
// request bytes go out before the first response bit is read. It never
// retries and never judges the bytes it moves.
type Channel struct {
	clk        *BitClock
	readyPolls int
	resp       [2]byte

	lockedSeen bool
	entry      uint32 // bumped by every reset of the target
}

// Exchange sends cmd and its request bytes and returns cmd.Resp response
// bytes. The returned slice aliases an internal buffer and is only valid
// until the next call. len(req) must equal cmd.Req.
func (c *Channel) Exchange(cmd Command, req []byte) []byte {
	if len(req) != int(cmd.Req) {
		panic("cc111x: " + cmd.Name + ": wrong request length")
	}
	c.clk.SendByte(cmd.Opcode)
	for _, b := range req {
		c.clk.SendByte(b)
	}
	if cmd.Resp == 0 {
		return c.resp[:0]
	}
	c.awaitReady()
	for i := 0; i < int(cmd.Resp); i++ {
		c.resp[i] = c.clk.RecvByte()
	}
	return c.resp[:cmd.Resp]
}

// awaitReady optionally polls for the target pulling DD low before the
// response. While DD stays high the target is busy and eight dummy clocks
// are issued before looking again. Running out of polls is not an error;
// the read simply proceeds as in delay-only mode.
func (c *Channel) awaitReady() {
	if c.readyPolls <= 0 {
		return
	}
	c.clk.settleInput()
	for i := 0; i < c.readyPolls && c.clk.link.DD.Get(); i++ {
		for j := 0; j < 8; j++ {
			c.clk.ReadBit()
		}
	}
}

func (c *Channel) observe(s Status) Status {
	if s.Locked() {
		c.lockedSeen = true
	}
	return s
}

// LockedSeen reports whether any status read since the last debug entry had
// the debug-lock bit set.
func (c *Channel) LockedSeen() bool { return c.lockedSeen }

// forget drops status observations; a target reset invalidates them and
// every Clearance issued before it.
func (c *Channel) forget() {
	c.lockedSeen = false
	c.entry++
}

func (c *Channel) ReadStatus() Status {
	return c.observe(Status(c.Exchange(CmdReadStatus, nil)[0]))
}

func (c *Channel) ChipID() ChipID {
	r := c.Exchange(CmdGetChipID, nil)
	return ChipID(uint16(r[0])<<8 | uint16(r[1]))
}

// Halt stops the CPU. The reply is the status byte at the time of the
// command, which does not yet prove the halt took effect.
func (c *Channel) Halt() Status {
	return c.observe(Status(c.Exchange(CmdHalt, nil)[0]))
}

func (c *Channel) Resume() Status {
	return c.observe(Status(c.Exchange(CmdResume, nil)[0]))
}

func (c *Channel) ReadConfig() byte {
	return c.Exchange(CmdRdConfig, nil)[0]
}

func (c *Channel) WriteConfig(cfg byte) byte {
	var req [1]byte
	req[0] = cfg
	return c.Exchange(CmdWrConfig, req[:])[0]
}

func (c *Channel) PC() uint16 {
	r := c.Exchange(CmdGetPC, nil)
	return uint16(r[0])<<8 | uint16(r[1])
}
