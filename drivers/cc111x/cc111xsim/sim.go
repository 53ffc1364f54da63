//go:build !rp2040 && !rp2350

// Package cc111xsim is a bit-level simulated CC111x target for host tests
// and dry runs. It hangs off the change hooks of platform.FakePin lines and
// answers the debug protocol edge by edge, so the driver under test runs its
// real clocking code.
//
// Supported: the debug entry sequence, every command in the CC111x table, and
// the 8051 subset the driver ships (MOV DPTR, CLR A, MOV A, MOVC, INC DPTR,
// MOV direct). Timing is not modelled.
package cc111xsim

import (
	"ccdump-go/drivers/cc111x"
	"ccdump-go/platform"
)

type phase uint8

const (
	phaseCmd phase = iota
	phaseBusy
	phaseResp
)

// Target is the simulated chip. Exported fields before Connect script its
// behaviour; the observation fields are filled while it runs.
type Target struct {
	// ChipIDs is returned by GET_CHIP_ID, one entry per debug entry; the
	// last one repeats. Empty means ChipID.
	ChipIDs []uint16
	ChipID  uint16

	Flash            []byte
	Locked           bool
	OscUnstableReads int  // READ_STATUS replies with the oscillator bit clear
	IgnoreHalt       bool // HALT has no effect
	// FlakyReads corrupts the next n MOVC reads of an address (bit 0 flipped).
	FlakyReads map[uint16]int
	// NoisyReads addresses return a different value on every read.
	NoisyReads map[uint16]bool
	// BusyRounds is how many 8-clock rounds DD stays high before each
	// response when the host polls for ready.
	BusyRounds int
	Config     byte
	PC         uint16

	// OnEntryEdge runs on each DC rising edge while RESET_N is low.
	OnEntryEdge func(n int)

	Entries     int   // successful debug entries
	EntryEdges  []int // DC rising edges seen during each reset pulse
	Commands    []byte
	PointerSets []uint16
	CodeReads   []uint16
	Erased      bool

	dc, dd, rst *platform.FakePin

	inReset bool
	edges   int
	debug   bool
	halted  bool

	ph      phase
	shift   byte
	nbits   int
	cur     cc111x.Command
	haveCmd bool
	args    [3]byte
	nargs   int
	resp    [2]byte
	nresp   int
	ri      int
	busy    int

	a     byte
	dptr  uint16
	sfr   [256]byte
	noise byte
}

// New returns a target holding flash with the default CC1110 identity.
func New(flash []byte) *Target {
	return &Target{ChipID: 0x89A3, Flash: flash}
}

// Connect attaches the target to the host lines.
func (t *Target) Connect(dc, dd, rst *platform.FakePin) {
	t.dc, t.dd, t.rst = dc, dd, rst
	rst.OnChange(t.onReset)
	dc.OnChange(t.onClock)
}

// Link builds a driver link on fresh fake pins already wired to the target.
func (t *Target) Link() (*cc111x.Link, error) {
	f := &platform.HostPinFactory{}
	dc, dd, rst := f.Fake(2), f.Fake(3), f.Fake(4)
	l, err := cc111x.NewLink(dc, dd, rst)
	if err != nil {
		return nil, err
	}
	t.Connect(dc, dd, rst)
	return l, nil
}

// Pointer is the simulated DPTR.
func (t *Target) Pointer() uint16 { return t.dptr }

// InDebug reports whether the last reset pulse entered debug mode.
func (t *Target) InDebug() bool { return t.debug }

// Halted reports the simulated CPU state.
func (t *Target) Halted() bool { return t.halted }

func (t *Target) onReset(level bool) {
	if !level {
		t.inReset, t.edges, t.debug = true, 0, false
		t.dd.Float()
		t.resetParser()
		return
	}
	if !t.inReset {
		return
	}
	t.inReset = false
	t.EntryEdges = append(t.EntryEdges, t.edges)
	if t.edges == 2 {
		t.debug = true
		t.halted = false
		t.Entries++
	}
}

func (t *Target) resetParser() {
	t.ph, t.shift, t.nbits, t.haveCmd, t.nargs = phaseCmd, 0, 0, false, 0
}

func (t *Target) onClock(rising bool) {
	if t.inReset {
		if rising {
			t.edges++
			if t.OnEntryEdge != nil {
				t.OnEntryEdge(t.edges)
			}
		}
		return
	}
	if !t.debug {
		return
	}
	switch t.ph {
	case phaseCmd:
		if !rising {
			t.shiftIn(t.dd.Level())
		}
	case phaseBusy:
		if !rising {
			t.nbits++
			if t.nbits == 8 {
				t.nbits = 0
				t.busy--
				if t.busy <= 0 {
					t.dd.Drive(false)
					t.ph = phaseResp
				}
			}
		}
	case phaseResp:
		if rising {
			t.dd.Drive(t.resp[t.ri]>>uint(7-t.nbits)&1 == 1)
			return
		}
		t.nbits++
		if t.nbits == 8 {
			t.nbits = 0
			t.ri++
			if t.ri == t.nresp {
				t.dd.Float()
				t.resetParser()
			}
		}
	}
}

func (t *Target) shiftIn(bit bool) {
	t.shift <<= 1
	if bit {
		t.shift |= 1
	}
	t.nbits++
	if t.nbits < 8 {
		return
	}
	b := t.shift
	t.shift, t.nbits = 0, 0

	if !t.haveCmd {
		cmd, ok := cc111x.LookupOpcode(b)
		if !ok {
			return
		}
		t.Commands = append(t.Commands, b)
		t.cur, t.haveCmd, t.nargs = cmd, true, 0
	} else {
		t.args[t.nargs] = b
		t.nargs++
	}
	if t.nargs < int(t.cur.Req) {
		return
	}
	t.execute()
	t.haveCmd = false
	if t.nresp == 0 {
		return
	}
	t.ri = 0
	if t.BusyRounds > 0 {
		t.busy = t.BusyRounds
		t.dd.Drive(true)
		t.ph = phaseBusy
		return
	}
	t.dd.Drive(false)
	t.ph = phaseResp
}

func (t *Target) status() byte {
	var s byte
	if t.halted {
		s |= byte(cc111x.StatusCPUHalted)
	}
	if t.Locked {
		s |= byte(cc111x.StatusDebugLocked)
	}
	if t.OscUnstableReads > 0 {
		t.OscUnstableReads--
	} else {
		s |= byte(cc111x.StatusOscillatorStable)
	}
	if t.Erased {
		s |= byte(cc111x.StatusChipEraseDone)
	}
	return s
}

func (t *Target) reply(b ...byte) { t.nresp = copy(t.resp[:], b) }

func (t *Target) execute() {
	switch t.cur.Opcode {
	case cc111x.CmdReadStatus.Opcode:
		t.reply(t.status())
	case cc111x.CmdGetChipID.Opcode:
		id := t.currentID()
		t.reply(byte(id>>8), byte(id))
	case cc111x.CmdHalt.Opcode:
		t.reply(t.status())
		if !t.IgnoreHalt {
			t.halted = true
		}
	case cc111x.CmdResume.Opcode:
		t.reply(t.status())
		t.halted = false
	case cc111x.CmdDebugInstr1.Opcode, cc111x.CmdDebugInstr2.Opcode, cc111x.CmdDebugInstr3.Opcode:
		t.run(t.args[:t.nargs])
		t.reply(t.a)
	case cc111x.CmdWrConfig.Opcode:
		t.Config = t.args[0]
		t.reply(t.status())
	case cc111x.CmdRdConfig.Opcode:
		t.reply(t.Config)
	case cc111x.CmdGetPC.Opcode:
		t.reply(byte(t.PC>>8), byte(t.PC))
	case cc111x.CmdChipErase.Opcode:
		t.Erased, t.Locked = true, false
		for i := range t.Flash {
			t.Flash[i] = 0xFF
		}
		t.reply(t.status())
	default:
		t.nresp = 0
	}
}

func (t *Target) currentID() uint16 {
	if len(t.ChipIDs) == 0 {
		return t.ChipID
	}
	i := t.Entries - 1
	if i >= len(t.ChipIDs) {
		i = len(t.ChipIDs) - 1
	}
	return t.ChipIDs[i]
}

func (t *Target) run(in []byte) {
	switch in[0] {
	case 0x90:
		if len(in) == 3 {
			t.dptr = uint16(in[1])<<8 | uint16(in[2])
			t.PointerSets = append(t.PointerSets, t.dptr)
		}
	case 0xE4:
		t.a = 0
	case 0x74:
		if len(in) == 2 {
			t.a = in[1]
		}
	case 0x93:
		addr := t.dptr + uint16(t.a)
		t.CodeReads = append(t.CodeReads, addr)
		t.a = t.code(addr)
	case 0xA3:
		t.dptr++
	case 0x75:
		if len(in) == 3 {
			t.sfr[in[1]] = in[2]
		}
	}
}

func (t *Target) code(addr uint16) byte {
	if t.Locked {
		return 0x00
	}
	v := byte(0xFF)
	if int(addr) < len(t.Flash) {
		v = t.Flash[addr]
	}
	if n := t.FlakyReads[addr]; n > 0 {
		t.FlakyReads[addr] = n - 1
		v ^= 0x01
	}
	if t.NoisyReads[addr] {
		t.noise++
		v ^= t.noise
	}
	return v
}

// SFR returns a direct register written through MOV direct,#imm.
func (t *Target) SFR(addr byte) byte { return t.sfr[addr] }
