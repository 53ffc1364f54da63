package cc111x

import "ccdump-go/errcode"

// ErrPointerBusy is returned when a pointer session is opened while another
// is still running.
var ErrPointerBusy = &errcode.E{C: errcode.Busy, Op: "pointer", Msg: "session already open"}

// Exec synthesises memory access by executing 8051 instructions on the
// halted target through DEBUG_INSTR_n. Each call returns the accumulator.
//
// DPTR lives only on the target. Exec mirrors the value it last caused the
// target to hold; bypassing Exec (raw Channel instruction commands) breaks
// that mirror silently.
type Exec struct {
	ch   *Channel
	ibuf [3]byte
	dptr uint16
	sess PointerSession
}

// Run executes a 1-3 byte instruction and returns A.
func (x *Exec) Run(instr []byte) byte {
	var cmd Command
	switch len(instr) {
	case 1:
		cmd = CmdDebugInstr1
	case 2:
		cmd = CmdDebugInstr2
	case 3:
		cmd = CmdDebugInstr3
	default:
		panic("cc111x: instruction must be 1-3 bytes")
	}
	return x.ch.Exchange(cmd, instr)[0]
}

func (x *Exec) run1(b0 byte) byte {
	x.ibuf[0] = b0
	return x.Run(x.ibuf[:1])
}

func (x *Exec) run2(b0, b1 byte) byte {
	x.ibuf[0], x.ibuf[1] = b0, b1
	return x.Run(x.ibuf[:2])
}

func (x *Exec) run3(b0, b1, b2 byte) byte {
	x.ibuf[0], x.ibuf[1], x.ibuf[2] = b0, b1, b2
	return x.Run(x.ibuf[:3])
}

// SetPointer loads DPTR.
func (x *Exec) SetPointer(addr uint16) {
	x.run3(opMovDptrImm, byte(addr>>8), byte(addr))
	x.dptr = addr
}

func (x *Exec) ClearAccumulator() { x.run1(opClrA) }

func (x *Exec) LoadAccumulator(v byte) { x.run2(opMovAImm, v) }

// ReadCode reads code memory at DPTR+A. Callers clear A first to read at
// DPTR.
func (x *Exec) ReadCode() byte { return x.run1(opMovcADptr) }

func (x *Exec) IncrementPointer() {
	x.run1(opIncDptr)
	x.dptr++
}

// WriteSFR stores v into the direct-addressed register addr.
func (x *Exec) WriteSFR(addr, v byte) { x.run3(opMovDirImm, addr, v) }

// Pointer returns the DPTR value Exec last caused the target to hold.
func (x *Exec) Pointer() uint16 { return x.dptr }

// Begin opens an exclusive sequential read session at addr.
func (x *Exec) Begin(addr uint16) (*PointerSession, error) {
	if x.sess.open {
		return nil, ErrPointerBusy
	}
	x.sess = PointerSession{x: x, open: true}
	x.SetPointer(addr)
	return &x.sess, nil
}

// ReadByteAt reads one code byte with a fresh pointer load.
func (x *Exec) ReadByteAt(addr uint16) (byte, error) {
	s, err := x.Begin(addr)
	if err != nil {
		return 0, err
	}
	defer s.End()
	return s.Read(), nil
}

// PointerSession is a borrowed DPTR. Reads and advances must happen in
// order; nothing else may touch DPTR until End.
type PointerSession struct {
	x    *Exec
	open bool
}

// Addr is the address the next Read returns.
func (s *PointerSession) Addr() uint16 { return s.x.dptr }

// Read returns the code byte at the current address without advancing.
func (s *PointerSession) Read() byte {
	s.x.ClearAccumulator()
	return s.x.ReadCode()
}

// Advance moves to the next address.
func (s *PointerSession) Advance() { s.x.IncrementPointer() }

// End releases the pointer.
func (s *PointerSession) End() { s.open = false }
