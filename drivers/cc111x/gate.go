package cc111x

import (
	"context"
	"strconv"

	"ccdump-go/errcode"
	"ccdump-go/x/conv"
)

// Report collects what the gate saw. It is filled as far as the checks got,
// so it is useful on failure too.
type Report struct {
	ChipID   ChipID
	Status   Status // last status read
	Config   byte   // RD_CONFIG
	PC       uint16 // GET_PC, after the halt
	OscPolls int    // extra status reads spent waiting for the oscillator
	Warnings []string
}

func (r *Report) warn(s string) { r.Warnings = append(r.Warnings, s) }

// Clearance is proof that the gate passed for one debug entry. The zero
// value is not valid, and Dump refuses a Clearance issued before the target
// was last reset.
type Clearance struct {
	ok    bool
	id    ChipID
	entry uint32
}

func (c Clearance) Valid() bool { return c.ok }
func (c Clearance) ChipID() ChipID { return c.id }

// Gate decides whether an attached chip may be read.
type Gate struct {
	ch  *Channel
	cfg *Config
}

// Check runs the gating sequence: family check (warning only), double status
// read, lock check, bounded oscillator wait, halt and halt verification.
// It never issues CHIP_ERASE; a locked chip stays locked.
func (g *Gate) Check(ctx context.Context, id ChipID) (Clearance, Report, error) {
	rep := Report{ChipID: id}

	if fam := id.Family(); fam != g.cfg.ExpectFamily {
		if KnownSibling(fam) {
			rep.warn("family 0x" + hex8(fam) + " is a CC11xx sibling; flash size may differ")
		} else {
			rep.warn("unexpected family 0x" + hex8(fam) + "; continuing")
		}
	}

	s1 := g.ch.ReadStatus()
	s2 := g.ch.ReadStatus()
	if s1 != s2 {
		rep.warn("status reads disagree (0x" + hex8(byte(s1)) + " vs 0x" + hex8(byte(s2)) + "); bus may be noisy")
	}
	rep.Status = s2
	rep.Config = g.ch.ReadConfig()

	if s1.Locked() || s2.Locked() {
		return Clearance{}, rep, &errcode.E{C: errcode.DebugLocked, Op: "gate",
			Msg: "status " + rep.Status.String() + "; only a chip erase unlocks it"}
	}

	if !rep.Status.OscillatorStable() {
		for rep.OscPolls < g.cfg.OscPolls {
			if err := ctx.Err(); err != nil {
				return Clearance{}, rep, err
			}
			g.cfg.Sleeper.Sleep(g.cfg.OscPollInterval)
			rep.OscPolls++
			rep.Status = g.ch.ReadStatus()
			if rep.Status.Locked() {
				return Clearance{}, rep, &errcode.E{C: errcode.DebugLocked, Op: "gate", Msg: "status " + rep.Status.String()}
			}
			if rep.Status.OscillatorStable() {
				break
			}
		}
		if !rep.Status.OscillatorStable() {
			return Clearance{}, rep, &errcode.E{C: errcode.OscillatorUnstable, Op: "gate",
				Msg: "not stable after " + strconv.Itoa(rep.OscPolls) + " polls"}
		}
	}

	g.ch.Halt()
	g.cfg.Sleeper.Sleep(g.cfg.HaltSettle)
	rep.Status = g.ch.ReadStatus()
	if rep.Status.Locked() {
		return Clearance{}, rep, &errcode.E{C: errcode.DebugLocked, Op: "gate", Msg: "status " + rep.Status.String()}
	}
	if !rep.Status.Halted() {
		return Clearance{}, rep, &errcode.E{C: errcode.HaltFailed, Op: "gate",
			Msg: "status " + rep.Status.String() + " after HALT; check wiring"}
	}
	rep.PC = g.ch.PC()

	return Clearance{ok: true, id: id, entry: g.ch.entry}, rep, nil
}

func hex8(b byte) string {
	var buf [2]byte
	return string(conv.AppendHex8(buf[:0], b))
}
