package cc111x_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/drivers/cc111x/cc111xsim"
	"ccdump-go/errcode"
)

func TestLockedChipIsNeverRead(t *testing.T) {
	tgt := cc111xsim.New(pattern(256))
	tgt.Locked = true
	d, _ := newRig(t, tgt, func(c *cc111x.Config) { c.FlashSize = 256 })
	ctx := context.Background()

	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	clr, rep, err := d.Check(ctx, id)
	if !errors.Is(err, errcode.DebugLocked) {
		t.Fatalf("check err = %v", err)
	}
	if clr.Valid() || !rep.Status.Locked() {
		t.Fatalf("clearance=%v status=%s", clr.Valid(), rep.Status)
	}

	emit := func(uint16, []byte) error {
		t.Fatalf("emit called for locked chip")
		return nil
	}
	if err := d.Dump(ctx, clr, nil, emit); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("dump err = %v", err)
	}
	if _, err := d.ReadByteAt(0); !errors.Is(err, errcode.DebugLocked) {
		t.Fatalf("ReadByteAt err = %v", err)
	}
	var head [3]byte
	if err := d.Extractor().ReadBlock(0, head[:]); !errors.Is(err, errcode.DebugLocked) {
		t.Fatalf("ReadBlock err = %v", err)
	}
	if len(tgt.CodeReads) != 0 {
		t.Fatalf("code reads after lock: %v", tgt.CodeReads)
	}
	for _, op := range tgt.Commands {
		if op == cc111x.CmdHalt.Opcode || op == cc111x.CmdChipErase.Opcode {
			t.Fatalf("opcode 0x%02X sent to locked chip", op)
		}
	}
}

func TestLockedStatusByte(t *testing.T) {
	s := cc111x.Status(0x24)
	if !s.Locked() || !s.Halted() || s.OscillatorStable() {
		t.Fatalf("decode 0x24: %s", s)
	}
}

func TestGateWaitsForOscillator(t *testing.T) {
	tgt := cc111xsim.New(nil)
	tgt.OscUnstableReads = 5
	d, _ := newRig(t, tgt, nil)
	ctx := context.Background()

	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	clr, rep, err := d.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if !clr.Valid() || clr.ChipID() != id {
		t.Fatalf("clearance = %+v", clr)
	}
	// Two initial reads plus three more unstable polls, then stable.
	if rep.OscPolls != 4 {
		t.Fatalf("osc polls = %d", rep.OscPolls)
	}
}

func TestGateOscillatorTimeout(t *testing.T) {
	tgt := cc111xsim.New(nil)
	tgt.OscUnstableReads = 1000
	d, clk := newRig(t, tgt, nil)
	ctx := context.Background()

	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	before := clk.Elapsed
	_, rep, err := d.Check(ctx, id)
	if !errors.Is(err, errcode.OscillatorUnstable) {
		t.Fatalf("err = %v", err)
	}
	if rep.OscPolls != 50 {
		t.Fatalf("osc polls = %d", rep.OscPolls)
	}
	if waited := clk.Elapsed - before; waited < 50*time.Millisecond {
		t.Fatalf("waited %v", waited)
	}
	if tgt.Halted() {
		t.Fatalf("halted despite unstable oscillator")
	}
}

func TestGateHaltFailure(t *testing.T) {
	tgt := cc111xsim.New(nil)
	tgt.IgnoreHalt = true
	d, _ := newRig(t, tgt, nil)
	ctx := context.Background()

	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if _, _, err := d.Check(ctx, id); errcode.Of(err) != errcode.HaltFailed {
		t.Fatalf("err = %v", err)
	}
}

func TestGateFamilyWarnings(t *testing.T) {
	cases := []struct {
		id   uint16
		want string
	}{
		{0x89A3, ""},
		{0x8103, "sibling"},
		{0x4201, "unexpected family 0x42"},
	}
	for _, c := range cases {
		tgt := cc111xsim.New(nil)
		tgt.ChipID = c.id
		d, _ := newRig(t, tgt, nil)
		ctx := context.Background()
		id, err := d.Attach(ctx)
		if err != nil {
			t.Fatalf("attach 0x%04X: %v", c.id, err)
		}
		_, rep, err := d.Check(ctx, id)
		if err != nil {
			t.Fatalf("check 0x%04X: %v", c.id, err)
		}
		if c.want == "" {
			if len(rep.Warnings) != 0 {
				t.Fatalf("0x%04X warnings: %v", c.id, rep.Warnings)
			}
			continue
		}
		if len(rep.Warnings) != 1 || !strings.Contains(rep.Warnings[0], c.want) {
			t.Fatalf("0x%04X warnings: %v", c.id, rep.Warnings)
		}
	}
}

func TestGateReport(t *testing.T) {
	tgt := cc111xsim.New(nil)
	tgt.Config = 0x08
	tgt.PC = 0x1234
	d, _ := newRig(t, tgt, nil)
	ctx := context.Background()
	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	_, rep, err := d.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if rep.Config != 0x08 || rep.PC != 0x1234 || !rep.Status.Halted() || rep.ChipID != id {
		t.Fatalf("report = %+v", rep)
	}
	if !tgt.Halted() {
		t.Fatalf("target not halted")
	}
}
