package cc111x_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/drivers/cc111x/cc111xsim"
	"ccdump-go/errcode"
)

func TestDumpWalksFlashInBlocks(t *testing.T) {
	cases := []struct{ size, block int }{
		{32768, 64},
		{100, 64},
		{64, 64},
		{130, 16},
		{5, 1},
	}
	for _, c := range cases {
		flash := pattern(c.size)
		tgt := cc111xsim.New(flash)
		d, _ := newRig(t, tgt, func(cfg *cc111x.Config) {
			cfg.FlashSize = c.size
			cfg.BlockSize = c.block
		})
		clr := gated(t, d)

		var got []byte
		var addrs []uint16
		emit := func(addr uint16, blk []byte) error {
			addrs = append(addrs, addr)
			got = append(got, blk...)
			return nil
		}
		if err := d.Dump(context.Background(), clr, make([]byte, c.block), emit); err != nil {
			t.Fatalf("%d/%d: dump: %v", c.size, c.block, err)
		}

		var starts []uint16
		for a := 0; a < c.size; a += c.block {
			starts = append(starts, uint16(a))
		}
		if diff := cmp.Diff(starts, addrs); diff != "" {
			t.Fatalf("%d/%d: block addresses (-want +got):\n%s", c.size, c.block, diff)
		}
		if diff := cmp.Diff(starts, tgt.PointerSets); diff != "" {
			t.Fatalf("%d/%d: pointer sets (-want +got):\n%s", c.size, c.block, diff)
		}
		if len(tgt.CodeReads) != c.size {
			t.Fatalf("%d/%d: %d code reads", c.size, c.block, len(tgt.CodeReads))
		}
		for i, a := range tgt.CodeReads {
			if int(a) != i {
				t.Fatalf("%d/%d: read %d hit 0x%04X", c.size, c.block, i, a)
			}
		}
		if !cmp.Equal(flash, got) {
			t.Fatalf("%d/%d: image differs", c.size, c.block)
		}
	}
}

func TestDumpDefaultBuffer(t *testing.T) {
	tgt := cc111xsim.New(pattern(256))
	d, _ := newRig(t, tgt, func(c *cc111x.Config) { c.FlashSize = 256 })
	clr := gated(t, d)

	blocks := 0
	err := d.Dump(context.Background(), clr, nil, func(_ uint16, blk []byte) error {
		if len(blk) != cc111x.DefaultBlockSize {
			t.Fatalf("block len %d", len(blk))
		}
		blocks++
		return nil
	})
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if blocks != 4 {
		t.Fatalf("blocks = %d", blocks)
	}
}

func TestDumpStopsAtBlockBoundary(t *testing.T) {
	const block = 16
	tgt := cc111xsim.New(pattern(256))
	d, _ := newRig(t, tgt, func(c *cc111x.Config) {
		c.FlashSize = 256
		c.BlockSize = block
	})
	clr := gated(t, d)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	blocks := 0
	err := d.Dump(ctx, clr, nil, func(uint16, []byte) error {
		blocks++
		if blocks == 3 {
			cancel()
		}
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v", err)
	}
	if blocks != 3 || len(tgt.CodeReads) != 3*block || len(tgt.PointerSets) != 3 {
		t.Fatalf("blocks=%d reads=%d sets=%d", blocks, len(tgt.CodeReads), len(tgt.PointerSets))
	}
}

func TestDumpPropagatesEmitError(t *testing.T) {
	tgt := cc111xsim.New(pattern(128))
	d, _ := newRig(t, tgt, func(c *cc111x.Config) { c.FlashSize = 128 })
	clr := gated(t, d)

	boom := errors.New("sink full")
	err := d.Dump(context.Background(), clr, nil, func(uint16, []byte) error { return boom })
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
	if len(tgt.PointerSets) != 1 {
		t.Fatalf("pointer sets = %d", len(tgt.PointerSets))
	}
}

func TestDumpVerifyRecoversFlakyRead(t *testing.T) {
	flash := pattern(128)
	tgt := cc111xsim.New(flash)
	tgt.FlakyReads = map[uint16]int{0x45: 1}
	d, _ := newRig(t, tgt, func(c *cc111x.Config) {
		c.FlashSize = 128
		c.Verify = cc111x.VerifyPolicy{Passes: 1, Retries: 2}
	})
	clr := gated(t, d)

	var got []byte
	err := d.Dump(context.Background(), clr, nil, func(_ uint16, blk []byte) error {
		got = append(got, blk...)
		return nil
	})
	if err != nil {
		t.Fatalf("dump: %v", err)
	}
	if !cmp.Equal(flash, got) {
		t.Fatalf("image differs")
	}
	want := []uint16{0x00, 0x00, 0x40, 0x40, 0x40, 0x40}
	if diff := cmp.Diff(want, tgt.PointerSets); diff != "" {
		t.Fatalf("pointer sets (-want +got):\n%s", diff)
	}
}

func TestDumpVerifyGivesUp(t *testing.T) {
	tgt := cc111xsim.New(pattern(128))
	tgt.NoisyReads = map[uint16]bool{0x45: true}
	d, _ := newRig(t, tgt, func(c *cc111x.Config) {
		c.FlashSize = 128
		c.Verify = cc111x.VerifyPolicy{Passes: 1, Retries: 2}
	})
	clr := gated(t, d)

	err := d.Dump(context.Background(), clr, nil, func(uint16, []byte) error { return nil })
	var me *cc111x.ReadMismatchError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v", err)
	}
	if me.Addr != 0x40 || me.Offset != 5 || me.Attempts != 3 {
		t.Fatalf("mismatch = %+v", me)
	}
	if !errors.Is(err, errcode.ReadMismatch) || errcode.Of(err) != errcode.ReadMismatch {
		t.Fatalf("code of %v", err)
	}
	if got := err.Error(); got != "extract: read_mismatch: block 0x0040 offset 5 after 3 attempts" {
		t.Fatalf("Error() = %q", got)
	}
}

func TestDumpRejectsClearanceFromEarlierEntry(t *testing.T) {
	ctx := context.Background()
	noEmit := func(uint16, []byte) error {
		t.Fatalf("emit called with an old clearance")
		return nil
	}

	// Chip locked between sessions: the old clearance must not read it.
	tgt := cc111xsim.New(pattern(256))
	d, _ := newRig(t, tgt, func(c *cc111x.Config) { c.FlashSize = 256 })
	old := gated(t, d)
	d.Release()
	tgt.Locked = true
	if _, err := d.Attach(ctx); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := d.Dump(ctx, old, nil, noEmit); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("dump err = %v", err)
	}
	if len(tgt.CodeReads) != 0 {
		t.Fatalf("code reads with old clearance: %d", len(tgt.CodeReads))
	}

	// Plain re-attach: the old clearance is stale, a fresh one works.
	tgt = cc111xsim.New(pattern(256))
	d, _ = newRig(t, tgt, func(c *cc111x.Config) { c.FlashSize = 256 })
	old = gated(t, d)
	if _, err := d.Attach(ctx); err != nil {
		t.Fatalf("attach: %v", err)
	}
	if err := d.Dump(ctx, old, nil, noEmit); errcode.Of(err) != errcode.InvalidParams {
		t.Fatalf("dump err = %v", err)
	}
	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	fresh, _, err := d.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if err := d.Dump(ctx, fresh, nil, func(uint16, []byte) error { return nil }); err != nil {
		t.Fatalf("dump with fresh clearance: %v", err)
	}
	if len(tgt.CodeReads) != 256 {
		t.Fatalf("code reads = %d", len(tgt.CodeReads))
	}
}

func TestPointerSessionIsExclusive(t *testing.T) {
	tgt := cc111xsim.New(pattern(64))
	d, _ := newRig(t, tgt, nil)
	gated(t, d)
	x := d.Exec()

	s, err := x.Begin(0x10)
	if err != nil {
		t.Fatalf("begin: %v", err)
	}
	if _, err := x.Begin(0x20); !errors.Is(err, cc111x.ErrPointerBusy) {
		t.Fatalf("second begin: %v", err)
	}
	if v := s.Read(); v != pattern(64)[0x10] {
		t.Fatalf("read 0x%02X", v)
	}
	s.Advance()
	if s.Addr() != 0x11 || tgt.Pointer() != 0x11 {
		t.Fatalf("pointer host=0x%04X target=0x%04X", s.Addr(), tgt.Pointer())
	}
	s.End()
	if _, err := x.Begin(0x20); err != nil {
		t.Fatalf("begin after end: %v", err)
	}
}

func TestExecPrimitives(t *testing.T) {
	flash := pattern(64)
	tgt := cc111xsim.New(flash)
	d, _ := newRig(t, tgt, nil)
	gated(t, d)
	x := d.Exec()

	x.SetPointer(0x10)
	x.LoadAccumulator(3)
	if v := x.ReadCode(); v != flash[0x13] {
		t.Fatalf("MOVC @A+DPTR = 0x%02X want 0x%02X", v, flash[0x13])
	}
	x.IncrementPointer()
	if x.Pointer() != tgt.Pointer() {
		t.Fatalf("pointer host=0x%04X target=0x%04X", x.Pointer(), tgt.Pointer())
	}
	x.WriteSFR(0xC6, 0x80)
	if tgt.SFR(0xC6) != 0x80 {
		t.Fatalf("SFR 0xC6 = 0x%02X", tgt.SFR(0xC6))
	}
	if v, err := d.ReadByteAt(0x3F); err != nil || v != flash[0x3F] {
		t.Fatalf("ReadByteAt = 0x%02X, %v", v, err)
	}
}
