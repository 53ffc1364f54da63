package cc111x

import (
	"context"
	"strconv"

	"ccdump-go/errcode"
	"ccdump-go/x/conv"
	"ccdump-go/x/mathx"
)

// VerifyPolicy is the optional block re-read hardening. Each block is read
// once plus Passes more times; any difference restarts the block, at most
// Retries times. The zero value disables verification.
type VerifyPolicy struct {
	Passes  int `toml:"passes"`
	Retries int `toml:"retries"`
}

func (v VerifyPolicy) Enabled() bool { return v.Passes > 0 }

// ReadMismatchError reports a block whose passes kept disagreeing.
type ReadMismatchError struct {
	Addr     uint16 // block start
	Offset   int    // first differing offset in the last attempt
	Attempts int
}

func (e *ReadMismatchError) Error() string {
	b := make([]byte, 0, 80)
	b = append(b, "extract: read_mismatch: block 0x"...)
	b = conv.AppendHex16(b, e.Addr)
	b = append(b, " offset "...)
	b = strconv.AppendInt(b, int64(e.Offset), 10)
	b = append(b, " after "...)
	b = strconv.AppendInt(b, int64(e.Attempts), 10)
	b = append(b, " attempts"...)
	return string(b)
}

func (e *ReadMismatchError) Unwrap() error { return errcode.ReadMismatch }
func (e *ReadMismatchError) Code() errcode.Code { return errcode.ReadMismatch }

// EmitFunc receives each finished block. block aliases the caller's buffer
// and is overwritten by the next block.
type EmitFunc func(addr uint16, block []byte) error

// Extractor walks code memory through the execution unit.
type Extractor struct {
	x   *Exec
	ch  *Channel
	cfg *Config

	scratch []byte
}

func newExtractor(x *Exec, ch *Channel, cfg *Config) Extractor {
	return Extractor{x: x, ch: ch, cfg: cfg}
}

// ReadBlock fills buf from code memory starting at addr: one pointer load,
// then clear/read per byte with an increment between bytes.
//
// It refuses once a status read has shown the debug lock.
func (e *Extractor) ReadBlock(addr uint16, buf []byte) error {
	if e.ch.LockedSeen() {
		return errLockSeen("read")
	}
	if len(buf) == 0 {
		return nil
	}
	ps, err := e.x.Begin(addr)
	if err != nil {
		return err
	}
	defer ps.End()
	last := len(buf) - 1
	for i := range buf {
		buf[i] = ps.Read()
		if i < last {
			ps.Advance()
		}
	}
	return nil
}

// Dump streams [FlashBase, FlashBase+FlashSize) in len(buf)-sized blocks to
// emit; the final block is short when the size is not a multiple. A nil buf
// gets one of Config.BlockSize bytes.
//
// ctx is only consulted between blocks. A block in progress always finishes
// so the target pointer is never left half-walked.
func (e *Extractor) Dump(ctx context.Context, clr Clearance, buf []byte, emit EmitFunc) error {
	if !clr.Valid() {
		return errcode.New(errcode.InvalidParams, "dump", "no gate clearance")
	}
	if clr.entry != e.ch.entry {
		return errcode.New(errcode.InvalidParams, "dump", "clearance predates the last target reset; run the gate again")
	}
	if buf == nil {
		buf = make([]byte, e.cfg.BlockSize)
	}
	if len(buf) == 0 {
		return errcode.New(errcode.InvalidParams, "dump", "empty block buffer")
	}

	size := e.cfg.FlashSize
	for off := 0; off < size; off += len(buf) {
		if err := ctx.Err(); err != nil {
			return err
		}
		if e.ch.LockedSeen() {
			return errLockSeen("dump")
		}
		blk := buf[:mathx.Min(len(buf), size-off)]
		addr := uint16(FlashBase + off)
		if err := e.readChecked(addr, blk); err != nil {
			return err
		}
		if err := emit(addr, blk); err != nil {
			return err
		}
	}
	return nil
}

func (e *Extractor) readChecked(addr uint16, blk []byte) error {
	v := e.cfg.Verify
	if !v.Enabled() {
		return e.ReadBlock(addr, blk)
	}
	if cap(e.scratch) < len(blk) {
		e.scratch = make([]byte, len(blk))
	}
	ref := e.scratch[:len(blk)]

	for attempt := 1; ; attempt++ {
		if err := e.ReadBlock(addr, blk); err != nil {
			return err
		}
		diff := -1
		for p := 0; p < v.Passes && diff < 0; p++ {
			if err := e.ReadBlock(addr, ref); err != nil {
				return err
			}
			diff = firstDiff(blk, ref)
		}
		if diff < 0 {
			return nil
		}
		if attempt > v.Retries {
			return &ReadMismatchError{Addr: addr, Offset: diff, Attempts: attempt}
		}
	}
}

func errLockSeen(op string) error {
	return errcode.New(errcode.DebugLocked, op, "lock bit observed")
}

func firstDiff(a, b []byte) int {
	for i := range a {
		if a[i] != b[i] {
			return i
		}
	}
	return -1
}
