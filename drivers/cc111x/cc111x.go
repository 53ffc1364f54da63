// Package cc111x drives the two-wire debug interface of TI CC111x 8051-core
// RF SoCs from bit-banged GPIO and reads out their flash.
//
// The interface has no memory-read command. Reads are built from 8051
// instructions executed on the halted CPU:
//
//	MOV DPTR,#addr   (once per block)
//	CLR A
//	MOVC A,@A+DPTR   (returns the byte)
//	INC DPTR
//
// A session runs Attach (reset + two DC edges + chip id), then Check (lock,
// oscillator and halt gating, which yields a Clearance), then Dump.
//
// Everything is synchronous and single-goroutine. All delays go through
// Config.Sleeper so the protocol can run against a virtual clock.
package cc111x

import (
	"context"
	"errors"
	"time"

	"ccdump-go/x/mathx"
	"ccdump-go/x/timex"
)

// Flash geometry of the CC1110F32.
const (
	FlashBase        = 0x0000
	FlashSize        = 32 * 1024
	DefaultBlockSize = 64
)

// Config controls timing and policy. Zero fields take defaults.
type Config struct {
	// HalfPeriod is the delay after each DC transition. Default 10 µs, far
	// above the target's minimum so host jitter does not matter.
	HalfPeriod time.Duration
	// Turnaround is the wait after releasing DD before the first sampled
	// bit. Default 2 µs.
	Turnaround time.Duration
	// ReadyPolls enables polling DD for the target's ready signal before a
	// response; 0 keeps delay-only timing.
	ReadyPolls int

	IdleGuard      time.Duration // lines idle before reset; default 100 µs
	ResetHold      time.Duration // RESET_N low before the edges; default 2 ms
	RetryResetHold time.Duration // same, on re-entry attempts; default 5 ms
	EdgeGuard      time.Duration // after the edges, before release; default 100 µs
	Settle         time.Duration // after release (XOSC startup); default 10 ms
	EntryAttempts  int           // default 3

	// ExpectFamily is the chip family accepted without warning. Default 0x89.
	ExpectFamily byte

	OscPolls        int           // default 50
	OscPollInterval time.Duration // default 1 ms
	HaltSettle      time.Duration // default 100 µs

	FlashSize int // default 32 KiB
	BlockSize int // default 64

	Verify VerifyPolicy

	Sleeper timex.Sleeper
	// CriticalSection runs the two-edge debug-entry window. Firmware
	// masks interrupts here; the default calls fn directly.
	CriticalSection func(fn func())
}

// DefaultConfig returns the reference timing.
func DefaultConfig() Config {
	return Config{
		HalfPeriod:      10 * time.Microsecond,
		Turnaround:      2 * time.Microsecond,
		IdleGuard:       100 * time.Microsecond,
		ResetHold:       2 * time.Millisecond,
		RetryResetHold:  5 * time.Millisecond,
		EdgeGuard:       100 * time.Microsecond,
		Settle:          10 * time.Millisecond,
		EntryAttempts:   3,
		ExpectFamily:    FamilyCC1110,
		OscPolls:        50,
		OscPollInterval: time.Millisecond,
		HaltSettle:      100 * time.Microsecond,
		FlashSize:       FlashSize,
		BlockSize:       DefaultBlockSize,
		Sleeper:         timex.Spin,
		CriticalSection: func(fn func()) { fn() },
	}
}

func (c *Config) fillDefaults() {
	d := DefaultConfig()
	if c.HalfPeriod <= 0 {
		c.HalfPeriod = d.HalfPeriod
	}
	if c.Turnaround <= 0 {
		c.Turnaround = d.Turnaround
	}
	if c.IdleGuard <= 0 {
		c.IdleGuard = d.IdleGuard
	}
	if c.ResetHold <= 0 {
		c.ResetHold = d.ResetHold
	}
	if c.RetryResetHold <= 0 {
		c.RetryResetHold = d.RetryResetHold
	}
	if c.EdgeGuard <= 0 {
		c.EdgeGuard = d.EdgeGuard
	}
	if c.Settle <= 0 {
		c.Settle = d.Settle
	}
	if c.EntryAttempts <= 0 {
		c.EntryAttempts = d.EntryAttempts
	}
	if c.ExpectFamily == 0 {
		c.ExpectFamily = d.ExpectFamily
	}
	if c.OscPolls <= 0 {
		c.OscPolls = d.OscPolls
	}
	if c.OscPollInterval <= 0 {
		c.OscPollInterval = d.OscPollInterval
	}
	if c.HaltSettle <= 0 {
		c.HaltSettle = d.HaltSettle
	}
	if c.FlashSize <= 0 {
		c.FlashSize = d.FlashSize
	}
	if c.BlockSize <= 0 {
		c.BlockSize = d.BlockSize
	}
	if c.Sleeper == nil {
		c.Sleeper = d.Sleeper
	}
	if c.CriticalSection == nil {
		c.CriticalSection = d.CriticalSection
	}
}

// Validate checks geometry and budgets after defaults are applied.
func (c Config) Validate() error {
	if c.FlashSize <= 0 || FlashBase+c.FlashSize > 0x10000 {
		return errors.New("FlashSize must fit the 16-bit code space")
	}
	if c.BlockSize <= 0 || c.BlockSize > c.FlashSize {
		return errors.New("BlockSize must be in 1..FlashSize")
	}
	if c.EntryAttempts > 16 {
		return errors.New("EntryAttempts must be at most 16")
	}
	if c.Verify.Passes < 0 || c.Verify.Retries < 0 {
		return errors.New("Verify counts must be non-negative")
	}
	return nil
}

// Blocks returns how many block reads cover the flash.
func (c Config) Blocks() int { return mathx.CeilDiv(c.FlashSize, c.BlockSize) }

// Device bundles the protocol layers over one Link.
type Device struct {
	cfg  Config
	link *Link

	clk  BitClock
	ch   Channel
	x    Exec
	seq  Sequencer
	gate Gate
	ext  Extractor
}

// New wires the protocol layers. It does not touch the target.
func New(link *Link, cfg Config) (*Device, error) {
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	d := &Device{cfg: cfg, link: link}
	d.clk = BitClock{link: link, sleep: cfg.Sleeper, half: cfg.HalfPeriod, turnaround: cfg.Turnaround}
	d.ch = Channel{clk: &d.clk, readyPolls: cfg.ReadyPolls}
	d.x = Exec{ch: &d.ch}
	d.seq = Sequencer{link: link, clk: &d.clk, ch: &d.ch, cfg: &d.cfg}
	d.gate = Gate{ch: &d.ch, cfg: &d.cfg}
	d.ext = newExtractor(&d.x, &d.ch, &d.cfg)
	return d, nil
}

// Introspection.
func (d *Device) Config() Config { return d.cfg }
func (d *Device) Link() *Link { return d.link }
func (d *Device) BitClock() *BitClock { return &d.clk }
func (d *Device) Channel() *Channel { return &d.ch }
func (d *Device) Exec() *Exec { return &d.x }
func (d *Device) Sequencer() *Sequencer { return &d.seq }
func (d *Device) Extractor() *Extractor { return &d.ext }

// Attach enters debug mode and verifies the chip id.
func (d *Device) Attach(ctx context.Context) (ChipID, error) { return d.seq.Attach(ctx) }

// Check runs the safety gate for an attached chip.
func (d *Device) Check(ctx context.Context, id ChipID) (Clearance, Report, error) {
	return d.gate.Check(ctx, id)
}

// Dump streams the flash; see Extractor.Dump.
func (d *Device) Dump(ctx context.Context, clr Clearance, buf []byte, emit EmitFunc) error {
	return d.ext.Dump(ctx, clr, buf, emit)
}

// ReadByteAt reads a single code byte. It refuses once a lock was seen.
func (d *Device) ReadByteAt(addr uint16) (byte, error) {
	if d.ch.LockedSeen() {
		return 0, errLockSeen("read")
	}
	return d.x.ReadByteAt(addr)
}

// Resume lets the halted CPU run again without leaving debug mode.
func (d *Device) Resume() Status { return d.ch.Resume() }

// Release pulses RESET_N for 1 ms without DC activity so the chip boots its
// application normally, and leaves DD undriven.
func (d *Device) Release() {
	l := d.link
	l.DC.Set(false)
	l.Reset.Set(false)
	d.cfg.Sleeper.Sleep(time.Millisecond)
	l.Reset.Set(true)
	l.releaseData()
	d.ch.forget()
}
