package dump

import (
	"errors"
	"time"

	"ccdump-go/drivers/cc111x"
)

// PinConfig names the GPIO numbers of the debug lines.
type PinConfig struct {
	DC    int `toml:"dc"`
	DD    int `toml:"dd"`
	Reset int `toml:"reset"`
}

// Config is the user-facing session configuration. Durations are integers
// so the same struct reads cleanly from TOML. Zero values take driver
// defaults.
type Config struct {
	Pins PinConfig `toml:"pins"`

	HalfPeriodUs      int `toml:"half_period_us"`
	TurnaroundUs      int `toml:"turnaround_us"`
	ReadyPolls        int `toml:"ready_polls"`
	ResetHoldUs       int `toml:"reset_hold_us"`
	RetryResetHoldUs  int `toml:"retry_reset_hold_us"`
	SettleUs          int `toml:"settle_us"`
	EntryAttempts     int `toml:"entry_attempts"`
	ExpectFamily      int `toml:"expect_family"`
	OscPolls          int `toml:"osc_polls"`
	OscPollIntervalUs int `toml:"osc_poll_interval_us"`

	FlashSize int                 `toml:"flash_size"`
	BlockSize int                 `toml:"block_size"`
	Verify    cc111x.VerifyPolicy `toml:"verify"`

	// Release resets the chip into its application after the session.
	Release bool `toml:"release"`
}

// Default pins match the reference wiring on a Pico (GP2, GP3, GP4).
const (
	DefaultPinDC    = 2
	DefaultPinDD    = 3
	DefaultPinReset = 4
)

func DefaultConfig() Config {
	return Config{
		Pins:      PinConfig{DC: DefaultPinDC, DD: DefaultPinDD, Reset: DefaultPinReset},
		FlashSize: cc111x.FlashSize,
		BlockSize: cc111x.DefaultBlockSize,
		Release:   true,
	}
}

func (c Config) Validate() error {
	p := c.Pins
	if p.DC < 0 || p.DD < 0 || p.Reset < 0 {
		return errors.New("pins must be non-negative")
	}
	if p.DC == p.DD || p.DC == p.Reset || p.DD == p.Reset {
		return errors.New("pins must be distinct")
	}
	if c.ExpectFamily < 0 || c.ExpectFamily > 0xFF {
		return errors.New("expect_family must be a byte")
	}
	if c.ReadyPolls < 0 || c.EntryAttempts < 0 || c.OscPolls < 0 {
		return errors.New("counts must be non-negative")
	}
	for _, v := range []int{c.HalfPeriodUs, c.TurnaroundUs, c.ResetHoldUs, c.RetryResetHoldUs, c.SettleUs, c.OscPollIntervalUs} {
		if v < 0 {
			return errors.New("durations must be non-negative")
		}
	}
	return c.DriverConfig().Validate()
}

func us(n int) time.Duration { return time.Duration(n) * time.Microsecond }

// DriverConfig maps the session settings onto the driver, with driver
// defaults filling zero fields. Sleeper and CriticalSection stay unset for
// the caller.
func (c Config) DriverConfig() cc111x.Config {
	d := cc111x.DefaultConfig()
	d.Sleeper, d.CriticalSection = nil, nil
	set := func(dst *time.Duration, v int) {
		if v > 0 {
			*dst = us(v)
		}
	}
	set(&d.HalfPeriod, c.HalfPeriodUs)
	set(&d.Turnaround, c.TurnaroundUs)
	set(&d.ResetHold, c.ResetHoldUs)
	set(&d.RetryResetHold, c.RetryResetHoldUs)
	set(&d.Settle, c.SettleUs)
	set(&d.OscPollInterval, c.OscPollIntervalUs)
	d.ReadyPolls = c.ReadyPolls
	if c.EntryAttempts > 0 {
		d.EntryAttempts = c.EntryAttempts
	}
	if c.ExpectFamily > 0 {
		d.ExpectFamily = byte(c.ExpectFamily)
	}
	if c.OscPolls > 0 {
		d.OscPolls = c.OscPolls
	}
	if c.FlashSize > 0 {
		d.FlashSize = c.FlashSize
	}
	if c.BlockSize > 0 {
		d.BlockSize = c.BlockSize
	}
	d.Verify = c.Verify
	return d
}
