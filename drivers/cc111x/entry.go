package cc111x

import (
	"context"
	"time"

	"ccdump-go/errcode"
)

// State is a debug-entry sequencer state.
type State uint8

const (
	StateIdle State = iota
	StateResetAsserted
	StateTwoClockEdges
	StateResetReleased
	StateSettling
	StateVerified
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateResetAsserted:
		return "reset_asserted"
	case StateTwoClockEdges:
		return "two_clock_edges"
	case StateResetReleased:
		return "reset_released"
	case StateSettling:
		return "settling"
	case StateVerified:
		return "verified"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Attempt records one debug-entry try. Status is a diagnostic READ_STATUS
// probe, taken only when the chip id was invalid.
type Attempt struct {
	ChipID ChipID
	Status Status
}

// Sequencer puts the target into debug mode: hold RESET_N low, give exactly
// two DC rising edges, release, settle, then confirm with GET_CHIP_ID. The
// boot ROM treats any other edge count as a normal boot.
//
// Failed attempts rerun the whole sequence up to Config.EntryAttempts.
// Nothing is logged here: callers read History and Attempts afterwards, so
// no output can land inside the timing window.
type Sequencer struct {
	link *Link
	clk  *BitClock
	ch   *Channel
	cfg  *Config

	state    State
	history  []State
	attempts []Attempt
}

func (s *Sequencer) to(st State) {
	s.state = st
	s.history = append(s.history, st)
}

// State is the current state.
func (s *Sequencer) State() State { return s.state }

// History lists every state entered by the last Attach, in order.
func (s *Sequencer) History() []State { return s.history }

// Attempts lists the outcome of each try made by the last Attach.
func (s *Sequencer) Attempts() []Attempt { return s.attempts }

// Attach runs the entry sequence until a valid chip id is read or the
// attempt budget is spent. Exhaustion returns an errcode.LinkAbsent error;
// retrying further is pointless without operator action on wiring or power.
func (s *Sequencer) Attach(ctx context.Context) (ChipID, error) {
	s.history = s.history[:0]
	s.attempts = s.attempts[:0]
	s.to(StateIdle)

	for n := 0; n < s.cfg.EntryAttempts; n++ {
		if err := ctx.Err(); err != nil {
			return 0, err
		}
		hold := s.cfg.ResetHold
		if n > 0 {
			hold = s.cfg.RetryResetHold
		}
		s.enter(hold)

		id := s.ch.ChipID()
		if id.Valid() {
			s.attempts = append(s.attempts, Attempt{ChipID: id})
			s.to(StateVerified)
			return id, nil
		}
		// Raw exchange: a probe of a dead link must not count as a lock
		// observation.
		probe := Status(s.ch.Exchange(CmdReadStatus, nil)[0])
		s.attempts = append(s.attempts, Attempt{ChipID: id, Status: probe})
		s.to(StateFailed)
	}
	return 0, errcode.New(errcode.LinkAbsent, "attach", "no valid chip id; check wiring and power")
}

func (s *Sequencer) enter(hold time.Duration) {
	l, sl := s.link, s.cfg.Sleeper

	l.DC.Set(false)
	l.driveData()
	l.DD.Set(true)
	sl.Sleep(s.cfg.IdleGuard)

	s.to(StateResetAsserted)
	l.Reset.Set(false)
	s.ch.forget()
	sl.Sleep(hold)

	s.to(StateTwoClockEdges)
	s.cfg.CriticalSection(func() {
		s.clk.Edge()
		s.clk.Edge()
	})
	sl.Sleep(s.cfg.EdgeGuard)

	s.to(StateResetReleased)
	l.Reset.Set(true)

	s.to(StateSettling)
	sl.Sleep(s.cfg.Settle)
}
