// Package dump runs a complete flash read of a CC111x target and writes it
// as Intel HEX: attach, gate, probe, extract, release.
package dump

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"time"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/errcode"
	"ccdump-go/types"
	"ccdump-go/x/conv"
	"ccdump-go/x/ihex"
	"ccdump-go/x/mathx"
)

// Session drives one Device. It is not safe for concurrent use; the device
// owns its lines exclusively.
type Session struct {
	dev      *cc111x.Device
	log      Logger
	progress ProgressCallback
	release  bool
	chip     string

	start time.Time
}

// New creates a session over dev. Release defaults to on.
func New(dev *cc111x.Device, opts ...Option) *Session {
	if dev == nil {
		panic("dump: nil device")
	}
	s := &Session{dev: dev, log: nopLogger{}, release: true, chip: "CC1110F32"}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run performs the session and streams the HEX image to w. The report is
// filled as far as the session got, also on error.
//
// Cancellation is honoured between entry attempts, oscillator polls and
// flash blocks.
func (s *Session) Run(ctx context.Context, w io.Writer) (rep types.DumpReport, err error) {
	s.start = time.Now()
	defer func() {
		rep.ElapsedMs = time.Since(s.start).Milliseconds()
		if err != nil {
			rep.Error = err.Error()
			s.log.Error("dump failed", "code", string(errcode.Of(err)), "err", err)
			return
		}
		s.report(Progress{Phase: PhaseComplete, Block: rep.Blocks, TotalBlocks: rep.Blocks,
			Bytes: rep.Bytes, TotalBytes: rep.Bytes, Percent: 100})
	}()

	s.report(Progress{Phase: PhaseAttaching})
	id, err := s.dev.Attach(ctx)
	s.logEntry(&rep)
	if err != nil {
		return rep, fmt.Errorf("attach: %w", err)
	}
	rep.ChipID, rep.Family, rep.Revision = uint16(id), id.Family(), id.Revision()
	s.log.Info("chip attached", "chip_id", id.String(), "attempts", rep.Attempts)

	if s.release {
		defer s.releaseChip()
	}

	s.report(Progress{Phase: PhaseGating})
	clr, gr, err := s.dev.Check(ctx, id)
	rep.Status, rep.Config, rep.PC, rep.OscPolls = uint8(gr.Status), gr.Config, gr.PC, gr.OscPolls
	rep.Warnings = append(rep.Warnings, gr.Warnings...)
	for _, msg := range gr.Warnings {
		s.log.Warn(msg, "chip_id", id.String())
	}
	if err != nil {
		return rep, fmt.Errorf("gate: %w", err)
	}
	s.log.Info("chip halted", "status", gr.Status.String(), "config", "0x"+hex8(gr.Config), "pc", "0x"+hex16(gr.PC))

	s.report(Progress{Phase: PhaseProbing})
	if err := s.dev.Extractor().ReadBlock(cc111x.FlashBase, rep.Probe[:]); err != nil {
		return rep, fmt.Errorf("probe: %w", err)
	}
	verdict := ClassifyProbe(rep.Probe)
	rep.ProbeVerdict = string(verdict)
	if verdict.Suspicious() {
		msg := "probe bytes look wrong (" + string(verdict) + "); check DD wiring or lock state"
		rep.Warnings = append(rep.Warnings, msg)
		s.log.Warn(msg, "probe", probeString(rep.Probe))
	} else {
		s.log.Debug("probe", "bytes", probeString(rep.Probe), "verdict", string(verdict))
	}

	cfg := s.dev.Config()
	enc := ihex.NewEncoder(w)
	header := []string{
		s.chip + " flash dump, " + strconv.Itoa(cfg.FlashSize) + " bytes",
		"Chip ID: " + id.String() + "  Status: 0x" + hex8(byte(gr.Status)),
		"Probe: " + probeString(rep.Probe),
	}
	for _, line := range header {
		if err := enc.Comment(line); err != nil {
			return rep, fmt.Errorf("hex: %w", err)
		}
	}

	total, blocks := cfg.FlashSize, cfg.Blocks()
	s.report(Progress{Phase: PhaseReading, TotalBlocks: blocks, TotalBytes: total})
	buf := make([]byte, cfg.BlockSize)
	err = s.dev.Dump(ctx, clr, buf, func(addr uint16, blk []byte) error {
		if err := enc.Write(addr, blk); err != nil {
			return err
		}
		rep.Blocks++
		rep.Bytes += len(blk)
		p := Progress{
			Phase:       PhaseReading,
			Block:       rep.Blocks,
			TotalBlocks: blocks,
			Bytes:       rep.Bytes,
			TotalBytes:  total,
			Percent:     mathx.Percent(rep.Bytes, total),
			Elapsed:     time.Since(s.start),
		}
		s.report(p)
		if rep.Blocks%64 == 0 || rep.Blocks == blocks {
			s.log.Info("progress", "percent", p.Percent, "bytes", p.Bytes, "total", total, "elapsed", p.Elapsed.Round(time.Second).String())
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("extract at 0x%04X: %w", cc111x.FlashBase+rep.Bytes, err)
	}
	if err := enc.Close(); err != nil {
		return rep, fmt.Errorf("hex: %w", err)
	}
	rep.Complete = true
	s.log.Info("dump complete", "bytes", rep.Bytes, "blocks", rep.Blocks)
	return rep, nil
}

// logEntry copies the sequencer's record into the report and logs it. The
// sequencer never logs itself; this runs after the timing window.
func (s *Session) logEntry(rep *types.DumpReport) {
	seq := s.dev.Sequencer()
	rep.Attempts = len(seq.Attempts())
	for i, a := range seq.Attempts() {
		if a.ChipID.Valid() {
			continue
		}
		s.log.Warn("no chip id", "attempt", i+1, "chip_id", a.ChipID.String(), "status", a.Status.String())
	}
	for _, st := range seq.History() {
		s.log.Debug("entry", "state", st.String())
	}
}

func (s *Session) releaseChip() {
	s.report(Progress{Phase: PhaseReleasing})
	s.dev.Release()
	s.log.Debug("chip released")
}

func (s *Session) report(p Progress) {
	if s.progress == nil {
		return
	}
	if p.Elapsed == 0 {
		p.Elapsed = time.Since(s.start)
	}
	s.progress(p)
}

func hex8(b byte) string {
	var buf [2]byte
	return string(conv.AppendHex8(buf[:0], b))
}

func hex16(v uint16) string {
	var buf [4]byte
	return string(conv.AppendHex16(buf[:0], v))
}

func probeString(b [3]byte) string {
	out := make([]byte, 0, 48)
	for i, v := range b {
		if i > 0 {
			out = append(out, ' ')
		}
		out = append(out, "flash["...)
		out = strconv.AppendInt(out, int64(i), 10)
		out = append(out, "]=0x"...)
		out = conv.AppendHex8(out, v)
	}
	return string(out)
}
