//go:build !rp2040 && !rp2350

// ccsim runs a complete dump session against the simulated CC1110 target,
// bit for bit, without hardware. It exercises the same driver and session
// code as the firmware.
//
//	ccsim -image app.bin -out app.hex
//	ccsim -locked            # shows the lock refusal path
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/rs/zerolog"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/drivers/cc111x/cc111xsim"
	"ccdump-go/internal/config"
	"ccdump-go/internal/logging"
	"ccdump-go/platform"
	"ccdump-go/services/dump"
	"ccdump-go/x/timex"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "TOML config file")
		image    = flag.String("image", "", "flash image (.bin) loaded into the target")
		out      = flag.String("out", "-", "HEX output file (- for stdout)")
		locked   = flag.Bool("locked", false, "simulate a debug-locked chip")
		realtime = flag.Bool("realtime", false, "spin through real protocol delays")
		asJSON   = flag.Bool("json", false, "print the session report as JSON on stderr")
	)
	flag.Parse()

	log := logging.Runtime("ccsim")

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatal().Err(err).Msg("config")
		}
	}
	if *image != "" {
		cfg.Sim.Image = *image
	}
	if *locked {
		cfg.Sim.Locked = true
	}

	if err := run(cfg, *out, *realtime, *asJSON, log); err != nil {
		os.Exit(1)
	}
}

func run(cfg config.File, outPath string, realtime, asJSON bool, log zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	tgt, err := newTarget(cfg)
	if err != nil {
		log.Error().Err(err).Msg("target")
		return err
	}
	dev, err := newDevice(tgt, cfg.Dump, realtime)
	if err != nil {
		log.Error().Err(err).Msg("device")
		return err
	}

	w, closeOut, err := openOutput(outPath)
	if err != nil {
		log.Error().Err(err).Msg("output")
		return err
	}
	defer closeOut()

	s := dump.New(dev,
		dump.WithLogger(logging.Adapter{L: log}),
		dump.WithRelease(cfg.Dump.Release),
	)
	rep, runErr := s.Run(ctx, w)

	log.Info().
		Int("entries", tgt.Entries).
		Int("pointer_sets", len(tgt.PointerSets)).
		Int("code_reads", len(tgt.CodeReads)).
		Int("commands", len(tgt.Commands)).
		Msg("target counters")
	if asJSON {
		enc := json.NewEncoder(os.Stderr)
		enc.SetIndent("", "  ")
		_ = enc.Encode(rep)
	}
	return runErr
}

func newTarget(cfg config.File) (*cc111xsim.Target, error) {
	size := cfg.Dump.DriverConfig().FlashSize
	flash := make([]byte, size)
	if cfg.Sim.Image != "" {
		img, err := os.ReadFile(cfg.Sim.Image)
		if err != nil {
			return nil, fmt.Errorf("read image: %w", err)
		}
		for i := range flash {
			flash[i] = 0xFF
		}
		copy(flash, img)
	} else {
		// LJMP 0x0040 followed by a counting pattern.
		for i := range flash {
			flash[i] = byte(i)
		}
		flash[0], flash[1], flash[2] = 0x02, 0x00, 0x40
	}

	tgt := cc111xsim.New(flash)
	tgt.ChipID = uint16(cfg.Sim.ChipID)
	tgt.Locked = cfg.Sim.Locked
	tgt.OscUnstableReads = cfg.Sim.OscUnstableReads
	tgt.IgnoreHalt = cfg.Sim.IgnoreHalt
	tgt.BusyRounds = cfg.Sim.BusyRounds
	return tgt, nil
}

func newDevice(tgt *cc111xsim.Target, c dump.Config, realtime bool) (*cc111x.Device, error) {
	link, err := tgt.Link()
	if err != nil {
		return nil, err
	}
	drv := c.DriverConfig()
	drv.CriticalSection = platform.CriticalSection
	if realtime {
		drv.Sleeper = platform.DefaultSleeper()
	} else {
		drv.Sleeper = &timex.Virtual{}
	}
	return cc111x.New(link, drv)
}

func openOutput(path string) (io.Writer, func(), error) {
	if path == "" || path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}
	return f, func() { f.Close() }, nil
}
