// hexcollect captures an Intel HEX flash dump streamed by ccdump-pico and
// saves it as .hex and .bin, then prints a short analysis.
//
//	hexcollect -in /dev/ttyACM0 -out cc1110_flash
//	hexcollect -config ccdump.toml
//	hexcollect -selftest
//
// Serial devices are opened at 115200 8N1 and reopened if the board resets
// mid-capture. Lines that are not HEX records are shown as device logs.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"os"
	"os/exec"
	"os/signal"
	"time"

	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"ccdump-go/internal/config"
	"ccdump-go/internal/logging"
	"ccdump-go/types"
	"ccdump-go/x/ihex"
)

func main() {
	var (
		cfgPath  = flag.String("config", "", "TOML config file")
		in       = flag.String("in", "", "input device or file (- for stdin)")
		out      = flag.String("out", "", "output base path")
		trigger  = flag.String("trigger", "", "command started before reading, e.g. a reset helper")
		expected = flag.Int("expected", 0, "expected image size in bytes")
		timeout  = flag.Duration("timeout", 0, "give up after this long (0 = wait for EOF)")
		asJSON   = flag.Bool("json", false, "print the summary as JSON on stdout")
		self     = flag.Bool("selftest", false, "run the encoder/parser self-test and exit")
	)
	flag.Parse()

	if *self {
		if err := selfTest(os.Stdout); err != nil {
			fmt.Fprintln(os.Stderr, "self-test FAILED:", err)
			os.Exit(1)
		}
		return
	}

	log := logging.Runtime("hexcollect")

	cfg := config.Default()
	if *cfgPath != "" {
		var err error
		if cfg, err = config.Load(*cfgPath); err != nil {
			log.Fatal().Err(err).Msg("config")
		}
	}
	c := cfg.Collect
	if *in != "" {
		c.Input = *in
	}
	if *out != "" {
		c.Output = *out
	}
	if *trigger != "" {
		c.Trigger = *trigger
	}
	if *expected > 0 {
		c.Expected = *expected
	}
	if *timeout != 0 {
		secs, err := timeoutSeconds(*timeout)
		if err != nil {
			log.Fatal().Err(err).Msg("flags")
		}
		c.TimeoutS = secs
	}

	if err := run(c, log, *asJSON); err != nil {
		log.Error().Err(err).Msg("capture failed")
		os.Exit(1)
	}
}

func run(c config.Collect, log zerolog.Logger, asJSON bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	if c.TimeoutS > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, time.Duration(c.TimeoutS)*time.Second)
		defer cancel()
	}

	src, err := openInput(ctx, c.Input, log)
	if err != nil {
		return err
	}
	// Closing the input is the only way to unblock a pending read.
	go func() {
		<-ctx.Done()
		src.Close()
	}()
	defer src.Close()

	var trig *exec.Cmd
	if c.Trigger != "" {
		if trig, err = startTrigger(ctx, c.Trigger); err != nil {
			return err
		}
		log.Info().Str("cmd", c.Trigger).Msg("trigger started")
	}

	log.Info().Str("input", c.Input).Str("output", c.Output).Msg("listening for Intel HEX")
	capt, err := collect(src, log)
	if err != nil && ctx.Err() == nil {
		log.Warn().Err(err).Msg("input ended")
	}
	if ctx.Err() != nil {
		log.Warn().Int("records", len(capt.records)).Msg("interrupted, saving what was collected")
	}
	if trig != nil {
		if err := trig.Wait(); err != nil && ctx.Err() == nil {
			log.Warn().Err(err).Msg("trigger command failed")
		}
	}
	if len(capt.records) == 0 {
		return fmt.Errorf("no HEX data received; check wiring and retry")
	}

	base, bin := ihex.Flatten(capt.records, 0xFF)
	hexPath, binPath, err := writeOutputs(c.Output, capt, bin)
	if err != nil {
		return err
	}
	sum := summarize(capt, base, bin, c.Expected)
	sum.HexPath, sum.BinPath = hexPath, binPath
	report(os.Stdout, log, capt.gotEOF, sum, asJSON)
	return nil
}

// timeoutSeconds converts the -timeout flag to whole seconds, rounding up.
// Sub-second values are refused; rounding them down would disable the
// timeout.
func timeoutSeconds(d time.Duration) (int, error) {
	switch {
	case d == 0:
		return 0, nil
	case d < 0:
		return 0, fmt.Errorf("-timeout %s is negative", d)
	case d < time.Second:
		return 0, fmt.Errorf("-timeout %s is below the 1s resolution", d)
	}
	return int((d + time.Second - 1) / time.Second), nil
}

func openInput(ctx context.Context, path string, log zerolog.Logger) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	if isSerialPort(path) {
		src := newPortSource(ctx, path, log)
		if err := src.Connect(); err != nil {
			return nil, fmt.Errorf("open input: %w", err)
		}
		return src, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open input: %w", err)
	}
	return f, nil
}

// startTrigger splits line with shell quoting rules and starts it without a
// shell.
func startTrigger(ctx context.Context, line string) (*exec.Cmd, error) {
	args, err := shlex.Split(line)
	if err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	if len(args) == 0 {
		return nil, fmt.Errorf("trigger: empty command")
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdout, cmd.Stderr = os.Stderr, os.Stderr
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("trigger: %w", err)
	}
	return cmd, nil
}

func report(w io.Writer, log zerolog.Logger, gotEOF bool, s types.CaptureSummary, asJSON bool) {
	log.Info().Int("records", s.Records).Str("path", s.HexPath).Msg("saved hex")
	log.Info().Int("bytes", s.Size).Str("path", s.BinPath).Msg("saved bin")

	switch {
	case gotEOF && s.Complete():
		log.Info().Int("bytes", s.Size).Msg("full dump captured")
	case gotEOF:
		log.Warn().Int("bytes", s.Size).Int("expected", s.Expected).Msg("dump complete but size differs")
	default:
		log.Warn().Int("bytes", s.Size).Msg("partial dump, EOF record missing")
	}

	switch {
	case s.Size > 0 && s.FFRatio == 1:
		log.Warn().Msg("flash is all 0xFF; chip may be erased or the read failed")
	case s.MostlyErased():
		log.Warn().Int("percent", int(s.FFRatio*100)).Msg("mostly 0xFF")
	default:
		log.Info().Int("non_ff", s.Size-int(s.FFRatio*float64(s.Size)+0.5)).Msg("flash content looks plausible")
	}

	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		_ = enc.Encode(s)
		return
	}
	fmt.Fprintf(w, "First %d bytes:\n", len(s.Head))
	hexdump(w, int(s.Base), s.Head)
}
