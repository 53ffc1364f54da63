//go:build rp2040

// ccdump-pico reads the flash of a CC1110 wired to a Pico and streams it
// as Intel HEX over UART0. Status lines go to the USB console.
//
// Wiring: GP2 -> DC (P2_2), GP3 <-> DD (P2_1), GP4 -> RESET_N, GND common,
// target at 3.3 V.
package main

import (
	"context"
	"time"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/platform"
	"ccdump-go/services/dump"
)

const owner = "ccdump"

func main() {
	// Give the USB console time to enumerate.
	time.Sleep(2 * time.Second)
	println("[ccdump] boot")

	cfg := dump.DefaultConfig()
	out, err := openUART()
	if err != nil {
		println("[ccdump] FAIL: uart:", err.Error())
		idle()
	}

	reg := platform.NewRegistry(platform.DefaultPinFactory())
	dc, err1 := reg.Claim(owner, cfg.Pins.DC)
	dd, err2 := reg.Claim(owner, cfg.Pins.DD)
	rst, err3 := reg.Claim(owner, cfg.Pins.Reset)
	for _, e := range []error{err1, err2, err3} {
		if e != nil {
			println("[ccdump] FAIL: pins:", e.Error())
			idle()
		}
	}
	link, err := cc111x.NewLink(dc, dd, rst)
	if err != nil {
		println("[ccdump] FAIL: link:", err.Error())
		idle()
	}

	drv := cfg.DriverConfig()
	drv.Sleeper = platform.DefaultSleeper()
	drv.CriticalSection = platform.CriticalSection
	dev, err := cc111x.New(link, drv)
	if err != nil {
		println("[ccdump] FAIL: config:", err.Error())
		idle()
	}

	s := dump.New(dev,
		dump.WithLogger(consoleLogger{}),
		dump.WithProgressCallback(func(p dump.Progress) {
			if p.Phase != dump.PhaseReading {
				println("[ccdump] phase", string(p.Phase))
			}
		}),
	)
	rep, err := s.Run(context.Background(), out)
	if err != nil {
		println("[ccdump] FAIL:", err.Error())
	} else {
		println("[ccdump] done:", rep.Bytes, "bytes in", rep.ElapsedMs, "ms")
	}

	for _, n := range []int{cfg.Pins.DC, cfg.Pins.DD, cfg.Pins.Reset} {
		reg.Release(owner, n)
	}
	idle()
}

func idle() {
	for {
		time.Sleep(time.Hour)
	}
}
