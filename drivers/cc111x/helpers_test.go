package cc111x_test

import (
	"context"
	"testing"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/drivers/cc111x/cc111xsim"
	"ccdump-go/x/timex"
)

func pattern(n int) []byte {
	b := make([]byte, n)
	for i := range b {
		b[i] = byte(i*7 + 3)
	}
	return b
}

func newRig(t *testing.T, tgt *cc111xsim.Target, mutate func(*cc111x.Config)) (*cc111x.Device, *timex.Virtual) {
	t.Helper()
	link, err := tgt.Link()
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	clk := &timex.Virtual{}
	cfg := cc111x.DefaultConfig()
	cfg.Sleeper = clk
	if mutate != nil {
		mutate(&cfg)
	}
	d, err := cc111x.New(link, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return d, clk
}

// gated attaches and passes the gate, failing the test otherwise.
func gated(t *testing.T, d *cc111x.Device) cc111x.Clearance {
	t.Helper()
	ctx := context.Background()
	id, err := d.Attach(ctx)
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	clr, _, err := d.Check(ctx, id)
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	return clr
}
