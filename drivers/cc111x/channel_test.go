package cc111x_test

import (
	"context"
	"testing"

	"ccdump-go/drivers/cc111x"
	"ccdump-go/drivers/cc111x/cc111xsim"
	"ccdump-go/platform"
	"ccdump-go/x/timex"
)

func bareDevice(t *testing.T) (*cc111x.Device, *platform.FakePin, *platform.FakePin) {
	t.Helper()
	f := &platform.HostPinFactory{}
	dc, dd, rst := f.Fake(2), f.Fake(3), f.Fake(4)
	link, err := cc111x.NewLink(dc, dd, rst)
	if err != nil {
		t.Fatalf("link: %v", err)
	}
	cfg := cc111x.DefaultConfig()
	cfg.Sleeper = &timex.Virtual{}
	d, err := cc111x.New(link, cfg)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	return d, dc, dd
}

func TestSendByteLatchesMSBFirstOnFallingEdge(t *testing.T) {
	d, dc, dd := bareDevice(t)
	var latched []bool
	rising := 0
	dc.OnChange(func(level bool) {
		if level {
			rising++
			return
		}
		latched = append(latched, dd.Level())
	})

	d.BitClock().SendByte(0xA5)

	want := []bool{true, false, true, false, false, true, false, true}
	if rising != 8 || len(latched) != 8 {
		t.Fatalf("edges: rising=%d falling=%d", rising, len(latched))
	}
	for i := range want {
		if latched[i] != want[i] {
			t.Fatalf("bit %d: got %v want %v", i, latched[i], want[i])
		}
	}
	if !d.Link().DataIsOutput() {
		t.Fatalf("DD should be output after a write")
	}
}

func TestRecvByteSamplesWhileClockHigh(t *testing.T) {
	d, dc, dd := bareDevice(t)
	const v = 0x3C
	n := 0
	dc.OnChange(func(level bool) {
		if level {
			dd.Drive(v>>uint(7-n)&1 == 1)
			n++
		}
	})

	if got := d.BitClock().RecvByte(); got != v {
		t.Fatalf("RecvByte = 0x%02X want 0x%02X", got, v)
	}
	if d.Link().DataIsOutput() {
		t.Fatalf("DD should be input after a read")
	}
}

func TestFloatingLineReadsAllOnes(t *testing.T) {
	d, _, _ := bareDevice(t)
	if id := d.Channel().ChipID(); id != 0xFFFF || id.Valid() {
		t.Fatalf("ChipID on a dead link = %s", id)
	}
}

func TestExchangeRejectsWrongRequestLength(t *testing.T) {
	d, _, _ := bareDevice(t)
	defer func() {
		if recover() == nil {
			t.Fatalf("expected panic")
		}
	}()
	d.Channel().Exchange(cc111x.CmdDebugInstr2, []byte{0xE4})
}

func TestCommandTable(t *testing.T) {
	cases := []struct {
		op        byte
		name      string
		req, resp uint8
	}{
		{0x34, "READ_STATUS", 0, 1},
		{0x68, "GET_CHIP_ID", 0, 2},
		{0x44, "HALT", 0, 1},
		{0x4C, "RESUME", 0, 1},
		{0x55, "DEBUG_INSTR_1", 1, 1},
		{0x56, "DEBUG_INSTR_2", 2, 1},
		{0x57, "DEBUG_INSTR_3", 3, 1},
		{0x1D, "WR_CONFIG", 1, 1},
		{0x24, "RD_CONFIG", 0, 1},
		{0x28, "GET_PC", 0, 2},
		{0x14, "CHIP_ERASE", 0, 1},
	}
	for _, c := range cases {
		cmd, ok := cc111x.LookupOpcode(c.op)
		if !ok {
			t.Fatalf("opcode 0x%02X missing", c.op)
		}
		if cmd.Name != c.name || cmd.Req != c.req || cmd.Resp != c.resp {
			t.Fatalf("opcode 0x%02X = %+v", c.op, cmd)
		}
	}
	if _, ok := cc111x.LookupOpcode(0x00); ok {
		t.Fatalf("opcode 0x00 should be unknown")
	}
}

func TestReadyPollingWaitsOutBusyTarget(t *testing.T) {
	tgt := cc111xsim.New(nil)
	tgt.BusyRounds = 2
	d, _ := newRig(t, tgt, func(c *cc111x.Config) { c.ReadyPolls = 4 })

	id, err := d.Attach(context.Background())
	if err != nil {
		t.Fatalf("attach: %v", err)
	}
	if id != 0x89A3 {
		t.Fatalf("id = %s", id)
	}
	if s := d.Channel().ReadStatus(); !s.OscillatorStable() {
		t.Fatalf("status = %s", s)
	}
}

func TestConfigRoundTrip(t *testing.T) {
	tgt := cc111xsim.New(nil)
	d, _ := newRig(t, tgt, nil)
	if _, err := d.Attach(context.Background()); err != nil {
		t.Fatalf("attach: %v", err)
	}
	ch := d.Channel()
	ch.WriteConfig(cc111x.ConfigTimersOff | cc111x.ConfigDMAPause)
	if got := ch.ReadConfig(); got != 0x0C {
		t.Fatalf("config = 0x%02X", got)
	}
	if tgt.Config != 0x0C {
		t.Fatalf("target config = 0x%02X", tgt.Config)
	}
}
