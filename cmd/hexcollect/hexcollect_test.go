package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/shlex"
	"github.com/rs/zerolog"

	"ccdump-go/x/ihex"
)

func TestSelfTest(t *testing.T) {
	var out bytes.Buffer
	if err := selfTest(&out); err != nil {
		t.Fatalf("self-test: %v\n%s", err, out.String())
	}
	if !strings.Contains(out.String(), "0030: 30 31 32") {
		t.Fatalf("hexdump missing:\n%s", out.String())
	}
}

func TestCollectSkipsLogsAndStopsAtEOF(t *testing.T) {
	data := make([]byte, 48)
	for i := range data {
		data[i] = byte(0xA0 + i)
	}
	var in bytes.Buffer
	in.WriteString("[ccdump] boot\n; CC1110F32 flash dump, 48 bytes\n")
	if err := ihex.Encode(&in, 0, data); err != nil {
		t.Fatal(err)
	}
	in.WriteString(":10003000FFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFFD0\n")

	c, err := collect(&in, zerolog.Nop())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if !c.gotEOF || len(c.records) != 3 || c.logLines != 2 {
		t.Fatalf("capture: eof=%v records=%d logs=%d", c.gotEOF, len(c.records), c.logLines)
	}
	_, bin := ihex.Flatten(c.records, 0xFF)
	if diff := cmp.Diff(data, bin); diff != "" {
		t.Fatalf("bin (-want +got):\n%s", diff)
	}
}

func TestCollectPartialStream(t *testing.T) {
	in := strings.NewReader(":03000000020000FB\n:0300030002000FFF\n")
	c, err := collect(in, zerolog.Nop())
	if err != nil {
		t.Fatalf("collect: %v", err)
	}
	if c.gotEOF || len(c.records) != 1 {
		t.Fatalf("capture: eof=%v records=%d", c.gotEOF, len(c.records))
	}
}

func TestWriteOutputsAndSummary(t *testing.T) {
	data := append([]byte{0x02, 0x00, 0x40}, bytes.Repeat([]byte{0xFF}, 61)...)
	c := capture{records: []ihex.Record{{Addr: 0, Data: data[:32]}, {Addr: 32, Data: data[32:]}}, gotEOF: true}
	base, bin := ihex.Flatten(c.records, 0xFF)

	out := filepath.Join(t.TempDir(), "dump")
	hexPath, binPath, err := writeOutputs(out, c, bin)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	gotBin, err := os.ReadFile(binPath)
	if err != nil || !bytes.Equal(gotBin, data) {
		t.Fatalf("bin file: %v", err)
	}
	hexText, err := os.ReadFile(hexPath)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(hexText), ":10000000020040") || !strings.HasSuffix(string(hexText), ":00000001FF\n") {
		t.Fatalf("hex file:\n%s", hexText)
	}

	s := summarize(c, base, bin, 64)
	if !s.Complete() || s.Records != 2 || len(s.Head) != 32 {
		t.Fatalf("summary = %+v", s)
	}
	if s.FFRatio < 0.95 || !s.MostlyErased() {
		t.Fatalf("ff ratio = %v", s.FFRatio)
	}
}

func TestWriteOutputsKeepsCallerImage(t *testing.T) {
	c := capture{records: []ihex.Record{
		{Addr: 0x10, Data: []byte{0x02, 0x00, 0x40}},
		{Addr: 0x20, Data: []byte{0x22}},
	}}
	base, bin := ihex.Flatten(c.records, 0x00)
	if base != 0x10 || len(bin) != 17 {
		t.Fatalf("flatten: base=%#x len=%d", base, len(bin))
	}

	_, binPath, err := writeOutputs(filepath.Join(t.TempDir(), "gap"), c, bin)
	if err != nil {
		t.Fatalf("write: %v", err)
	}
	got, err := os.ReadFile(binPath)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(bin, got); diff != "" {
		t.Fatalf("bin file (-want +got):\n%s", diff)
	}
}

func TestHexdumpRow(t *testing.T) {
	var out bytes.Buffer
	hexdump(&out, 0x10, []byte("AB\x00"))
	want := "0010: 41 42 00" + strings.Repeat("   ", 13) + "  AB.\n"
	if out.String() != want {
		t.Fatalf("hexdump = %q want %q", out.String(), want)
	}
}

func TestTriggerQuoting(t *testing.T) {
	args, err := shlex.Split(`picotool load -x "fw image.uf2"`)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]string{"picotool", "load", "-x", "fw image.uf2"}, args); diff != "" {
		t.Fatalf("split (-want +got):\n%s", diff)
	}
	if _, err := startTrigger(context.Background(), "  "); err == nil {
		t.Fatalf("empty trigger accepted")
	}
}

func TestTimeoutSeconds(t *testing.T) {
	for _, c := range []struct {
		in   time.Duration
		want int
		ok   bool
	}{
		{0, 0, true},
		{time.Second, 1, true},
		{1500 * time.Millisecond, 2, true},
		{90 * time.Second, 90, true},
		{400 * time.Millisecond, 0, false},
		{-time.Second, 0, false},
	} {
		got, err := timeoutSeconds(c.in)
		if (err == nil) != c.ok || got != c.want {
			t.Fatalf("timeoutSeconds(%s) = %d, %v", c.in, got, err)
		}
	}
}
