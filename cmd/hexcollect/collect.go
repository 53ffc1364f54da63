package main

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rs/zerolog"

	"ccdump-go/types"
	"ccdump-go/x/ihex"
)

// capture is what one read of the device stream produced.
type capture struct {
	records  []ihex.Record
	logLines int
	gotEOF   bool
}

// collect reads records until the EOF record, echoing any other line as a
// device log. A stream that stops early yields a partial capture and the
// read error, if any.
func collect(r io.Reader, log zerolog.Logger) (capture, error) {
	var c capture
	d := ihex.NewDecoder(r)
	d.Other = func(line string) {
		c.logLines++
		log.Info().Str("src", "device").Msg(line)
	}
	for {
		rec, err := d.Next()
		switch {
		case err == io.EOF:
			c.gotEOF = true
			log.Info().Int("records", len(c.records)).Msg("EOF record received")
			return c, nil
		case errors.Is(err, ihex.ErrNoEOF):
			return c, nil
		case err != nil:
			var pe *ihex.ParseError
			if errors.As(err, &pe) {
				// A garbled line is logged and skipped; the EOF check and
				// size summary reveal what it cost.
				log.Warn().Int("line", pe.Line).Err(pe.Err).Msg("bad record")
				continue
			}
			return c, err
		}
		c.records = append(c.records, rec)
		if rec.Addr%1024 == 0 {
			log.Info().Str("addr", fmt.Sprintf("0x%04X", rec.Addr)).Int("kb", int(rec.Addr)/1024).Msg("progress")
		}
	}
}

// writeOutputs stores the capture as <out>.hex and bin as <out>.bin. The
// .hex is re-encoded from the decoded records; the EOF record is written
// only if it was received.
func writeOutputs(out string, c capture, bin []byte) (hexPath, binPath string, err error) {
	hexPath, binPath = out+".hex", out+".bin"

	var buf bytes.Buffer
	enc := ihex.NewEncoder(&buf)
	for _, r := range c.records {
		if err := enc.Write(r.Addr, r.Data); err != nil {
			return "", "", err
		}
	}
	if c.gotEOF {
		if err := enc.Close(); err != nil {
			return "", "", err
		}
	}
	if err := os.WriteFile(hexPath, buf.Bytes(), 0o644); err != nil {
		return "", "", fmt.Errorf("write hex: %w", err)
	}

	if err := os.WriteFile(binPath, bin, 0o644); err != nil {
		return "", "", fmt.Errorf("write bin: %w", err)
	}
	return hexPath, binPath, nil
}

func summarize(c capture, base uint16, bin []byte, expected int) types.CaptureSummary {
	s := types.CaptureSummary{
		Base:     base,
		Size:     len(bin),
		Expected: expected,
		Records:  len(c.records),
		LogLines: c.logLines,
	}
	if len(bin) > 0 {
		s.FFRatio = float64(bytes.Count(bin, []byte{0xFF})) / float64(len(bin))
	}
	n := len(bin)
	if n > 32 {
		n = 32
	}
	s.Head = append([]byte(nil), bin[:n]...)
	return s
}

// hexdump renders 16-byte rows: "0000: 02 00 40 ...  ..@".
func hexdump(w io.Writer, base int, b []byte) {
	for i := 0; i < len(b); i += 16 {
		row := b[i:min(i+16, len(b))]
		fmt.Fprintf(w, "%04X:", base+i)
		for _, v := range row {
			fmt.Fprintf(w, " %02X", v)
		}
		for j := len(row); j < 16; j++ {
			io.WriteString(w, "   ")
		}
		io.WriteString(w, "  ")
		for _, v := range row {
			if v >= 32 && v < 127 {
				w.Write([]byte{v})
			} else {
				io.WriteString(w, ".")
			}
		}
		io.WriteString(w, "\n")
	}
}
