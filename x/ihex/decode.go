package ihex

import (
	"bufio"
	"errors"
	"io"
	"strconv"
	"strings"

	"ccdump-go/x/conv"
)

var (
	ErrSyntax   = errors.New("ihex: malformed record")
	ErrChecksum = errors.New("ihex: checksum mismatch")
	ErrNoEOF    = errors.New("ihex: missing EOF record")
	ErrGap      = errors.New("ihex: records are not contiguous")
)

// ParseError locates a bad record.
type ParseError struct {
	Line int
	Err  error
}

func (e *ParseError) Error() string { return "line " + strconv.Itoa(e.Line) + ": " + e.Err.Error() }
func (e *ParseError) Unwrap() error { return e.Err }

// Record is one decoded line.
type Record struct {
	Type byte
	Addr uint16
	Data []byte
}

// ParseRecord decodes a single ":..." line (trailing whitespace allowed).
func ParseRecord(line string) (Record, error) {
	line = strings.TrimRight(line, " \t\r\n")
	if len(line) < 11 || line[0] != ':' || len(line)%2 == 0 {
		return Record{}, ErrSyntax
	}
	raw := make([]byte, (len(line)-1)/2)
	for i := range raw {
		b, ok := conv.ParseHex8(line[1+2*i], line[2+2*i])
		if !ok {
			return Record{}, ErrSyntax
		}
		raw[i] = b
	}
	n := int(raw[0])
	if len(raw) != n+5 {
		return Record{}, ErrSyntax
	}
	var sum byte
	for _, b := range raw {
		sum += b
	}
	if sum != 0 {
		return Record{}, ErrChecksum
	}
	return Record{
		Type: raw[3],
		Addr: uint16(raw[1])<<8 | uint16(raw[2]),
		Data: raw[4 : 4+n],
	}, nil
}

// Decoder reads records from a line stream that may carry other text, such
// as firmware log output interleaved with the dump.
type Decoder struct {
	sc   *bufio.Scanner
	line int
	done bool

	// Other receives every line that is not a record.
	Other func(line string)
}

func NewDecoder(r io.Reader) *Decoder {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 1024), 64*1024)
	return &Decoder{sc: sc}
}

// Next returns the next data record. It returns io.EOF after the EOF record
// and ErrNoEOF if the stream ends without one.
func (d *Decoder) Next() (Record, error) {
	if d.done {
		return Record{}, io.EOF
	}
	for d.sc.Scan() {
		d.line++
		text := strings.TrimSpace(d.sc.Text())
		if !strings.HasPrefix(text, ":") {
			if d.Other != nil && text != "" {
				d.Other(text)
			}
			continue
		}
		rec, err := ParseRecord(text)
		if err != nil {
			return Record{}, &ParseError{Line: d.line, Err: err}
		}
		switch rec.Type {
		case TypeEOF:
			d.done = true
			return Record{}, io.EOF
		case TypeData:
			return rec, nil
		}
		// Other record types carry nothing in a 16-bit image.
	}
	if err := d.sc.Err(); err != nil {
		return Record{}, err
	}
	return Record{}, ErrNoEOF
}

// Parse reads all data records up to the EOF record.
func Parse(r io.Reader) ([]Record, error) {
	d := NewDecoder(r)
	var out []Record
	for {
		rec, err := d.Next()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return out, err
		}
		out = append(out, rec)
	}
}

// Image joins contiguous ascending records into one buffer.
func Image(recs []Record) (base uint16, data []byte, err error) {
	if len(recs) == 0 {
		return 0, nil, nil
	}
	base = recs[0].Addr
	next := int(base)
	for _, r := range recs {
		if int(r.Addr) != next {
			return base, data, ErrGap
		}
		data = append(data, r.Data...)
		next += len(r.Data)
	}
	return base, data, nil
}

// Flatten places records into one buffer spanning their lowest to highest
// address, in any order, with holes set to fill. Later records win.
func Flatten(recs []Record, fill byte) (base uint16, data []byte) {
	if len(recs) == 0 {
		return 0, nil
	}
	lo, hi := 0x10000, 0
	for _, r := range recs {
		if len(r.Data) == 0 {
			continue
		}
		if int(r.Addr) < lo {
			lo = int(r.Addr)
		}
		if end := int(r.Addr) + len(r.Data); end > hi {
			hi = end
		}
	}
	if hi <= lo {
		return 0, nil
	}
	data = make([]byte, hi-lo)
	for i := range data {
		data[i] = fill
	}
	for _, r := range recs {
		if len(r.Data) > 0 {
			copy(data[int(r.Addr)-lo:], r.Data)
		}
	}
	return uint16(lo), data
}
