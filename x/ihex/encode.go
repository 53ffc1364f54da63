// Package ihex writes and reads Intel HEX text images limited to the 16-bit
// address space: data (00) and end-of-file (01) records only.
package ihex

import (
	"errors"
	"io"

	"ccdump-go/x/conv"
)

// Record types.
const (
	TypeData byte = 0x00
	TypeEOF  byte = 0x01
)

// MaxRecordData is the payload size Encoder splits data into.
const MaxRecordData = 16

var (
	ErrClosed      = errors.New("ihex: encoder closed")
	ErrAddressWrap = errors.New("ihex: data runs past 0xFFFF")
)

// Checksum is the two's complement of the byte sum of length, address,
// type and data. Adding it to that sum gives zero mod 256.
func Checksum(typ byte, addr uint16, data []byte) byte {
	sum := byte(len(data)) + byte(addr>>8) + byte(addr) + typ
	for _, b := range data {
		sum += b
	}
	return -sum
}

// AppendRecord appends one ":LLAAAATT[DD...]CC\n" line to dst. It panics if
// len(data) does not fit the one-byte length field.
func AppendRecord(dst []byte, typ byte, addr uint16, data []byte) []byte {
	if len(data) > 0xFF {
		panic("ihex: record longer than 255 bytes")
	}
	dst = append(dst, ':')
	dst = conv.AppendHex8(dst, byte(len(data)))
	dst = conv.AppendHex16(dst, addr)
	dst = conv.AppendHex8(dst, typ)
	for _, b := range data {
		dst = conv.AppendHex8(dst, b)
	}
	dst = conv.AppendHex8(dst, Checksum(typ, addr, data))
	return append(dst, '\n')
}

// EOFRecord is the terminating line.
const EOFRecord = ":00000001FF\n"

// Encoder streams records to w. It keeps one line buffer and allocates
// nothing per record.
type Encoder struct {
	w      io.Writer
	line   []byte
	closed bool
	n      int // data bytes written
}

func NewEncoder(w io.Writer) *Encoder {
	return &Encoder{w: w, line: make([]byte, 0, 1+2+4+2+2*MaxRecordData+2+1)}
}

// Write emits data starting at addr as records of up to MaxRecordData bytes.
func (e *Encoder) Write(addr uint16, data []byte) error {
	if e.closed {
		return ErrClosed
	}
	if int(addr)+len(data) > 0x10000 {
		return ErrAddressWrap
	}
	for len(data) > 0 {
		n := len(data)
		if n > MaxRecordData {
			n = MaxRecordData
		}
		e.line = AppendRecord(e.line[:0], TypeData, addr, data[:n])
		if _, err := e.w.Write(e.line); err != nil {
			return err
		}
		e.n += n
		addr += uint16(n)
		data = data[n:]
	}
	return nil
}

// Comment writes a "; text" line. Readers skip lines not starting with ':'.
func (e *Encoder) Comment(text string) error {
	if e.closed {
		return ErrClosed
	}
	e.line = append(append(append(e.line[:0], "; "...), text...), '\n')
	_, err := e.w.Write(e.line)
	return err
}

// Bytes is the number of data bytes written so far.
func (e *Encoder) Bytes() int { return e.n }

// Close writes the EOF record. Further calls are no-ops.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	_, err := io.WriteString(e.w, EOFRecord)
	return err
}

// Encode writes data at base followed by the EOF record.
func Encode(w io.Writer, base uint16, data []byte) error {
	e := NewEncoder(w)
	if err := e.Write(base, data); err != nil {
		return err
	}
	return e.Close()
}
