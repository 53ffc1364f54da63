package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.bug.st/serial"
)

const baudRate = 115200

// serialMode is the firmware's UART0 format.
var serialMode = serial.Mode{
	BaudRate: baudRate,
	DataBits: 8,
	Parity:   serial.NoParity,
	StopBits: serial.OneStopBit,
}

func openPort(name string) (io.ReadCloser, error) {
	p, err := serial.Open(name, &serialMode)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// portListed reports whether name is among the serial ports the OS knows.
func portListed(name string) bool {
	ports, err := serial.GetPortsList()
	if err != nil {
		return false
	}
	for _, p := range ports {
		if strings.EqualFold(p, name) {
			return true
		}
	}
	return false
}

// isSerialPort tells a serial device from a capture file. Windows COM ports
// cannot be stat'ed, so the port list decides for them.
func isSerialPort(name string) bool {
	if fi, err := os.Stat(name); err == nil {
		return fi.Mode()&os.ModeCharDevice != 0
	}
	return portListed(name)
}

// portSource reads a serial device and rides out the device resetting. A
// USB CDC port disappears while the board reboots; when a read fails the
// source waits for the port to be listed again and reopens it.
type portSource struct {
	ctx  context.Context
	name string
	log  zerolog.Logger

	open   func(name string) (io.ReadCloser, error)
	listed func(name string) bool

	OpenAttempts int
	OpenDelay    time.Duration
	PollInterval time.Duration
	Reappear     time.Duration // how long to wait for the port to come back
	SettleDelay  time.Duration // after it is listed, before opening

	mu     sync.Mutex
	port   io.ReadCloser
	closed bool
}

func newPortSource(ctx context.Context, name string, log zerolog.Logger) *portSource {
	return &portSource{
		ctx:          ctx,
		name:         name,
		log:          log,
		open:         openPort,
		listed:       portListed,
		OpenAttempts: 5,
		OpenDelay:    time.Second,
		PollInterval: 500 * time.Millisecond,
		Reappear:     30 * time.Second,
		SettleDelay:  300 * time.Millisecond,
	}
}

// Connect opens the port, retrying while a freshly reset board enumerates.
func (s *portSource) Connect() error {
	var err error
	for i := 0; i < s.OpenAttempts; i++ {
		if i > 0 && !s.wait(s.OpenDelay) {
			return s.ctx.Err()
		}
		var p io.ReadCloser
		if p, err = s.open(s.name); err == nil {
			s.mu.Lock()
			defer s.mu.Unlock()
			if s.closed {
				p.Close()
				return io.ErrClosedPipe
			}
			s.port = p
			return nil
		}
		s.log.Debug().Err(err).Int("attempt", i+1).Str("port", s.name).Msg("open failed")
	}
	return fmt.Errorf("cannot open %s after %d attempts: %w", s.name, s.OpenAttempts, err)
}

func (s *portSource) Read(p []byte) (int, error) {
	for {
		s.mu.Lock()
		port, closed := s.port, s.closed
		s.mu.Unlock()
		if closed {
			return 0, io.EOF
		}
		if port == nil {
			return 0, errors.New("port not connected")
		}

		n, err := port.Read(p)
		if n > 0 {
			return n, nil
		}
		if err == nil {
			continue
		}
		if s.isClosed() {
			return 0, io.EOF
		}

		s.log.Warn().Err(err).Str("port", s.name).Msg("serial disconnected, waiting for the port to reappear")
		port.Close()
		if !s.waitForPort() {
			if cerr := s.ctx.Err(); cerr != nil {
				return 0, cerr
			}
			return 0, fmt.Errorf("%s did not come back within %s: %w", s.name, s.Reappear, err)
		}
		if err := s.Connect(); err != nil {
			return 0, err
		}
		s.log.Info().Str("port", s.name).Msg("reconnected")
	}
}

// Close stops reading; a Read blocked on the port returns io.EOF.
func (s *portSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if s.port != nil {
		return s.port.Close()
	}
	return nil
}

func (s *portSource) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

func (s *portSource) waitForPort() bool {
	deadline := time.Now().Add(s.Reappear)
	for {
		if s.listed(s.name) {
			return s.wait(s.SettleDelay)
		}
		if !time.Now().Before(deadline) || !s.wait(s.PollInterval) {
			return false
		}
	}
}

// wait sleeps for d unless ctx ends first.
func (s *portSource) wait(d time.Duration) bool {
	if d <= 0 {
		return s.ctx.Err() == nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-s.ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
