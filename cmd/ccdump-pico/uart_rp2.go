//go:build rp2040

package main

import (
	"io"
	"machine"

	uartx "github.com/jangala-dev/tinygo-uartx/uartx"
)

const (
	hexBaud = 115200
	hexTX   = machine.GPIO0
	hexRX   = machine.GPIO1
)

// openUART prepares UART0 for the HEX stream.
func openUART() (io.Writer, error) {
	u := uartx.UART0
	if err := u.Configure(uartx.UARTConfig{BaudRate: hexBaud, TX: hexTX, RX: hexRX}); err != nil {
		return nil, err
	}
	if err := u.SetFormat(8, 1, uartx.ParityNone); err != nil {
		return nil, err
	}
	return u, nil
}
