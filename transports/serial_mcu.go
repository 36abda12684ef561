//go:build baremetal

package transports

import (
	"errors"
	"fmt"
	"machine"
	"time"
)

// MCUTransport implements Transport over a microcontroller UART.
type MCUTransport struct {
	*machine.UART
}

// SerialConfig holds configuration for opening a serial port.
type SerialConfig struct {
	Port     string
	BaudRate int
	Timeout  time.Duration
}

// OpenSerial gets a UART port with the given configuration. Port selects
// the UART by index ("0" or "1").
func OpenSerial(cfg SerialConfig) (*MCUTransport, error) {
	if cfg.Port == "" {
		return nil, errors.New("serial port is required")
	}

	if cfg.BaudRate == 0 {
		cfg.BaudRate = 115200
	}

	var t *MCUTransport
	switch cfg.Port {
	case "0":
		t = &MCUTransport{machine.UART0}
	case "1":
		t = &MCUTransport{machine.UART1}
	default:
		return nil, fmt.Errorf("unknown UART %s", cfg.Port)
	}

	t.SetBaudRate(uint32(cfg.BaudRate))

	return t, nil
}

// SetReadTimeout is a no-op: UART reads return whatever is buffered and the
// caller enforces its own deadline.
func (t *MCUTransport) SetReadTimeout(timeout time.Duration) error {
	return nil
}

func (t *MCUTransport) Close() error {
	return nil
}

// Flush discards any buffered input data.
func (t *MCUTransport) Flush() error {
	for t.Buffered() > 0 {
		t.ReadByte()
	}
	return nil
}
