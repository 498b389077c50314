package controller

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.bug.st/serial"
)

// Channel is the byte-level link to the controller. go.bug.st/serial.Port
// satisfies it, as does the simulated device used in tests.
//
// Read must return (0, nil) or an error once no data arrives within the
// channel's read timeout; a Session treats either as a truncated response.
type Channel interface {
	io.ReadWriter
	// ResetInputBuffer discards any received but unread bytes.
	ResetInputBuffer() error
}

// Default serial settings of the controller.
const (
	DefaultBaudRate    = 9600
	DefaultReadTimeout = 1 * time.Second
)

// PortOptions describes the serial connection parameters of the controller
// link.
type PortOptions struct {
	BaudRate    int
	DataBits    int
	StopBits    int
	Parity      string
	ReadTimeout time.Duration
}

// Normalize validates the options and applies defaults for any unset values.
func (o PortOptions) Normalize() (PortOptions, error) {
	opts := o

	if opts.BaudRate <= 0 {
		opts.BaudRate = DefaultBaudRate
	}

	if opts.DataBits == 0 {
		opts.DataBits = 8
	}
	if opts.DataBits < 5 || opts.DataBits > 8 {
		return opts, fmt.Errorf("controller: invalid data bits %d: must be between 5 and 8", opts.DataBits)
	}

	if opts.StopBits == 0 {
		opts.StopBits = 1
	}
	if opts.StopBits != 1 && opts.StopBits != 2 {
		return opts, fmt.Errorf("controller: invalid stop bits %d: supported values are 1 or 2", opts.StopBits)
	}

	switch strings.ToUpper(strings.TrimSpace(opts.Parity)) {
	case "", "N", "NONE":
		opts.Parity = "N"
	case "E", "EVEN":
		opts.Parity = "E"
	case "O", "ODD":
		opts.Parity = "O"
	default:
		return opts, fmt.Errorf("controller: unsupported parity %q: expected N, E, or O", o.Parity)
	}

	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout = DefaultReadTimeout
	}

	return opts, nil
}

// SerialMode converts the options into the serial.Mode used to open a port.
func (o PortOptions) SerialMode() (*serial.Mode, error) {
	opts, err := o.Normalize()
	if err != nil {
		return nil, err
	}

	mode := &serial.Mode{
		BaudRate: opts.BaudRate,
		DataBits: opts.DataBits,
		StopBits: serial.OneStopBit,
	}
	if opts.StopBits == 2 {
		mode.StopBits = serial.TwoStopBits
	}

	switch opts.Parity {
	case "E":
		mode.Parity = serial.EvenParity
	case "O":
		mode.Parity = serial.OddParity
	default:
		mode.Parity = serial.NoParity
	}

	return mode, nil
}

// OpenSerial opens the serial port at path and applies the read timeout.
func OpenSerial(path string, opts PortOptions) (serial.Port, error) {
	norm, err := opts.Normalize()
	if err != nil {
		return nil, err
	}

	mode, err := norm.SerialMode()
	if err != nil {
		return nil, err
	}

	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("controller: open %s: %w", path, err)
	}

	if err := port.SetReadTimeout(norm.ReadTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("controller: set read timeout on %s: %w", path, err)
	}

	return port, nil
}
