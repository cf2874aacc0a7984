// Package serialport provides a radio.Transport over a serial port.
package serialport

import (
	"fmt"
	"time"

	"go.bug.st/serial"
)

// DefaultBaudRate is the link speed the radios use.
const DefaultBaudRate = 38400

// readTimeout bounds each poll so the session's reader loop never blocks
// indefinitely; an expired read returns zero bytes, not an error.
const readTimeout = 20 * time.Millisecond

// Port is a serial-port transport. It satisfies radio.Transport.
type Port struct {
	port serial.Port
	buf  []byte
}

// Open opens a serial port at the default baud rate, 8N1.
//
// Example:
//
//	port, err := serialport.Open("/dev/ttyUSB0")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	sess := radio.New(port)
func Open(path string) (*Port, error) {
	return OpenBaud(path, DefaultBaudRate)
}

// OpenBaud opens a serial port at an explicit baud rate, 8N1. Any bytes
// already sitting in the OS receive buffer are discarded so a stale beacon
// backlog cannot skew detection timing.
func OpenBaud(path string, baudRate int) (*Port, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(path, mode)
	if err != nil {
		return nil, fmt.Errorf("serialport: failed to open %s: %w", path, err)
	}
	if err := port.SetReadTimeout(readTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("serialport: set read timeout: %w", err)
	}
	if err := port.ResetInputBuffer(); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("serialport: reset input buffer: %w", err)
	}

	return &Port{
		port: port,
		buf:  make([]byte, 512),
	}, nil
}

// ReadAvailable returns whatever bytes arrived within one read-timeout
// window. It returns (nil, nil) when nothing arrived.
func (p *Port) ReadAvailable() ([]byte, error) {
	n, err := p.port.Read(p.buf)
	if err != nil {
		return nil, err
	}
	if n == 0 {
		return nil, nil
	}
	out := make([]byte, n)
	copy(out, p.buf[:n])
	return out, nil
}

// Write sends bytes to the device.
func (p *Port) Write(data []byte) error {
	for len(data) > 0 {
		n, err := p.port.Write(data)
		if err != nil {
			return err
		}
		data = data[n:]
	}
	return nil
}

// Close releases the port.
func (p *Port) Close() error {
	return p.port.Close()
}

// List returns the serial port paths present on the system.
func List() ([]string, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("serialport: list ports: %w", err)
	}
	return ports, nil
}
