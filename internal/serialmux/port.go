package serialmux

import "io"

// SerialPorter is the minimal interface the mux needs from a serial port.
// The abstraction keeps unit tests off real rangefinder hardware.
type SerialPorter interface {
	io.ReadWriter
	io.Closer
}
