// Package port provides the line transports used to talk to the controller.
package port

import (
	"errors"
	"time"
)

var (
	// ErrTimeout is returned by ReadLine when no complete line arrived
	// within the read timeout. Any partial data is returned with it.
	ErrTimeout = errors.New("read timed out")

	// ErrClosed is returned when the link to the device is gone.
	ErrClosed = errors.New("connection closed")
)

// DefaultBaud and DefaultTimeout match the controller firmware.
const (
	DefaultBaud    = 115200
	DefaultTimeout = 5 * time.Second
)

// Settings are fixed when a transport is opened.
type Settings struct {
	Name    string
	Baud    int
	Timeout time.Duration
}

// A Transport is a half-duplex line channel to the controller.
type Transport interface {
	// Write sends p as-is. There is no delivery confirmation.
	Write(p []byte) (int, error)

	// ReadLine blocks until a newline-terminated line is read, including
	// the newline, or the read timeout elapses.
	ReadLine() (string, error)

	Settings() Settings
	Close() error
}

// A Discarder buffers data read past the end of a line. Discard drops
// that data so the next ReadLine only sees what arrives afterward.
type Discarder interface {
	Discard()
}
