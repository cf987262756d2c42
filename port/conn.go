package port

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/tarm/serial"
)

// Conn is a Transport over a byte stream whose reads time out by
// returning no data, as a serial port opened with a read timeout does.
type Conn struct {
	rwc      io.ReadWriteCloser
	settings Settings

	readBuf []byte
	tmp     []byte

	mx     sync.Mutex
	closed bool

	now func() time.Time
}

var (
	_ Transport = &Conn{}
	_ Discarder = &Conn{}
)

// NewConn wraps rwc. Reads from rwc must return (0, io.EOF) or (0, nil)
// once settings.Timeout passes without data.
func NewConn(rwc io.ReadWriteCloser, settings Settings) *Conn {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	return &Conn{
		rwc:      rwc,
		settings: settings,
		tmp:      make([]byte, 256),
		now:      time.Now,
	}
}

// OpenSerial opens the named serial device.
func OpenSerial(name string, baud int, timeout time.Duration) (*Conn, error) {
	if baud == 0 {
		baud = DefaultBaud
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	p, err := serial.OpenPort(&serial.Config{
		Name:        name,
		Baud:        baud,
		ReadTimeout: timeout,
	})
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	return NewConn(p, Settings{Name: name, Baud: baud, Timeout: timeout}), nil
}

func (c *Conn) Settings() Settings { return c.settings }

func (c *Conn) isClosed() bool {
	c.mx.Lock()
	defer c.mx.Unlock()
	return c.closed
}

// Close will close the underlying stream. Pending and future
// calls return ErrClosed.
func (c *Conn) Close() error {
	c.mx.Lock()
	defer c.mx.Unlock()
	if c.closed {
		return nil
	}
	c.closed = true
	return c.rwc.Close()
}

func (c *Conn) Write(p []byte) (int, error) {
	if c.isClosed() {
		return 0, ErrClosed
	}
	n, err := c.rwc.Write(p)
	if err != nil {
		return n, fmt.Errorf("%w: %w", ErrClosed, err)
	}
	return n, nil
}

// Discard drops any buffered data not yet returned by ReadLine.
func (c *Conn) Discard() { c.readBuf = c.readBuf[:0] }

func (c *Conn) takeLine() (string, bool) {
	i := bytes.IndexByte(c.readBuf, '\n')
	if i < 0 {
		return "", false
	}
	line := string(c.readBuf[:i+1])
	c.readBuf = c.readBuf[i+1:]
	return line, true
}

func (c *Conn) takeAll() string {
	s := string(c.readBuf)
	c.readBuf = c.readBuf[:0]
	return s
}

// ReadLine reads until a newline or the timeout.
//
// A read that comes back empty well before the timeout means the device
// went away (a live port blocks for the full timeout), and is reported
// as ErrClosed.
func (c *Conn) ReadLine() (string, error) {
	if line, ok := c.takeLine(); ok {
		return line, nil
	}

	deadline := c.now().Add(c.settings.Timeout)
	for {
		if c.isClosed() {
			return c.takeAll(), ErrClosed
		}

		start := c.now()
		n, err := c.rwc.Read(c.tmp)
		c.readBuf = append(c.readBuf, c.tmp[:n]...)
		if line, ok := c.takeLine(); ok {
			return line, nil
		}

		switch {
		case err == nil:
		case errors.Is(err, io.EOF):
			if n == 0 && c.now().Sub(start) < c.settings.Timeout/2 {
				return c.takeAll(), ErrClosed
			}
		case errors.Is(err, os.ErrClosed), errors.Is(err, io.ErrClosedPipe):
			return c.takeAll(), ErrClosed
		default:
			return c.takeAll(), fmt.Errorf("%w: %w", ErrClosed, err)
		}

		if !c.now().Before(deadline) {
			return c.takeAll(), ErrTimeout
		}
	}
}
