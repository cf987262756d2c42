package port

import (
	"bytes"
	"strconv"
	"sync"
	"time"

	"github.com/mastercactapus/lasersend/spjs"
)

// spjsClient is the part of *spjs.SPJS used by SPJSConn.
type spjsClient interface {
	Messages() <-chan interface{}
	WriteString(string) error
	Close() error
}

// SPJSConn is a Transport to a serial port shared by serial-port-json-server.
type SPJSConn struct {
	sp       spjsClient
	settings Settings

	data    chan string
	readBuf []byte

	closeOnce sync.Once
	done      chan struct{}
}

var (
	_ Transport = &SPJSConn{}
	_ Discarder = &SPJSConn{}
)

// OpenSPJS connects to the SPJS server at url and uses its port name.
func OpenSPJS(url, name string, baud int, timeout time.Duration) *SPJSConn {
	return NewSPJS(spjs.New(url, nil), Settings{Name: name, Baud: baud, Timeout: timeout})
}

// NewSPJS will use sp to talk to the named port, opening it on the server
// if the server reports it closed.
func NewSPJS(sp spjsClient, settings Settings) *SPJSConn {
	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}
	if settings.Baud == 0 {
		settings.Baud = DefaultBaud
	}
	c := &SPJSConn{
		sp:       sp,
		settings: settings,
		data:     make(chan string, 100),
		done:     make(chan struct{}),
	}
	go c.loop()
	return c
}

func (c *SPJSConn) loop() {
	for {
		select {
		case <-c.done:
			return
		case msg, ok := <-c.sp.Messages():
			if !ok {
				c.Close()
				return
			}
			switch m := msg.(type) {
			case *spjs.DataFrame:
				if m.Port != c.settings.Name {
					continue
				}
				select {
				case c.data <- m.Data:
				case <-c.done:
					return
				}
			case *spjs.SerialPortList:
				for _, p := range m.SerialPorts {
					if p.Name == c.settings.Name && !p.IsOpen {
						go c.sp.WriteString("open " + c.settings.Name + " " + strconv.Itoa(c.settings.Baud) + " default")
					}
				}
			}
		}
	}
}

func (c *SPJSConn) Settings() Settings { return c.settings }

// Write sends p without SPJS buffering; pacing is up to the caller.
func (c *SPJSConn) Write(p []byte) (int, error) {
	select {
	case <-c.done:
		return 0, ErrClosed
	default:
	}
	err := c.sp.WriteString("sendnobuf " + c.settings.Name + " " + string(p))
	if err != nil {
		return 0, ErrClosed
	}
	return len(p), nil
}

// Discard drops buffered data, including frames already received from
// the server but not yet read.
func (c *SPJSConn) Discard() {
	c.readBuf = c.readBuf[:0]
	for {
		select {
		case <-c.data:
		default:
			return
		}
	}
}

func (c *SPJSConn) ReadLine() (string, error) {
	t := time.NewTimer(c.settings.Timeout)
	defer t.Stop()

	for {
		if i := bytes.IndexByte(c.readBuf, '\n'); i >= 0 {
			line := string(c.readBuf[:i+1])
			c.readBuf = c.readBuf[i+1:]
			return line, nil
		}

		select {
		case s := <-c.data:
			c.readBuf = append(c.readBuf, s...)
		case <-t.C:
			s := string(c.readBuf)
			c.readBuf = c.readBuf[:0]
			return s, ErrTimeout
		case <-c.done:
			s := string(c.readBuf)
			c.readBuf = c.readBuf[:0]
			return s, ErrClosed
		}
	}
}

func (c *SPJSConn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		err = c.sp.Close()
	})
	return err
}
