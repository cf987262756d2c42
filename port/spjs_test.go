package port

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/mastercactapus/lasersend/spjs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSPJS struct {
	msgs chan interface{}

	mx     sync.Mutex
	writes []string
	closed bool
}

func newFakeSPJS() *fakeSPJS {
	return &fakeSPJS{msgs: make(chan interface{}, 10)}
}

func (f *fakeSPJS) Messages() <-chan interface{} { return f.msgs }
func (f *fakeSPJS) WriteString(s string) error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.writes = append(f.writes, s)
	return nil
}
func (f *fakeSPJS) Close() error {
	f.mx.Lock()
	defer f.mx.Unlock()
	f.closed = true
	return nil
}
func (f *fakeSPJS) Writes() []string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]string(nil), f.writes...)
}

func TestSPJSConn_ReadLine(t *testing.T) {
	f := newFakeSPJS()
	c := NewSPJS(f, Settings{Name: "/dev/ttyACM0", Timeout: time.Second})
	defer c.Close()

	f.msgs <- &spjs.DataFrame{Port: "/dev/ttyUSB1", Data: "ignored\n"}
	f.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "Rea"}
	f.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "dy\n"}

	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "Ready\n", line)
}

func TestSPJSConn_Timeout(t *testing.T) {
	f := newFakeSPJS()
	c := NewSPJS(f, Settings{Name: "/dev/ttyACM0", Timeout: 20 * time.Millisecond})
	defer c.Close()

	_, err := c.ReadLine()
	assert.True(t, errors.Is(err, ErrTimeout))
}

func TestSPJSConn_Write(t *testing.T) {
	f := newFakeSPJS()
	c := NewSPJS(f, Settings{Name: "/dev/ttyACM0"})

	n, err := c.Write([]byte("G0 X1\x00"))
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []string{"sendnobuf /dev/ttyACM0 G0 X1\x00"}, f.Writes())
	assert.Equal(t, DefaultBaud, c.Settings().Baud)

	require.NoError(t, c.Close())
	assert.True(t, f.closed)

	_, err = c.Write([]byte("G0 X2\x00"))
	assert.Equal(t, ErrClosed, err)
	_, err = c.ReadLine()
	assert.Equal(t, ErrClosed, err)
}

func TestSPJSConn_OpensClosedPort(t *testing.T) {
	f := newFakeSPJS()
	c := NewSPJS(f, Settings{Name: "/dev/ttyACM0", Baud: 115200})
	defer c.Close()

	f.msgs <- &spjs.SerialPortList{SerialPorts: []spjs.SerialPort{
		{Name: "/dev/ttyS0"},
		{Name: "/dev/ttyACM0", IsOpen: false},
	}}

	assert.Eventually(t, func() bool {
		w := f.Writes()
		return len(w) == 1 && w[0] == "open /dev/ttyACM0 115200 default"
	}, time.Second, 5*time.Millisecond)
}

func TestSPJSConn_Discard(t *testing.T) {
	f := newFakeSPJS()
	c := NewSPJS(f, Settings{Name: "/dev/ttyACM0", Timeout: time.Second})
	defer c.Close()

	f.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "busy\nReady\n"}
	line, err := c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "busy\n", line)

	c.Discard()
	f.msgs <- &spjs.DataFrame{Port: "/dev/ttyACM0", Data: "error\n"}
	line, err = c.ReadLine()
	require.NoError(t, err)
	assert.Equal(t, "error\n", line)
}
