package main

import (
	"bufio"
	"bytes"
	"context"
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mastercactapus/lasersend/config"
	"github.com/mastercactapus/lasersend/history"
	"github.com/mastercactapus/lasersend/notify"
	"github.com/mastercactapus/lasersend/port"
	"github.com/mastercactapus/lasersend/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testGcode = `; square
G0 X10 Y10
G1 X20 Y10
G1 X20 Y20
G0 X0 Y0
`

// fakeLaser answers every poll with ready unless hold is set, in which
// case reads wait for release and then time out.
type fakeLaser struct {
	mx      sync.Mutex
	lines   []string
	closed  bool
	hold    bool
	release chan struct{}
	reading chan struct{}
}

func newFakeLaser() *fakeLaser {
	return &fakeLaser{release: make(chan struct{}), reading: make(chan struct{}, 1)}
}

func (f *fakeLaser) Settings() port.Settings { return port.Settings{Name: "fake"} }

func (f *fakeLaser) Write(p []byte) (int, error) {
	f.mx.Lock()
	defer f.mx.Unlock()
	s := string(p)
	if s != stream.PollToken+"\x00" {
		f.lines = append(f.lines, strings.TrimSuffix(s, "\x00"))
	}
	return len(p), nil
}

func (f *fakeLaser) ReadLine() (string, error) {
	f.mx.Lock()
	hold := f.hold
	f.mx.Unlock()
	if hold {
		select {
		case f.reading <- struct{}{}:
		default:
		}
		<-f.release
		return "", port.ErrTimeout
	}
	return stream.AckLine, nil
}

func (f *fakeLaser) Close() error {
	f.mx.Lock()
	f.closed = true
	f.mx.Unlock()
	return nil
}

func (f *fakeLaser) sent() []string {
	f.mx.Lock()
	defer f.mx.Unlock()
	return append([]string(nil), f.lines...)
}

func newTestApp(t *testing.T, dev port.Transport, input string) (*app, *bytes.Buffer) {
	t.Helper()

	cfg := config.Default()
	cfg.LineDelay = config.Duration{}
	cfg.BackoffMin = config.Duration{}
	cfg.Retries = 3

	hist, err := history.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { hist.Close() })

	out := &bytes.Buffer{}
	a := &app{
		cfg:      cfg,
		in:       bufio.NewReader(strings.NewReader(input)),
		out:      out,
		log:      log.New(&bytes.Buffer{}, "", 0),
		open:     func() (port.Transport, error) { return dev, nil },
		hist:     hist,
		registry: prometheus.NewRegistry(),
	}
	a.metrics = notify.NewMetrics(a.registry)
	a.observers = []stream.Observer{a.metrics, newEcho(out)}
	return a, out
}

func writeProgram(t *testing.T, dir, name, data string) string {
	t.Helper()
	file := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(file, []byte(data), 0644))
	return file
}

func TestApp_Menu(t *testing.T) {
	dev := newFakeLaser()
	file := writeProgram(t, t.TempDir(), "square.gcode", testGcode)
	a, out := newTestApp(t, dev, "x\nhlep\nh\np\n"+file+"\n\n\ne\n")

	require.NoError(t, a.menu(context.Background(), ""))

	s := out.String()
	assert.Contains(t, s, `"x" is an invalid command. Choose one of the commands below:`)
	assert.Contains(t, s, `"hlep" is an invalid command. Did you mean "help"?`)
	assert.Contains(t, s, "p, print     Print a .gcode file")
	assert.Contains(t, s, "4 moves (2 rapid)")
	assert.Contains(t, s, "    3 G1 X20 Y10\n")
	assert.Contains(t, s, "Sent 5 lines")

	assert.Equal(t, []string{"; square", "G0 X10 Y10", "G1 X20 Y10", "G1 X20 Y20", "G0 X0 Y0"}, dev.sent())
	assert.True(t, dev.closed)
}

func TestApp_MenuDecline(t *testing.T) {
	dev := newFakeLaser()
	file := writeProgram(t, t.TempDir(), "square.gcode", testGcode)
	a, out := newTestApp(t, dev, "p\n"+file+"\nn\nno\n")

	require.NoError(t, a.menu(context.Background(), ""))
	assert.NotContains(t, out.String(), "moves")
	assert.Empty(t, dev.sent())
}

func TestApp_MenuDefaultFile(t *testing.T) {
	dev := newFakeLaser()
	file := writeProgram(t, t.TempDir(), "default.gcode", "G1 X1 Y1\n")
	a, out := newTestApp(t, dev, "prnt\n\nn\ny\nexit\n")
	a.cfg.DefaultFile = file

	require.NoError(t, a.menu(context.Background(), ""))
	assert.Contains(t, out.String(), "Sent 1 lines")
	assert.Equal(t, []string{"G1 X1 Y1"}, dev.sent())
}

func TestApp_MenuMissingFile(t *testing.T) {
	a, out := newTestApp(t, newFakeLaser(), "p\n/nonexistent/file.gcode\n")

	require.NoError(t, a.menu(context.Background(), ""))
	assert.Contains(t, out.String(), "ERROR: program file not found")
}

func TestApp_MenuMalformed(t *testing.T) {
	dev := newFakeLaser()
	file := writeProgram(t, t.TempDir(), "bad.gcode", "G0 X1 Y1\nG1 Xabc Y2\n")
	a, out := newTestApp(t, dev, "p\n"+file+"\n\n")

	require.NoError(t, a.menu(context.Background(), ""))
	assert.Contains(t, out.String(), "ERROR: line 2: malformed command")
	assert.Empty(t, dev.sent())
}

func TestApp_PrintNoAnswer(t *testing.T) {
	file := writeProgram(t, t.TempDir(), "square.gcode", testGcode)
	for _, input := range []string{"", "n\n"} {
		dev := newFakeLaser()
		a, out := newTestApp(t, dev, input)

		a.print(context.Background(), file)
		assert.Contains(t, out.String(), "ERROR: no answer to", "input %q", input)
		assert.NotContains(t, out.String(), "Sent", "input %q", input)
		assert.Empty(t, dev.sent(), "input %q", input)
	}
}

func TestApp_Confirm(t *testing.T) {
	a, _ := newTestApp(t, newFakeLaser(), "\ny\nn\nY")
	for _, want := range []bool{true, true, false, true} {
		ok, err := a.confirm("Ok?")
		require.NoError(t, err)
		assert.Equal(t, want, ok)
	}
	_, err := a.confirm("Ok?")
	assert.ErrorIs(t, err, io.EOF)
}

func TestApp_Resume(t *testing.T) {
	dev := newFakeLaser()
	file := writeProgram(t, t.TempDir(), "square.gcode", testGcode)
	a, out := newTestApp(t, dev, "n\n\n\n")

	job, err := a.hist.Begin(jobKey(file), 5, 0)
	require.NoError(t, err)
	require.NoError(t, a.hist.Finish(job.ID, stream.Result{
		State: stream.Failed,
		Sent:  3,
		Next:  3,
		Err:   &stream.Error{Kind: stream.KindConnectionLost, Index: 3},
	}))

	// the file given on the command line is printed before the prompt
	require.NoError(t, a.menu(context.Background(), file))
	assert.Contains(t, out.String(), "Resume the previous job at line 4?")
	assert.Contains(t, out.String(), "Sent 2 lines")
	assert.Equal(t, []string{"G1 X20 Y20", "G0 X0 Y0"}, dev.sent())

	_, err = a.hist.LastIncomplete(jobKey(file))
	assert.ErrorIs(t, err, history.ErrNotFound)
}

func TestApp_SendTimeout(t *testing.T) {
	dev := newFakeLaser()
	dev.hold = true
	close(dev.release)
	file := writeProgram(t, t.TempDir(), "square.gcode", testGcode)
	a, out := newTestApp(t, dev, "")

	p, err := a.load(file)
	require.NoError(t, err)

	start := time.Now()
	res := a.send(context.Background(), file, p, stream.All)
	assert.ErrorIs(t, res.Err, stream.ErrTimeout)
	assert.Less(t, time.Since(start), 5*time.Second)

	a.printResult(res)
	assert.Contains(t, out.String(), "Resume with --start 0")

	job, err := a.hist.LastIncomplete(jobKey(file))
	require.NoError(t, err)
	assert.Equal(t, stream.KindTimeout, job.ErrorKind)
}

func TestSuggestCommand(t *testing.T) {
	assert.Equal(t, "help", suggestCommand("hepl"))
	assert.Equal(t, "exit", suggestCommand("exti"))
	assert.Equal(t, "print", suggestCommand("prin"))
	assert.Equal(t, "", suggestCommand("laser"))
}
