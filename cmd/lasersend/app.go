package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/mastercactapus/lasersend/config"
	"github.com/mastercactapus/lasersend/gcode"
	"github.com/mastercactapus/lasersend/history"
	"github.com/mastercactapus/lasersend/notify"
	"github.com/mastercactapus/lasersend/port"
	"github.com/mastercactapus/lasersend/preview"
	"github.com/mastercactapus/lasersend/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
)

// app holds what every command needs: settings, the transport opener,
// the job history and the observers attached to each dispatch.
type app struct {
	cfg config.Config

	in  *bufio.Reader
	out io.Writer
	log *log.Logger

	open stream.OpenFunc
	hist *history.Store

	metrics   *notify.Metrics
	registry  *prometheus.Registry
	mqtt      *notify.MQTT
	observers []stream.Observer
}

func newApp(cmd *cobra.Command) (*app, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	a := &app{
		cfg:      cfg,
		in:       bufio.NewReader(cmd.InOrStdin()),
		out:      cmd.OutOrStdout(),
		log:      log.New(cmd.ErrOrStderr(), "", log.Lshortfile),
		open:     openTransport(cfg),
		registry: prometheus.NewRegistry(),
	}
	a.metrics = notify.NewMetrics(a.registry)
	a.observers = append(a.observers, a.metrics, notify.Log{Logger: a.log})
	if cfg.Echo {
		a.observers = append(a.observers, newEcho(a.out))
	}

	histPath, err := cfg.HistoryPath()
	if err == nil {
		err = os.MkdirAll(filepath.Dir(histPath), 0755)
	}
	if err == nil {
		a.hist, err = history.Open(histPath)
	}
	if err != nil {
		a.log.Println("ERROR: job history disabled:", err)
	}

	if cfg.MQTT.Broker != "" {
		a.mqtt, err = notify.DialMQTT(cfg.MQTT.Broker, cfg.MQTT.Topic, "lasersend-"+uuid.NewString()[:8], a.log)
		if err != nil {
			a.log.Println("ERROR: mqtt disabled:", err)
		} else {
			a.observers = append(a.observers, a.mqtt)
		}
	}

	return a, nil
}

func (a *app) Close() {
	if a.hist != nil {
		a.hist.Close()
	}
	if a.mqtt != nil {
		a.mqtt.Close()
	}
}

// openTransport returns an opener for the configured controller link.
func openTransport(cfg config.Config) stream.OpenFunc {
	timeout := cfg.Timeout.Duration
	if cfg.Transport == config.TransportSPJS {
		return func() (port.Transport, error) {
			return port.OpenSPJS(cfg.SPJS, cfg.Port, cfg.Baud, timeout), nil
		}
	}
	return func() (port.Transport, error) {
		c, err := port.OpenSerial(cfg.Port, cfg.Baud, timeout)
		if err != nil {
			return nil, err
		}
		return c, nil
	}
}

func (a *app) dispatcher(extra ...stream.Observer) *stream.Dispatcher {
	obs := append(notify.Multi{}, a.observers...)
	return &stream.Dispatcher{
		Retry:     a.cfg.RetryPolicy(),
		LineDelay: a.cfg.LineDelay.Duration,
		Observer:  append(obs, extra...),
		Logger:    a.log,
	}
}

// load reads a program and reports lint warnings.
func (a *app) load(file string) (gcode.Program, error) {
	p, err := gcode.LoadFile(file)
	if err != nil {
		return nil, err
	}
	for _, issue := range gcode.Lint(p) {
		a.log.Println("WARN:", issue)
	}
	return p, nil
}

func (a *app) preview(p gcode.Program) (*preview.Path, preview.Summary, error) {
	path, err := preview.Extract(p)
	if err != nil {
		return nil, preview.Summary{}, err
	}
	return path, preview.Summarize(path, a.cfg.BedWidth, a.cfg.BedHeight), nil
}

func (a *app) printPreview(p gcode.Program) error {
	path, sum, err := a.preview(p)
	if err != nil {
		return err
	}
	fmt.Fprintln(a.out, sum)
	for i, seg := range path.Travel {
		fmt.Fprintf(a.out, "  travel %d: %s -> %s\n", i+1, seg.Points[0], seg.Points[1])
	}
	return nil
}

// jobObservers starts a history record for a dispatch of w of p and
// returns the observer that keeps it current.
func (a *app) jobObservers(file string, p gcode.Program, w stream.Window) []stream.Observer {
	if a.hist == nil {
		return nil
	}
	end := w.End
	if end <= 0 {
		end = len(p)
	}
	job, err := a.hist.Begin(jobKey(file), end, w.Start)
	if err != nil {
		a.log.Println("ERROR: history:", err)
		return nil
	}
	return []stream.Observer{&history.Tracker{Store: a.hist, Job: job, Log: a.log}}
}

// send dispatches w of p and records the job under file.
func (a *app) send(ctx context.Context, file string, p gcode.Program, w stream.Window) stream.Result {
	return a.dispatcher(a.jobObservers(file, p, w)...).Stream(ctx, a.open, p, w)
}

// resumeIndex returns where the last unfinished job for file stopped.
func (a *app) resumeIndex(file string) (int, bool) {
	if a.hist == nil {
		return 0, false
	}
	job, err := a.hist.LastIncomplete(jobKey(file))
	if errors.Is(err, history.ErrNotFound) {
		return 0, false
	}
	if err != nil {
		a.log.Println("ERROR: history:", err)
		return 0, false
	}
	return job.LastIndex, true
}

func jobKey(file string) string {
	if abs, err := filepath.Abs(file); err == nil {
		return abs
	}
	return file
}

// confirm asks a yes/no question. An empty line is yes. Reaching the end
// of input without an answer is an error, never a yes.
func (a *app) confirm(prompt string) (bool, error) {
	answer, err := a.readLine(prompt + " [Y/n] ")
	if err != nil {
		return false, fmt.Errorf("no answer to %q: %w", prompt, err)
	}
	switch answer {
	case "", "y", "Y":
		return true, nil
	}
	return false, nil
}

func (a *app) printResult(r stream.Result) {
	if r.Err != nil {
		fmt.Fprintf(a.out, "Stopped after %d lines: %v\n", r.Sent, r.Err)
		if r.Kind() != stream.KindInvalid {
			fmt.Fprintf(a.out, "Resume with --start %d\n", r.Next)
		}
		return
	}
	fmt.Fprintf(a.out, "Sent %d lines\n", r.Sent)
}
