// Package stream sends a program to the controller one line at a time,
// waiting for the device to report ready before every line.
package stream

import (
	"errors"
	"fmt"
)

// Wire tokens. Host lines end in a NUL byte, device replies end in a newline.
const (
	PollToken  = "Ready?"
	AckLine    = "Ready\n"
	Terminator = '\x00'
)

// State is a step of the dispatch protocol.
type State byte

const (
	AwaitingReady State = iota
	LineSent
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case AwaitingReady:
		return "awaiting-ready"
	case LineSent:
		return "line-sent"
	case Done:
		return "done"
	case Failed:
		return "failed"
	}
	return "unknown"
}

// ErrInvalidWindow is returned for a window outside the program or
// behind the session cursor.
var ErrInvalidWindow = errors.New("invalid dispatch window")

// Window selects program lines [Start, End). End <= 0 means the end of the program.
type Window struct {
	Start, End int
}

// All is the whole program.
var All = Window{}

// Check reports whether w selects a valid range of a program of n lines.
func (w Window) Check(n int) error {
	_, err := w.resolve(n, 0)
	return err
}

func (w Window) resolve(n, cursor int) (Window, error) {
	if w.End <= 0 {
		w.End = n
	}
	if w.Start < 0 || w.Start > w.End || w.End > n {
		return w, fmt.Errorf("%w: [%d,%d) of %d lines", ErrInvalidWindow, w.Start, w.End, n)
	}
	if w.Start < cursor {
		return w, fmt.Errorf("%w: start %d is behind cursor %d", ErrInvalidWindow, w.Start, cursor)
	}
	return w, nil
}

// Result is the outcome of a dispatch.
type Result struct {
	State State

	// Sent is the number of lines written and acknowledged-for.
	Sent int

	// Next is the index of the next unsent line, where a resumed
	// dispatch should start.
	Next int

	// Err is nil when State is Done.
	Err error
}

func (r Result) Done() bool { return r.State == Done }

// Kind returns the error kind, or KindNone for a completed dispatch.
func (r Result) Kind() Kind {
	var e *Error
	if errors.As(r.Err, &e) {
		return e.Kind
	}
	if r.Err != nil {
		return KindInvalid
	}
	return KindNone
}
