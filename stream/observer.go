package stream

import "time"

// LineEvent is emitted after a line is written to the device.
type LineEvent struct {
	SessionID string
	Index     int
	Line      string

	// Polls is the number of polls it took for the device to report ready.
	Polls     int
	RoundTrip time.Duration
}

// An Observer is notified of dispatch progress. Calls are made from the
// dispatching goroutine and should not block for long.
type Observer interface {
	LineSent(LineEvent)
	Finished(sessionID string, r Result)
}

// A PollObserver is additionally told about every unanswered poll.
type PollObserver interface {
	PollFailed(sessionID string, index, attempt int, reply string, err error)
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnLine   func(LineEvent)
	OnFinish func(sessionID string, r Result)
	OnPoll   func(sessionID string, index, attempt int, reply string, err error)
}

func (o ObserverFuncs) LineSent(e LineEvent) {
	if o.OnLine != nil {
		o.OnLine(e)
	}
}

func (o ObserverFuncs) Finished(id string, r Result) {
	if o.OnFinish != nil {
		o.OnFinish(id, r)
	}
}

func (o ObserverFuncs) PollFailed(id string, index, attempt int, reply string, err error) {
	if o.OnPoll != nil {
		o.OnPoll(id, index, attempt, reply, err)
	}
}
