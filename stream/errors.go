package stream

import (
	"errors"
	"fmt"
)

// Kind classifies why a dispatch stopped.
type Kind string

const (
	KindNone           Kind = ""
	KindTimeout        Kind = "timeout"
	KindConnectionLost Kind = "connection-lost"
	KindCanceled       Kind = "canceled"
	KindInvalid        Kind = "invalid"
)

var (
	// ErrTimeout means the device never reported ready within the retry policy.
	ErrTimeout = errors.New("device not ready")

	// ErrConnectionLost means the transport closed or failed mid-dispatch.
	ErrConnectionLost = errors.New("connection lost")

	// ErrCanceled means the context was canceled between round trips.
	ErrCanceled = errors.New("dispatch canceled")
)

var kindErrs = map[Kind]error{
	KindTimeout:        ErrTimeout,
	KindConnectionLost: ErrConnectionLost,
	KindCanceled:       ErrCanceled,
}

// Error is a failed dispatch.
type Error struct {
	Kind Kind

	// Index is the cursor when the dispatch stopped.
	Index int

	// Attempts is the number of unanswered polls for the line at Index.
	Attempts int

	Err error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("stream: %s at line %d", kindErrs[e.Kind], e.Index+1)
	if e.Attempts > 0 {
		msg += fmt.Sprintf(" after %d polls", e.Attempts)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Is(target error) bool { return kindErrs[e.Kind] == target }

func (e *Error) Unwrap() error { return e.Err }
