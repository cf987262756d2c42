package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mastercactapus/lasersend/gcode"
	"github.com/mastercactapus/lasersend/port"
)

// Dispatcher runs the ready/line handshake against a device.
type Dispatcher struct {
	Retry RetryPolicy

	// LineDelay is waited after the device reports ready, before the line is written.
	LineDelay time.Duration

	Observer Observer

	// Logger receives retry and failure messages. Nil discards them.
	Logger *log.Logger

	now   func() time.Time
	sleep func(context.Context, time.Duration) error
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) logger() *log.Logger {
	if d.Logger == nil {
		return log.New(io.Discard, "", 0)
	}
	return d.Logger
}

// Dispatch sends the lines of p selected by w over t. The caller keeps
// ownership of t.
func (d *Dispatcher) Dispatch(ctx context.Context, p gcode.Program, t port.Transport, w Window) Result {
	return d.Run(ctx, NewSession(t, p), w)
}

// Stream opens a transport, dispatches w of p and closes the transport
// again on every path.
func (d *Dispatcher) Stream(ctx context.Context, open OpenFunc, p gcode.Program, w Window) Result {
	s, err := Open(open, p)
	if err != nil {
		res := Result{State: Failed, Next: w.Start, Err: &Error{Kind: KindConnectionLost, Index: w.Start, Err: err}}
		d.finish("", res)
		return res
	}
	defer s.Close()
	return d.Run(ctx, s, w)
}

func (d *Dispatcher) finish(id string, r Result) {
	if d.Observer != nil {
		d.Observer.Finished(id, r)
	}
}

// Run dispatches w on an open session.
//
// Exactly one line is ever in flight: each line is written only after a
// poll is answered with AckLine. Cancellation is checked between round
// trips, so a line is never cut short on the wire.
//
// Observers receive Finished for every call, including ones rejected
// before the first poll. A call rejected with ErrBusy reports an empty
// session ID, since the session belongs to the dispatch already running.
func (d *Dispatcher) Run(ctx context.Context, s *Session, w Window) (res Result) {
	if err := s.claim(); err != nil {
		res = Result{State: Failed, Next: s.Cursor(), Err: err}
		d.finish("", res)
		return res
	}
	defer s.release()
	defer func() { d.finish(s.ID, res) }()

	w, err := w.resolve(len(s.program), s.Cursor())
	if err != nil {
		return Result{State: Failed, Next: s.Cursor(), Err: err}
	}

	now := d.now
	if now == nil {
		now = time.Now
	}
	sleep := d.sleep
	if sleep == nil {
		sleep = sleepCtx
	}
	logger := d.logger()
	pollObs, _ := d.Observer.(PollObserver)

	s.seek(w.Start)
	res.Next = w.Start

	fail := func(kind Kind, attempts int, err error) Result {
		res.State = Failed
		res.Next = s.Cursor()
		res.Err = &Error{Kind: kind, Index: res.Next, Attempts: attempts, Err: err}
		logger.Println("ERROR:", res.Err)
		return res
	}

	poll := []byte(PollToken + string(Terminator))
	var (
		attempts int
		sched    backoff.BackOff
		started  time.Time
	)
	for s.Cursor() < w.End {
		if err := ctx.Err(); err != nil {
			return fail(KindCanceled, attempts, err)
		}
		if attempts == 0 {
			sched = d.Retry.schedule()
			started = now()
		}

		// AwaitingReady
		attempts++
		s.discard()
		if _, err := s.t.Write(poll); err != nil {
			return fail(KindConnectionLost, attempts, err)
		}
		reply, err := s.t.ReadLine()
		if errors.Is(err, port.ErrClosed) {
			return fail(KindConnectionLost, attempts, err)
		}
		if err != nil || reply != AckLine {
			if pollObs != nil {
				pollObs.PollFailed(s.ID, s.Cursor(), attempts, reply, err)
			}
			wait := sched.NextBackOff()
			if wait == backoff.Stop {
				if err == nil {
					err = fmt.Errorf("unexpected reply %q", reply)
				}
				return fail(KindTimeout, attempts, err)
			}
			if err := sleep(ctx, wait); err != nil {
				return fail(KindCanceled, attempts, err)
			}
			continue
		}

		// LineSent
		if d.LineDelay > 0 {
			// the device is waiting for this line, so finish the round trip
			sleep(context.Background(), d.LineDelay)
		}
		i := s.Cursor()
		line := s.program[i]
		if _, err := s.t.Write([]byte(line + string(Terminator))); err != nil {
			return fail(KindConnectionLost, attempts, err)
		}
		s.advance()
		res.Sent++
		res.Next = s.Cursor()

		if d.Observer != nil {
			d.Observer.LineSent(LineEvent{
				SessionID: s.ID,
				Index:     i,
				Line:      line,
				Polls:     attempts,
				RoundTrip: now().Sub(started),
			})
		}
		attempts = 0
	}

	res.State = Done
	return res
}
