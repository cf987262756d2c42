// Package notify delivers dispatch progress to logs, metrics and brokers.
package notify

import (
	"github.com/mastercactapus/lasersend/stream"
)

// Multi fans events out to each observer in order. Observers that also
// implement stream.PollObserver receive failed polls.
type Multi []stream.Observer

var (
	_ stream.Observer     = Multi{}
	_ stream.PollObserver = Multi{}
)

func (m Multi) LineSent(e stream.LineEvent) {
	for _, o := range m {
		o.LineSent(e)
	}
}

func (m Multi) Finished(id string, r stream.Result) {
	for _, o := range m {
		o.Finished(id, r)
	}
}

func (m Multi) PollFailed(id string, index, attempt int, reply string, err error) {
	for _, o := range m {
		if p, ok := o.(stream.PollObserver); ok {
			p.PollFailed(id, index, attempt, reply, err)
		}
	}
}
