package notify

import (
	"log"

	"github.com/mastercactapus/lasersend/stream"
)

// Log writes progress to a logger.
type Log struct {
	*log.Logger

	// Lines logs every sent line, not just failures and results.
	Lines bool
}

func (l Log) LineSent(e stream.LineEvent) {
	if l.Lines {
		l.Printf("line %d: %s", e.Index+1, e.Line)
	}
}

func (l Log) PollFailed(id string, index, attempt int, reply string, err error) {
	if err != nil {
		l.Printf("WARN: line %d: poll %d: %v", index+1, attempt, err)
		return
	}
	l.Printf("WARN: line %d: poll %d: unexpected reply %q", index+1, attempt, reply)
}

func (l Log) Finished(id string, r stream.Result) {
	if r.Err != nil {
		l.Printf("ERROR: session %s stopped after %d lines: %v", id, r.Sent, r.Err)
		return
	}
	l.Printf("session %s done, %d lines sent", id, r.Sent)
}
