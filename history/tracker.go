package history

import (
	"log"

	"github.com/mastercactapus/lasersend/stream"
)

// Tracker records the progress of one job as a stream.Observer.
type Tracker struct {
	Store *Store
	Job   *Job
	Log   *log.Logger
}

func (t *Tracker) logf(format string, args ...interface{}) {
	if t.Log != nil {
		t.Log.Printf(format, args...)
	}
}

func (t *Tracker) LineSent(e stream.LineEvent) {
	if err := t.Store.Progress(t.Job.ID, e.Index); err != nil {
		t.logf("ERROR: history: %v", err)
	}
}

func (t *Tracker) Finished(_ string, r stream.Result) {
	if err := t.Store.Finish(t.Job.ID, r); err != nil {
		t.logf("ERROR: history: %v", err)
	}
}
