package notify

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"testing"
	"time"

	"github.com/mastercactapus/lasersend/stream"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testEvent = stream.LineEvent{
	SessionID: "abc",
	Index:     2,
	Line:      "G1 X10 Y10",
	Polls:     3,
	RoundTrip: 250 * time.Millisecond,
}

var testFailure = stream.Result{
	State: stream.Failed,
	Sent:  2,
	Next:  2,
	Err:   &stream.Error{Kind: stream.KindTimeout, Index: 2, Attempts: 3},
}

func TestMulti(t *testing.T) {
	var lines, polls, results []string
	a := stream.ObserverFuncs{
		OnLine:   func(e stream.LineEvent) { lines = append(lines, "a:"+e.Line) },
		OnFinish: func(id string, _ stream.Result) { results = append(results, "a:"+id) },
		OnPoll:   func(_ string, i, n int, _ string, _ error) { polls = append(polls, fmt.Sprintf("a:%d/%d", i, n)) },
	}
	var b Log
	b.Logger = log.New(&bytes.Buffer{}, "", 0)
	c := stream.ObserverFuncs{
		OnLine: func(e stream.LineEvent) { lines = append(lines, "c:"+e.Line) },
	}

	m := Multi{a, b, c}
	m.LineSent(testEvent)
	m.PollFailed("abc", 2, 1, "", errors.New("timeout"))
	m.Finished("abc", stream.Result{State: stream.Done})

	assert.Equal(t, []string{"a:G1 X10 Y10", "c:G1 X10 Y10"}, lines)
	assert.Equal(t, []string{"a:2/1"}, polls)
	assert.Equal(t, []string{"a:abc"}, results)
}

func TestLog(t *testing.T) {
	buf := &bytes.Buffer{}
	l := Log{Logger: log.New(buf, "", 0)}

	l.LineSent(testEvent)
	assert.Empty(t, buf.String())

	l.Lines = true
	l.LineSent(testEvent)
	l.PollFailed("abc", 2, 1, "ok\n", nil)
	l.Finished("abc", testFailure)

	assert.Equal(t,
		"line 3: G1 X10 Y10\n"+
			"WARN: line 3: poll 1: unexpected reply \"ok\\n\"\n"+
			"ERROR: session abc stopped after 2 lines: stream: device not ready at line 3 after 3 polls\n",
		buf.String())
}

func TestMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.LineSent(testEvent)
	m.LineSent(testEvent)
	m.PollFailed("abc", 2, 1, "", nil)
	m.Finished("abc", stream.Result{State: stream.Done})
	m.Finished("abc", testFailure)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.LinesSent))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.PollRetries))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues("done")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Results.WithLabelValues("timeout")))

	n, err := testutil.GatherAndCount(reg, "lasersend_line_round_trip_seconds")
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

type published struct {
	topic   string
	payload []byte
}

func TestMQTT(t *testing.T) {
	var msgs []published
	buf := &bytes.Buffer{}
	m := &MQTT{
		Topic: "laser",
		log:   log.New(buf, "", 0),
		pub: func(topic string, payload []byte) error {
			msgs = append(msgs, published{topic, payload})
			return nil
		},
	}

	m.LineSent(testEvent)
	m.Finished("abc", testFailure)
	require.Len(t, msgs, 2)

	assert.Equal(t, "laser/line", msgs[0].topic)
	var line LineMessage
	require.NoError(t, json.Unmarshal(msgs[0].payload, &line))
	assert.Equal(t, LineMessage{Session: "abc", Index: 2, Line: "G1 X10 Y10", Polls: 3, RoundTrip: 0.25}, line)

	assert.Equal(t, "laser/result", msgs[1].topic)
	var res ResultMessage
	require.NoError(t, json.Unmarshal(msgs[1].payload, &res))
	assert.Equal(t, "failed", res.State)
	assert.Equal(t, "timeout", res.Kind)
	assert.Equal(t, 2, res.Next)
	assert.Contains(t, res.Error, "device not ready")
	assert.Empty(t, buf.String())
}

func TestMQTT_PublishError(t *testing.T) {
	buf := &bytes.Buffer{}
	m := &MQTT{
		Topic: "laser",
		log:   log.New(buf, "", 0),
		pub:   func(string, []byte) error { return errors.New("not connected") },
	}

	m.LineSent(testEvent)
	assert.Equal(t, "ERROR: mqtt: not connected\n", buf.String())
	m.Close()
}
