package notify

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mastercactapus/lasersend/stream"
)

// PublishTimeout bounds how long an event may wait on the broker.
const PublishTimeout = 2 * time.Second

// LineMessage is published to <topic>/line for every sent line.
type LineMessage struct {
	Session   string  `json:"session"`
	Index     int     `json:"index"`
	Line      string  `json:"line"`
	Polls     int     `json:"polls"`
	RoundTrip float64 `json:"roundTrip"`
}

// ResultMessage is published to <topic>/result when a dispatch ends.
type ResultMessage struct {
	Session string `json:"session"`
	State   string `json:"state"`
	Sent    int    `json:"sent"`
	Next    int    `json:"next"`
	Kind    string `json:"kind,omitempty"`
	Error   string `json:"error,omitempty"`
}

// NewLineMessage describes e.
func NewLineMessage(e stream.LineEvent) LineMessage {
	return LineMessage{
		Session:   e.SessionID,
		Index:     e.Index,
		Line:      e.Line,
		Polls:     e.Polls,
		RoundTrip: e.RoundTrip.Seconds(),
	}
}

// NewResultMessage describes the outcome of session id.
func NewResultMessage(id string, r stream.Result) ResultMessage {
	msg := ResultMessage{
		Session: id,
		State:   r.State.String(),
		Sent:    r.Sent,
		Next:    r.Next,
		Kind:    string(r.Kind()),
	}
	if r.Err != nil {
		msg.Error = r.Err.Error()
	}
	return msg
}

// MQTT publishes progress as JSON. Publish failures are logged and never
// stop a dispatch.
type MQTT struct {
	Topic string
	log   *log.Logger
	pub   func(topic string, payload []byte) error
	close func()
}

// DialMQTT connects to broker and publishes under topic.
func DialMQTT(broker, topic, clientID string, logger *log.Logger) (*MQTT, error) {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	opts := mqtt.NewClientOptions().
		AddBroker(broker).
		SetClientID(clientID).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(_ mqtt.Client, err error) {
			logger.Printf("WARN: mqtt connection lost: %v", err)
		})

	c := mqtt.NewClient(opts)
	if token := c.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("connect %s: %w", broker, token.Error())
	}
	return NewMQTT(c, topic, logger), nil
}

// NewMQTT publishes through an already connected client.
func NewMQTT(c mqtt.Client, topic string, logger *log.Logger) *MQTT {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &MQTT{
		Topic: topic,
		log:   logger,
		pub: func(topic string, payload []byte) error {
			token := c.Publish(topic, 1, false, payload)
			if !token.WaitTimeout(PublishTimeout) {
				return fmt.Errorf("publish %s: timed out", topic)
			}
			return token.Error()
		},
		close: func() { c.Disconnect(250) },
	}
}

func (m *MQTT) publish(sub string, v interface{}) {
	data, err := json.Marshal(v)
	if err != nil {
		m.log.Println("ERROR: mqtt marshal:", err)
		return
	}
	if err := m.pub(m.Topic+"/"+sub, data); err != nil {
		m.log.Println("ERROR: mqtt:", err)
	}
}

func (m *MQTT) LineSent(e stream.LineEvent) { m.publish("line", NewLineMessage(e)) }

func (m *MQTT) Finished(id string, r stream.Result) { m.publish("result", NewResultMessage(id, r)) }

// Close disconnects from the broker.
func (m *MQTT) Close() {
	if m.close != nil {
		m.close()
	}
}
