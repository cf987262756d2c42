// Package spjs is a client for serial-port-json-server, which exposes
// serial ports on a remote host over a websocket.
package spjs

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// ErrClosed is returned when writing to a closed client.
var ErrClosed = errors.New("spjs: client closed")

type SPJS struct {
	url string
	log *log.Logger

	outgoing  chan message
	incomming chan interface{}

	closeOnce sync.Once
	done      chan struct{}
}

type message struct {
	done    chan struct{}
	payload []byte
}

type DataFrame struct {
	Port string `json:"P"`
	Data string `json:"D"`
}

type ErrorMessage struct {
	Error string
}
type SerialPortList struct {
	SerialPorts []SerialPort
}
type SerialPort struct {
	Name         string
	Friendly     string
	SerialNumber string
	IsOpen       bool
	Baud         int
}

// New connects to the SPJS websocket at url, reconnecting as needed.
//
// A nil logger discards connection messages.
func New(url string, logger *log.Logger) *SPJS {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	sp := &SPJS{
		url:       url,
		log:       logger,
		outgoing:  make(chan message, 100),
		incomming: make(chan interface{}, 1000),
		done:      make(chan struct{}),
	}

	go sp.loop()

	return sp
}

// Messages returns decoded messages from the server.
func (sp *SPJS) Messages() <-chan interface{} {
	return sp.incomming
}

func parseMessage(data []byte, msg map[string]json.RawMessage) (val interface{}, err error) {
	check := func(fieldName string, v interface{}) bool {
		if msg[fieldName] == nil {
			return false
		}
		val = v
		err = json.Unmarshal(data, val)
		return true
	}
	if check("Error", &ErrorMessage{}) {
		return
	}
	if check("SerialPorts", &SerialPortList{}) {
		return
	}
	if check("D", &DataFrame{}) {
		return
	}

	return nil, errors.New("unknown message: " + string(data))
}

func (sp *SPJS) readLoop(ws *websocket.Conn, done chan struct{}) {
	defer close(done)
	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			sp.log.Println("ERROR: read:", err)
			return
		}
		if !bytes.HasPrefix(data, []byte("{")) {
			// ignore echo messages
			continue
		}
		var msg map[string]json.RawMessage
		err = json.Unmarshal(data, &msg)
		if err != nil {
			sp.log.Println("ERROR: read:", err)
			continue
		}
		val, err := parseMessage(data, msg)
		if err != nil {
			continue
		}
		select {
		case sp.incomming <- val:
		case <-sp.done:
			return
		}
	}
}

func (sp *SPJS) loop() {
	var nextUp message

reconnect:
	for {
		select {
		case <-sp.done:
			return
		default:
		}

		sp.log.Println("Connecting to", sp.url)
		ws, _, err := websocket.DefaultDialer.Dial(sp.url, nil)
		if err != nil {
			sp.log.Println("ERROR: connect:", err)
			select {
			case <-time.After(3 * time.Second):
			case <-sp.done:
				return
			}
			continue
		}
		sp.log.Println("Connected.")
		ch := make(chan struct{})
		go sp.readLoop(ws, ch)
		go sp.WriteString("list") // refresh list on reconnect

		for {
			if nextUp.done != nil {
				err = ws.WriteMessage(websocket.TextMessage, nextUp.payload)
				if err != nil {
					sp.log.Println("ERROR: send:", err)
					ws.Close()
					continue reconnect
				}
				close(nextUp.done)
				nextUp.done = nil
			}

			select {
			case <-ch:
				ws.Close()
				continue reconnect
			case <-sp.done:
				ws.Close()
				return
			case nextUp = <-sp.outgoing:
			}
		}
	}
}

// WriteString sends a raw command and returns once it is on the wire.
func (sp *SPJS) WriteString(data string) error {
	ch := make(chan struct{})
	select {
	case sp.outgoing <- message{done: ch, payload: []byte(data)}:
	case <-sp.done:
		return ErrClosed
	}
	select {
	case <-ch:
		return nil
	case <-sp.done:
		return ErrClosed
	}
}

// Close stops reconnecting and drops the websocket.
func (sp *SPJS) Close() error {
	sp.closeOnce.Do(func() { close(sp.done) })
	return nil
}
