package stream

import (
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/mastercactapus/lasersend/gcode"
	"github.com/mastercactapus/lasersend/port"
)

// ErrBusy is returned when a session is already dispatching.
var ErrBusy = errors.New("session busy")

// A Session binds a transport to a program and tracks the next line to send.
//
// The session owns the transport: nothing else may write to it while
// the session is open.
type Session struct {
	ID string

	t       port.Transport
	program gcode.Program

	mx     sync.Mutex
	cursor int
	busy   bool
	closed bool
}

// NewSession starts a session with the cursor at the start of p.
func NewSession(t port.Transport, p gcode.Program) *Session {
	return &Session{
		ID:      uuid.NewString(),
		t:       t,
		program: p,
	}
}

// OpenFunc acquires a transport.
type OpenFunc func() (port.Transport, error)

// Open acquires a transport and starts a session on it.
func Open(open OpenFunc, p gcode.Program) (*Session, error) {
	t, err := open()
	if err != nil {
		return nil, err
	}
	return NewSession(t, p), nil
}

func (s *Session) Program() gcode.Program { return s.program }
func (s *Session) Settings() port.Settings { return s.t.Settings() }

// Cursor returns the index of the next line to send.
func (s *Session) Cursor() int {
	s.mx.Lock()
	defer s.mx.Unlock()
	return s.cursor
}

func (s *Session) claim() error {
	s.mx.Lock()
	defer s.mx.Unlock()
	if s.closed {
		return port.ErrClosed
	}
	if s.busy {
		return ErrBusy
	}
	s.busy = true
	return nil
}

func (s *Session) release() {
	s.mx.Lock()
	s.busy = false
	s.mx.Unlock()
}

// discard drops replies the transport read ahead of the next poll, so a
// reply is only ever matched to the poll that asked for it.
func (s *Session) discard() {
	if d, ok := s.t.(port.Discarder); ok {
		d.Discard()
	}
}

func (s *Session) advance() {
	s.mx.Lock()
	s.cursor++
	s.mx.Unlock()
}

func (s *Session) seek(i int) {
	s.mx.Lock()
	s.cursor = i
	s.mx.Unlock()
}

// Close releases the transport. It is safe to call more than once.
func (s *Session) Close() error {
	s.mx.Lock()
	if s.closed {
		s.mx.Unlock()
		return nil
	}
	s.closed = true
	s.mx.Unlock()
	return s.t.Close()
}
