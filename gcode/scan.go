package gcode

import (
	"errors"
	"fmt"
	"strconv"
)

// ErrMalformedCommand is matched by every SyntaxError.
var ErrMalformedCommand = errors.New("malformed command")

// SyntaxError describes an axis word whose value could not be read.
type SyntaxError struct {
	// Line is the zero-based program index, or -1 when scanning a lone command.
	Line  int
	Text  string
	Axis  byte
	Value string
}

func (e *SyntaxError) Error() string {
	msg := fmt.Sprintf("malformed command %q: invalid %c value %q", e.Text, e.Axis, e.Value)
	if e.Line >= 0 {
		return fmt.Sprintf("line %d: %s", e.Line+1, msg)
	}
	return msg
}

func (e *SyntaxError) Is(target error) bool { return target == ErrMalformedCommand }

type scanState byte

const (
	scanIdle scanState = iota
	scanX
	scanY
)

// axisScan is one immutable step of the axis scanner. While accumulating,
// the pending value is line[start:i] for the current index i.
type axisScan struct {
	state scanState
	start int
}

// closed is a completed axis value, not yet parsed.
type closed struct {
	axis byte
	raw  string
}

func (s scanState) axis() byte {
	switch s {
	case scanX:
		return 'X'
	case scanY:
		return 'Y'
	}
	return 0
}

func isValueChar(c byte) bool {
	return (c >= '0' && c <= '9') || c == '.' || c == '-'
}

// step consumes the character at i (i == len(line) is the virtual terminator)
// and returns the next scan state plus any value that was closed by it.
func (s axisScan) step(line string, i int) (axisScan, *closed) {
	var c byte = ' '
	if i < len(line) {
		c = line[i]
	}

	var done *closed
	if s.state != scanIdle {
		if isValueChar(c) {
			return s, nil
		}
		done = &closed{axis: s.state.axis(), raw: line[s.start:i]}
		s = axisScan{}
	}

	switch c {
	case 'X':
		s = axisScan{state: scanX, start: i + 1}
	case 'Y':
		s = axisScan{state: scanY, start: i + 1}
	}
	return s, done
}

// ScanAxes reads the X and Y assignments from a single command in the
// order they appear. Any other letters are ignored.
func ScanAxes(line string) (Block, error) {
	var (
		s     axisScan
		done  *closed
		words Block
	)
	for i := 0; i <= len(line); i++ {
		s, done = s.step(line, i)
		if done == nil {
			continue
		}
		val, err := strconv.ParseFloat(done.raw, 64)
		if err != nil {
			return nil, &SyntaxError{Line: -1, Text: line, Axis: done.axis, Value: done.raw}
		}
		words = append(words, Word{W: done.axis, Arg: val})
	}
	return words, nil
}
