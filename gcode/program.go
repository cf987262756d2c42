package gcode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

var (
	// ErrFileNotFound is returned by LoadFile when the program file does not exist.
	ErrFileNotFound = errors.New("program file not found")

	// ErrIO is returned when a program could not be read.
	ErrIO = errors.New("program read failed")
)

// Program is the ordered, immutable list of raw command lines.
type Program []string

// Load reads every line from r, preserving order and content.
//
// Line endings (LF or CRLF) are stripped. A trailing newline at
// the end of the input does not produce an extra empty line.
func Load(r io.Reader) (Program, error) {
	br, ok := r.(*bufio.Reader)
	if !ok {
		br = bufio.NewReader(r)
	}

	var p Program
	for {
		s, err := br.ReadString('\n')
		if err == io.EOF {
			if s != "" {
				p = append(p, strings.TrimSuffix(s, "\r"))
			}
			return p, nil
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrIO, err)
		}
		s = strings.TrimSuffix(s, "\n")
		p = append(p, strings.TrimSuffix(s, "\r"))
	}
}

// LoadFile will read the program stored at path.
func LoadFile(path string) (Program, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrFileNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrIO, err)
	}
	defer f.Close()

	p, err := Load(f)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	return p, nil
}

// Parse splits data into a Program.
func Parse(data string) Program {
	p, _ := Load(strings.NewReader(data))
	return p
}

// Motions returns the number of motion commands in the program.
func (p Program) Motions() int {
	var n int
	for _, line := range p {
		if Classify(line) != OpNone {
			n++
		}
	}
	return n
}
