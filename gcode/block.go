package gcode

import (
	"strconv"
	"strings"
)

// Word is an axis assignment read from a command, like X10.5.
type Word struct {
	W   byte
	Arg float64
}

// IsAxis returns true for the axes that move the head.
func (w Word) IsAxis() bool { return w.W == 'X' || w.W == 'Y' }

func (w Word) String() string {
	return string(w.W) + strconv.FormatFloat(w.Arg, 'f', -1, 64)
}

// Block is the axis words of a single command, in the order they appear.
type Block []Word

// Arg returns the last value assigned to w within the block.
func (b Block) Arg(w byte) (bool, float64) {
	var (
		ok  bool
		val float64
	)
	for _, g := range b {
		if g.W == w {
			ok, val = true, g.Arg
		}
	}
	return ok, val
}

func (b Block) String() string {
	var sb strings.Builder
	for _, w := range b {
		sb.WriteString(w.String())
	}
	return sb.String()
}
