package gcode

import "strings"

// Op identifies the kind of motion a command performs.
type Op byte

const (
	OpNone Op = iota
	OpRapid
	OpCut
)

func (op Op) String() string {
	switch op {
	case OpRapid:
		return "rapid"
	case OpCut:
		return "cut"
	}
	return "none"
}

// Classify returns the motion type of line.
//
// Recognition is by substring: any line containing G0 is a rapid move
// and any other line containing G1 is a cut. This means G0 wins when
// both are present, and codes like G01 or G10 are matched as well.
func Classify(line string) Op {
	switch {
	case strings.Contains(line, "G0"):
		return OpRapid
	case strings.Contains(line, "G1"):
		return OpCut
	}
	return OpNone
}
