// Package preview turns a program into the geometry of its tool path,
// separating rapid travel from cutting moves.
package preview

import "github.com/mastercactapus/lasersend/coord"

// Kind tags a segment as cutting or travel.
type Kind string

const (
	KindCut    Kind = "cut"
	KindTravel Kind = "travel"
)

// Segment is an ordered run of at least two points sharing a Kind.
type Segment struct {
	Kind   Kind          `json:"kind"`
	Points []coord.Point `json:"points"`
}

// Path is the extracted geometry of a program.
type Path struct {
	// CutPath is every motion endpoint in program order, starting at the origin.
	CutPath []coord.Point `json:"cutPath"`

	// Travel has one two-point segment for every rapid move.
	Travel []Segment `json:"travel"`
}

// Cut returns the cut path as a single segment.
func (p *Path) Cut() Segment {
	return Segment{Kind: KindCut, Points: p.CutPath}
}

// Segments returns every segment of the path, cut polyline first.
//
// The cut polyline is omitted when the program has no motion commands.
func (p *Path) Segments() []Segment {
	res := make([]Segment, 0, len(p.Travel)+1)
	if len(p.CutPath) >= 2 {
		res = append(res, p.Cut())
	}
	return append(res, p.Travel...)
}
