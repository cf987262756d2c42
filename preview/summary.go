package preview

import (
	"fmt"

	"github.com/mastercactapus/lasersend/coord"
)

// Summary describes a path for an operator before sending it.
type Summary struct {
	Moves        int           `json:"moves"`
	RapidMoves   int           `json:"rapidMoves"`
	PathLength   float64       `json:"pathLength"`
	TravelLength float64       `json:"travelLength"`
	Bounds       coord.Bounds  `json:"bounds"`
	Hull         []coord.Point `json:"hull"`
	HullArea     float64       `json:"hullArea"`

	// OutOfBed is set when a bed size was given and the path leaves it.
	OutOfBed bool `json:"outOfBed"`
}

// Summarize computes a Summary for p. A zero bedW or bedH skips the bed check.
func Summarize(p *Path, bedW, bedH float64) Summary {
	s := Summary{
		Moves:      len(p.CutPath) - 1,
		RapidMoves: len(p.Travel),
		PathLength: coord.PathLength(p.CutPath),
		Bounds:     coord.BoundsOf(p.CutPath),
		Hull:       coord.Hull(p.CutPath),
	}
	for _, seg := range p.Travel {
		s.TravelLength += coord.PathLength(seg.Points)
	}
	s.HullArea = coord.Area(s.Hull)
	if bedW > 0 && bedH > 0 {
		s.OutOfBed = !s.Bounds.Within(bedW, bedH)
	}
	return s
}

func (s Summary) String() string {
	str := fmt.Sprintf("%d moves (%d rapid), path %.1fmm (travel %.1fmm), bounds %s-%s (%.1fx%.1fmm), hull area %.1fmm²",
		s.Moves, s.RapidMoves,
		s.PathLength, s.TravelLength,
		s.Bounds.Min, s.Bounds.Max, s.Bounds.Width(), s.Bounds.Height(),
		s.HullArea,
	)
	if s.OutOfBed {
		str += " [OUTSIDE BED]"
	}
	return str
}
