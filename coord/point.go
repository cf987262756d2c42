package coord

import (
	"math"
	"strconv"
)

// Point is a position on the XY work plane.
type Point struct{ X, Y float64 }

// Origin is the machine origin every path starts from.
var Origin = Point{}

// Add will add the target values to p.
func (p Point) Add(target Point) Point {
	p.X += target.X
	p.Y += target.Y
	return p
}

// Sub will subtract the target values from p.
func (p Point) Sub(target Point) Point {
	p.X -= target.X
	p.Y -= target.Y
	return p
}

// Distance will return the 2D distance from p to target.
func (p Point) Distance(target Point) float64 {
	return math.Hypot(target.X-p.X, target.Y-p.Y)
}

func (p Point) String() string {
	return "(" + strconv.FormatFloat(p.X, 'f', -1, 64) + "," + strconv.FormatFloat(p.Y, 'f', -1, 64) + ")"
}

// PathLength returns the summed length of the polyline through points.
func PathLength(points []Point) float64 {
	var l float64
	for i := 1; i < len(points); i++ {
		l += points[i-1].Distance(points[i])
	}
	return l
}
