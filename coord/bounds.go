package coord

import "math"

// Bounds is an axis-aligned rectangle.
type Bounds struct {
	Min, Max Point
}

// BoundsOf returns the smallest Bounds containing every point.
//
// It returns the zero Bounds if points is empty.
func BoundsOf(points []Point) Bounds {
	if len(points) == 0 {
		return Bounds{}
	}
	b := Bounds{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		b.Min.X = math.Min(b.Min.X, p.X)
		b.Min.Y = math.Min(b.Min.Y, p.Y)
		b.Max.X = math.Max(b.Max.X, p.X)
		b.Max.Y = math.Max(b.Max.Y, p.Y)
	}
	return b
}

func (b Bounds) Width() float64  { return b.Max.X - b.Min.X }
func (b Bounds) Height() float64 { return b.Max.Y - b.Min.Y }

// Within reports if b fits inside a work area of the given size
// anchored at the origin.
func (b Bounds) Within(width, height float64) bool {
	return b.Min.X >= -Epsilon && b.Min.Y >= -Epsilon &&
		b.Max.X <= width+Epsilon && b.Max.Y <= height+Epsilon
}

// Corners returns the rectangle corners, counter-clockwise from Min.
func (b Bounds) Corners() []Point {
	return []Point{
		b.Min,
		{X: b.Max.X, Y: b.Min.Y},
		b.Max,
		{X: b.Min.X, Y: b.Max.Y},
	}
}
