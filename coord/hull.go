package coord

import (
	"math"

	"github.com/fogleman/delaunay"
)

// Epsilon is the max error when comparing positions.
const Epsilon = 0.001

// Hull returns the convex hull of points.
//
// Inputs that cannot be triangulated (fewer than 3 distinct points, or
// all points on a line) fall back to the corners of their bounding box.
func Hull(points []Point) []Point {
	if len(points) == 0 {
		return nil
	}
	uniq := distinct(points)
	if len(uniq) < 3 || collinear(uniq) {
		return BoundsOf(points).Corners()
	}

	d := make([]delaunay.Point, len(uniq))
	for i, p := range uniq {
		d[i] = delaunay.Point{X: p.X, Y: p.Y}
	}
	tri, err := delaunay.Triangulate(d)
	if err != nil || len(tri.ConvexHull) < 3 {
		return BoundsOf(points).Corners()
	}

	hull := make([]Point, len(tri.ConvexHull))
	for i, p := range tri.ConvexHull {
		hull[i] = Point{X: p.X, Y: p.Y}
	}
	return hull
}

func distinct(points []Point) []Point {
	seen := make(map[Point]struct{}, len(points))
	res := make([]Point, 0, len(points))
	for _, p := range points {
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		res = append(res, p)
	}
	return res
}

func collinear(points []Point) bool {
	a := points[0]
	ab := points[1].Sub(a)
	for _, c := range points[2:] {
		ac := c.Sub(a)
		cross := ab.X*ac.Y - ab.Y*ac.X
		if math.Abs(cross) > Epsilon*Epsilon {
			return false
		}
	}
	return true
}

// Area returns the area enclosed by the polygon using the shoelace formula.
func Area(polygon []Point) float64 {
	var a float64
	for i := range polygon {
		j := (i + 1) % len(polygon)
		a += polygon[i].X*polygon[j].Y - polygon[j].X*polygon[i].Y
	}
	return math.Abs(a) / 2
}
