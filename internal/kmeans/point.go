package kmeans

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
)

// Point is an immutable vector in n-dimensional space.
type Point struct {
	coords []float64
}

// NewPoint create a Point holding a copy of coords.
func NewPoint(coords ...float64) Point {
	c := make([]float64, len(coords))
	copy(c, coords)
	return Point{coords: c}
}

// Dimension returns number of coordinates.
func (p Point) Dimension() int {
	return len(p.coords)
}

// Coordinates returns a copy of the point coordinates.
func (p Point) Coordinates() []float64 {
	c := make([]float64, len(p.coords))
	copy(c, p.coords)
	return c
}

// At returns coordinate i.
func (p Point) At(i int) float64 {
	return p.coords[i]
}

// Equal reports whether both points have the same dimension and exactly equal coordinates.
func (p Point) Equal(o Point) bool {
	return floats.Equal(p.coords, o.coords)
}

func (p Point) String() string {
	return fmt.Sprint(p.coords)
}

// Dataset is the raw form of a point set, one row per point.
type Dataset [][]float64

// Points converts the dataset rows to Points.
func (d Dataset) Points() []Point {
	points := make([]Point, len(d))
	for i := range d {
		points[i] = NewPoint(d[i]...)
	}
	return points
}
