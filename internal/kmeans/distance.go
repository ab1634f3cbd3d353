package kmeans

import (
	"gonum.org/v1/gonum/floats"
)

// DistanceMetric measures distance between two points of the same dimension.
type DistanceMetric interface {
	Distance(a, b Point) (float64, error)
}

// DistanceFunc adapts a function to DistanceMetric.
type DistanceFunc func(a, b Point) (float64, error)

func (f DistanceFunc) Distance(a, b Point) (float64, error) {
	return f(a, b)
}

// CenterCalculator computes the representative center of a set of points.
type CenterCalculator interface {
	Center(points []Point) (Point, error)
}

// CenterFunc adapts a function to CenterCalculator.
type CenterFunc func(points []Point) (Point, error)

func (f CenterFunc) Center(points []Point) (Point, error) {
	return f(points)
}

var (
	// Euclidean is the default distance measurement.
	Euclidean = DistanceFunc(func(a, b Point) (float64, error) {
		if a.Dimension() != b.Dimension() {
			return 0, mismatch(a.Dimension(), b.Dimension())
		}
		return floats.Distance(a.coords, b.coords, 2), nil
	})

	// Mean computes the component-wise arithmetic mean into a new Point.
	Mean = CenterFunc(func(points []Point) (Point, error) {
		if len(points) == 0 {
			return Point{}, ErrEmptyCluster
		}
		l := points[0].Dimension()
		sum := make([]float64, l)
		for _, p := range points {
			if p.Dimension() != l {
				return Point{}, mismatch(l, p.Dimension())
			}
			floats.Add(sum, p.coords)
		}
		floats.Scale(1/float64(len(points)), sum)
		return Point{coords: sum}, nil
	})
)

// NearestCenterIndex returns index of the center closest to p.
// Ties resolve to the lowest index.
func NearestCenterIndex(metric DistanceMetric, centers []Point, p Point) (int, error) {
	n, _, err := nearest(metric, centers, p)
	return n, err
}

func nearest(metric DistanceMetric, centers []Point, p Point) (int, float64, error) {
	if len(centers) == 0 {
		return -1, 0, ErrEmptyCenterSet
	}
	for _, c := range centers {
		if c.Dimension() != p.Dimension() {
			return -1, 0, mismatch(p.Dimension(), c.Dimension())
		}
	}

	m, err := metric.Distance(p, centers[0])
	if err != nil {
		return -1, 0, err
	}
	n := 0
	for j := 1; j < len(centers); j++ {
		d, err := metric.Distance(p, centers[j])
		if err != nil {
			return -1, 0, err
		}
		if d < m {
			m = d
			n = j
		}
	}
	return n, m, nil
}
