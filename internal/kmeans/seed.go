package kmeans

import (
	"context"
	"sort"

	"gonum.org/v1/gonum/floats"
)

// RandomSource is the randomness used for seeding. *math/rand.Rand implements it.
type RandomSource interface {
	Intn(n int) int
	Float64() float64
}

// seed chooses t.k initial centers with k-means++.
//
// The first center is drawn uniformly. Every next center is drawn with
// probability proportional to the squared distance between a point and its
// nearest already chosen center. When all points coincide with chosen
// centers (zero total weight) the point at index 0 is chosen.
func (t Trainer) seed(ctx context.Context, points []Point, rng RandomSource) ([]Point, error) {
	n := len(points)
	centers := make([]Point, 0, t.k)
	centers = append(centers, points[rng.Intn(n)])

	// d holds squared distance to the nearest chosen center, refreshed with
	// every new center.
	d := make([]float64, n)
	cum := make([]float64, n)
	for i := 1; i < t.k; i++ {
		c := centers[i-1]
		first := i == 1
		err := parallel(ctx, n, t.concurrency, func(lo, hi int) error {
			for j := lo; j < hi; j++ {
				l, err := t.metric.Distance(c, points[j])
				if err != nil {
					return err
				}
				if l *= l; first || l < d[j] {
					d[j] = l
				}
			}
			return nil
		})
		if err != nil {
			return nil, err
		}

		floats.CumSum(cum, d)
		centers = append(centers, points[pick(cum, d, rng.Float64()*cum[n-1])])
	}
	return centers, nil
}

// pick returns index of the first cumulative slot strictly greater than r.
func pick(cum []float64, d []float64, r float64) int {
	n := len(cum)
	if cum[n-1] <= 0 {
		return 0
	}
	k := sort.Search(n, func(j int) bool {
		return cum[j] > r
	})
	if k < n {
		return k
	}
	// r rounded up to the total.
	for k = n - 1; k > 0 && d[k] <= 0; k-- {
	}
	return k
}
