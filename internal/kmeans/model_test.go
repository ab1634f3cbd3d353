package kmeans

import (
	"context"
	"log/slog"
	"math/rand"
	"sort"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// blobs returns n points around each of the given centers and their true labels.
func blobs(seed int64, n int, centers ...[]float64) ([]Point, []int) {
	rng := rand.New(rand.NewSource(seed))
	var points []Point
	var labels []int
	for c, center := range centers {
		for range n {
			coords := make([]float64, len(center))
			for d := range center {
				coords[d] = center[d] + rng.Float64()*2 - 1
			}
			points = append(points, NewPoint(coords...))
			labels = append(labels, c)
		}
	}
	return points, labels
}

// samePartition reports whether both labelings group points identically.
func samePartition(want, got []int) bool {
	if len(want) != len(got) {
		return false
	}
	fw := map[int]int{}
	bw := map[int]int{}
	for i := range want {
		if g, ok := fw[want[i]]; ok && g != got[i] {
			return false
		}
		if w, ok := bw[got[i]]; ok && w != want[i] {
			return false
		}
		fw[want[i]] = got[i]
		bw[got[i]] = want[i]
	}
	return true
}

func countingMetric(n *atomic.Int64) DistanceMetric {
	return DistanceFunc(func(a, b Point) (float64, error) {
		n.Add(1)
		return Euclidean.Distance(a, b)
	})
}

func TestFit_FourPoints(t *testing.T) {
	rng := &stubRand{ints: []int{0}, floats: []float64{0.5}}
	m, err := NewTrainer(2).Fit(context.Background(), fourPoints(), rng)
	require.NoError(t, err)

	assert.True(t, samePartition([]int{0, 0, 1, 1}, m.Guesses()))
	assert.True(t, m.Converged())
	assert.LessOrEqual(t, m.Iter(), 5)
	assert.InDelta(t, 1.0, m.Inertia(), 1e-12)

	p, err := m.Predict(NewPoint(0.2, 0.4))
	require.NoError(t, err)
	assert.Equal(t, m.Guesses()[0], p)
	assert.Equal(t, 2, m.K())
	assert.Len(t, m.Centroids(), 2)
}

// k-means++ picks the second seed from the same column as the first with
// probability 1/202 here, and Lloyd's algorithm then stays in the local
// optimum that splits the points by row. Every other seeding finds the
// column split.
func TestFit_FourPointsAcrossSeeds(t *testing.T) {
	columns := []int{0, 0, 1, 1}
	rows := []int{0, 1, 0, 1}
	found := 0
	for seed := int64(0); seed < 400; seed++ {
		m, err := NewTrainer(2).Fit(context.Background(), fourPoints(), rand.New(rand.NewSource(seed)))
		require.NoError(t, err)
		require.True(t, m.Converged())
		assert.LessOrEqual(t, m.Iter(), 5, "seed %d", seed)

		g := m.Guesses()
		if samePartition(columns, g) {
			found++
			continue
		}
		assert.True(t, samePartition(rows, g), "seed %d gave %v", seed, g)
	}
	assert.GreaterOrEqual(t, found, 390)
}

func TestFit_Blobs(t *testing.T) {
	points, labels := blobs(42, 30, []float64{0, 0}, []float64{50, 50}, []float64{100, 0})
	for seed := int64(1); seed <= 3; seed++ {
		got, err := ClusterSeed(points, 3, seed)
		require.NoError(t, err)
		assert.True(t, samePartition(labels, got), "seed %d", seed)
	}
}

func TestCluster_OutputShape(t *testing.T) {
	points, _ := blobs(1, 20, []float64{0, 0, 0}, []float64{5, 5, 5}, []float64{-5, 0, 5}, []float64{9, 9, -9})
	for _, k := range []int{2, 3, 4, 7} {
		got, err := ClusterSeed(points, k, 99)
		require.NoError(t, err)
		require.Len(t, got, len(points))
		for _, g := range got {
			assert.GreaterOrEqual(t, g, 0)
			assert.Less(t, g, k)
		}
	}
}

func TestCluster_Deterministic(t *testing.T) {
	points, _ := blobs(5, 50, []float64{0, 0}, []float64{3, 3}, []float64{6, 0})

	a, err := ClusterSeed(points, 4, 2024)
	require.NoError(t, err)
	b, err := ClusterSeed(points, 4, 2024)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := ClusterSeed(points, 4, 2024, WithConcurrency(1))
	require.NoError(t, err)
	d, err := ClusterSeed(points, 4, 2024, WithConcurrency(16))
	require.NoError(t, err)
	assert.Equal(t, c, d)
	assert.Equal(t, a, c)
}

func TestFit_ConvergenceIsIdempotent(t *testing.T) {
	points, _ := blobs(9, 25, []float64{0, 0}, []float64{4, 1}, []float64{1, 5})
	tr := NewTrainer(3, WithLogger(quietLogger()))
	m, err := tr.Fit(context.Background(), points, rand.New(rand.NewSource(3)))
	require.NoError(t, err)
	require.True(t, m.Converged())

	r := newRefiner(tr, points)
	next, _, err := r.step(context.Background(), m.Centroids())
	require.NoError(t, err)
	for j := range next {
		assert.True(t, next[j].Equal(m.Cluster(j)), "center %d moved", j)
	}
	assert.Equal(t, m.Guesses(), r.mapping)
}

func TestFit_InvalidClusterCount(t *testing.T) {
	tests := []struct {
		name   string
		k      int
		points []Point
	}{
		{"k below two", 1, fourPoints()},
		{"k zero", 0, fourPoints()},
		{"k above points", 5, fourPoints()},
		{"no points", 2, nil},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var calls atomic.Int64
			tr := NewTrainer(tc.k, WithDistanceMetric(countingMetric(&calls)))
			_, err := tr.Fit(context.Background(), tc.points, rand.New(rand.NewSource(1)))
			require.ErrorIs(t, err, ErrInvalidClusterCount)

			var ce *ClusterCountError
			require.ErrorAs(t, err, &ce)
			assert.Equal(t, tc.k, ce.K)
			assert.Zero(t, calls.Load())
		})
	}
}

func TestFit_DimensionMismatch(t *testing.T) {
	points := []Point{NewPoint(0, 0), NewPoint(1, 1), NewPoint(2, 2, 2), NewPoint(3, 3)}
	var calls atomic.Int64
	tr := NewTrainer(2, WithDistanceMetric(countingMetric(&calls)))

	_, err := tr.Fit(context.Background(), points, rand.New(rand.NewSource(1)))
	require.ErrorIs(t, err, ErrDimensionMismatch)

	var dm *DimensionMismatchError
	require.ErrorAs(t, err, &dm)
	assert.Equal(t, 2, dm.Index)
	assert.Equal(t, 2, dm.Expected)
	assert.Equal(t, 3, dm.Actual)
	assert.Zero(t, calls.Load())
}

func TestFit_RepeatedPoint(t *testing.T) {
	points := []Point{NewPoint(3, 3), NewPoint(3, 3)}

	got, err := ClusterSeed(points, 2, 1, WithLogger(quietLogger()))
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, g := range got {
		assert.Contains(t, []int{0, 1}, g)
	}

	got, err = ClusterSeed(points, 2, 1, WithEmptyClusterPolicy(EmptyClusterKeep), WithLogger(quietLogger()))
	require.NoError(t, err)
	assert.Len(t, got, 2)

	_, err = ClusterSeed(points, 2, 1, WithEmptyClusterPolicy(EmptyClusterFail))
	assert.ErrorIs(t, err, ErrEmptyCluster)
}

func TestFit_KEqualsPoints(t *testing.T) {
	points := []Point{NewPoint(0, 0), NewPoint(1, 0), NewPoint(0, 1), NewPoint(5, 5), NewPoint(-3, 2)}
	for seed := int64(1); seed <= 10; seed++ {
		got, err := ClusterSeed(points, len(points), seed)
		require.NoError(t, err)

		sorted := append([]int(nil), got...)
		sort.Ints(sorted)
		assert.Equal(t, []int{0, 1, 2, 3, 4}, sorted, "seed %d", seed)
	}
}

func TestFit_MaxIterations(t *testing.T) {
	rng := &stubRand{ints: []int{0}, floats: []float64{0.5}}
	tr := NewTrainer(2, WithMaxIterations(1), WithLogger(quietLogger()))

	m, err := tr.Fit(context.Background(), fourPoints(), rng)
	require.NoError(t, err)
	assert.False(t, m.Converged())
	assert.Equal(t, 1, m.Iter())
	assert.True(t, samePartition([]int{0, 0, 1, 1}, m.Guesses()))
}

func TestFit_DeltaThreshold(t *testing.T) {
	points, _ := blobs(11, 40, []float64{0, 0}, []float64{10, 10})
	m, err := NewTrainer(2, WithDeltaThreshold(1e-6)).Fit(context.Background(), points, rand.New(rand.NewSource(8)))
	require.NoError(t, err)
	assert.True(t, m.Converged())
}

func TestFit_NilRandomSource(t *testing.T) {
	_, err := NewTrainer(2).Fit(context.Background(), fourPoints(), nil)
	assert.ErrorIs(t, err, ErrNilRandomSource)
}

func TestFit_Cancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewTrainer(2).Fit(ctx, fourPoints(), rand.New(rand.NewSource(1)))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestDataset_Points(t *testing.T) {
	d := Dataset{{1, 2}, {3, 4}}
	points := d.Points()
	d[0][0] = 100

	require.Len(t, points, 2)
	assert.Equal(t, []float64{1, 2}, points[0].Coordinates())
	assert.Equal(t, []float64{3, 4}, points[1].Coordinates())
}

// recordHandler keeps messages of enabled records.
type recordHandler struct {
	level    slog.Level
	messages *[]string
}

func (h recordHandler) Enabled(_ context.Context, l slog.Level) bool { return l >= h.level }

func (h recordHandler) Handle(_ context.Context, r slog.Record) error {
	*h.messages = append(*h.messages, r.Message)
	return nil
}

func (h recordHandler) WithAttrs([]slog.Attr) slog.Handler { return h }
func (h recordHandler) WithGroup(string) slog.Handler      { return h }

func TestFit_IterationLogging(t *testing.T) {
	for _, tc := range []struct {
		level slog.Level
		want  int
	}{
		{slog.LevelDebug, 2},
		{slog.LevelInfo, 0},
	} {
		var messages []string
		logger := slog.New(recordHandler{level: tc.level, messages: &messages})
		rng := &stubRand{ints: []int{0}, floats: []float64{0.5}}

		_, err := NewTrainer(2, WithLogger(logger), WithConcurrency(1)).Fit(context.Background(), fourPoints(), rng)
		require.NoError(t, err)
		assert.Len(t, messages, tc.want, tc.level.String())
	}
}
