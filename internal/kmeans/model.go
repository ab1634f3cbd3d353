package kmeans

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

type Trainer struct {
	k             int
	maxIterations int
	metric        DistanceMetric
	center        CenterCalculator
	delta         float64
	concurrency   int
	emptyPolicy   EmptyClusterPolicy
	logger        *slog.Logger
}

type TrainerOption func(*Trainer)

type Model struct {
	metric    DistanceMetric
	k         int
	centroids []Point
	mapping   []int
	iter      int
	converged bool
	inertia   float64
}

// NewTrainer create new Trainer
func NewTrainer(k int, options ...TrainerOption) Trainer {
	t := Trainer{
		k:             k,
		maxIterations: 300,
		metric:        Euclidean,
		center:        Mean,
		concurrency:   runtime.NumCPU(),
		emptyPolicy:   EmptyClusterReseed,
		logger:        slog.Default(),
	}
	for i := range options {
		options[i](&t)
	}
	return t
}

func WithDistanceMetric(m DistanceMetric) TrainerOption {
	return func(t *Trainer) {
		if m != nil {
			t.metric = m
		}
	}
}

func WithCenterCalculator(c CenterCalculator) TrainerOption {
	return func(t *Trainer) {
		if c != nil {
			t.center = c
		}
	}
}

// WithMaxIterations caps the number of refinement passes; i <= 0 removes the cap.
func WithMaxIterations(i int) TrainerOption {
	return func(t *Trainer) {
		t.maxIterations = i
	}
}

// WithDeltaThreshold sets the center movement under which refinement stops.
// Zero means centers must be exactly equal.
func WithDeltaThreshold(delta float64) TrainerOption {
	return func(t *Trainer) {
		t.delta = delta
	}
}

// WithConcurrency sets number of workers per pass; c < 1 means runtime.NumCPU().
func WithConcurrency(c int) TrainerOption {
	return func(t *Trainer) {
		if c < 1 {
			c = runtime.NumCPU()
		}
		t.concurrency = c
	}
}

func WithEmptyClusterPolicy(p EmptyClusterPolicy) TrainerOption {
	return func(t *Trainer) {
		t.emptyPolicy = p
	}
}

func WithLogger(l *slog.Logger) TrainerOption {
	return func(t *Trainer) {
		if l != nil {
			t.logger = l
		}
	}
}

// validate checks cluster count and point dimensions before any distance is computed.
func (t Trainer) validate(points []Point) error {
	if t.k < 2 || t.k > len(points) {
		return &ClusterCountError{K: t.k, Points: len(points)}
	}
	l := points[0].Dimension()
	for i := 1; i < len(points); i++ {
		if d := points[i].Dimension(); d != l {
			return &DimensionMismatchError{Expected: l, Actual: d, Index: i}
		}
	}
	return nil
}

// Fit seeds centers with k-means++ and refines them with Lloyd's algorithm
// until no center moves or the iteration cap is reached.
func (t Trainer) Fit(ctx context.Context, points []Point, rng RandomSource) (*Model, error) {
	if err := t.validate(points); err != nil {
		return nil, err
	}
	if rng == nil {
		return nil, ErrNilRandomSource
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	centers, err := t.seed(ctx, points, rng)
	if err != nil {
		return nil, fmt.Errorf("seed: %w", err)
	}

	r := newRefiner(t, points)
	converged := false
	iter := 0
	for !converged && (t.maxIterations <= 0 || iter < t.maxIterations) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		next, changes, err := r.step(ctx, centers)
		if err != nil {
			return nil, fmt.Errorf("iteration %d: %w", iter+1, err)
		}
		iter++
		converged = t.converged(centers, next)
		centers = next
		if t.logger.Enabled(ctx, slog.LevelDebug) {
			t.logger.Debug("Refined centers",
				slog.Int("iter", iter),
				slog.Int("changes", changes),
				slog.Float64("inertia", r.inertia()),
				slog.Bool("converged", converged))
		}
	}
	if !converged {
		t.logger.Warn("Stopped before convergence", slog.Int("iter", iter))
	}

	if _, err := r.assign(ctx, centers); err != nil {
		return nil, fmt.Errorf("final assignment: %w", err)
	}

	return &Model{
		metric:    t.metric,
		k:         t.k,
		centroids: centers,
		mapping:   r.mapping,
		iter:      iter,
		converged: converged,
		inertia:   r.inertia(),
	}, nil
}

// Predict returns number of cluster to which the observation would be assigned.
func (m *Model) Predict(p Point) (int, error) {
	return NearestCenterIndex(m.metric, m.centroids, p)
}

// Guesses returns mapping from data point indices to cluster numbers.
func (m *Model) Guesses() []int {
	g := make([]int, len(m.mapping))
	copy(g, m.mapping)
	return g
}

// Cluster returns center of cluster i.
func (m *Model) Cluster(i int) Point {
	return m.centroids[i]
}

// Centroids returns all cluster centers, indexed by cluster number.
func (m *Model) Centroids() []Point {
	c := make([]Point, len(m.centroids))
	copy(c, m.centroids)
	return c
}

// K returns number of clusters.
func (m *Model) K() int {
	return m.k
}

// Iter returns model number of iterations.
func (m *Model) Iter() int {
	return m.iter
}

// Converged reports whether refinement stopped because centers were stable.
func (m *Model) Converged() bool {
	return m.converged
}

// Inertia returns sum of squared distances between points and their centers.
func (m *Model) Inertia() float64 {
	return m.inertia
}
