package kmeans

import (
	"context"
	"fmt"
	"log/slog"

	"gonum.org/v1/gonum/floats"
)

// EmptyClusterPolicy decides what happens to a center left without points.
type EmptyClusterPolicy int

const (
	// EmptyClusterReseed moves the center onto the point farthest from its assigned center.
	EmptyClusterReseed EmptyClusterPolicy = iota
	// EmptyClusterKeep keeps the previous center.
	EmptyClusterKeep
	// EmptyClusterFail aborts with ErrEmptyCluster.
	EmptyClusterFail
)

func (p EmptyClusterPolicy) String() string {
	switch p {
	case EmptyClusterReseed:
		return "reseed"
	case EmptyClusterKeep:
		return "keep"
	case EmptyClusterFail:
		return "fail"
	}
	return fmt.Sprintf("EmptyClusterPolicy(%d)", int(p))
}

// ParseEmptyClusterPolicy parses reseed, keep or fail.
func ParseEmptyClusterPolicy(s string) (EmptyClusterPolicy, error) {
	for _, p := range []EmptyClusterPolicy{EmptyClusterReseed, EmptyClusterKeep, EmptyClusterFail} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown empty cluster policy %q", s)
}

// refiner runs Lloyd's assign/recompute passes over one point set.
type refiner struct {
	t       Trainer
	points  []Point
	mapping []int
	dist    []float64
	next    []int
}

func newRefiner(t Trainer, points []Point) *refiner {
	return &refiner{
		t:       t,
		points:  points,
		mapping: make([]int, len(points)),
		dist:    make([]float64, len(points)),
		next:    make([]int, len(points)),
	}
}

// assign maps every point to its nearest center and returns the number of
// points whose cluster changed.
func (r *refiner) assign(ctx context.Context, centers []Point) (int, error) {
	err := parallel(ctx, len(r.points), r.t.concurrency, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			n, d, err := nearest(r.t.metric, centers, r.points[i])
			if err != nil {
				return err
			}
			r.next[i] = n
			r.dist[i] = d
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	changes := 0
	for i, n := range r.next {
		if r.mapping[i] != n {
			changes++
		}
	}
	r.mapping, r.next = r.next, r.mapping
	return changes, nil
}

// recompute returns new centers from the current mapping.
func (r *refiner) recompute(ctx context.Context, centers []Point) ([]Point, error) {
	k := len(centers)
	members := make([][]Point, k)
	for i, n := range r.mapping {
		members[n] = append(members[n], r.points[i])
	}

	l := r.points[0].Dimension()
	next := make([]Point, k)
	err := parallel(ctx, k, r.t.concurrency, func(lo, hi int) error {
		for j := lo; j < hi; j++ {
			if len(members[j]) == 0 {
				continue
			}
			c, err := r.t.center.Center(members[j])
			if err != nil {
				return fmt.Errorf("center %d: %w", j, err)
			}
			if c.Dimension() != l {
				return fmt.Errorf("center %d: %w", j, mismatch(l, c.Dimension()))
			}
			next[j] = c
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	var taken map[int]bool
	for j := range members {
		if len(members[j]) > 0 {
			continue
		}
		switch r.t.emptyPolicy {
		case EmptyClusterFail:
			return nil, fmt.Errorf("center %d: %w", j, ErrEmptyCluster)
		case EmptyClusterKeep:
			next[j] = centers[j]
			r.t.logger.Warn("Empty cluster, keeping previous center", slog.Int("center", j))
		default:
			if taken == nil {
				taken = make(map[int]bool)
			}
			f := r.farthest(taken)
			taken[f] = true
			next[j] = r.points[f]
			r.t.logger.Warn("Empty cluster, reseeding to farthest point",
				slog.Int("center", j),
				slog.Int("point", f),
				slog.Float64("distance", r.dist[f]))
		}
	}
	return next, nil
}

// farthest returns the point with the largest distance to its assigned
// center, skipping taken points. Ties resolve to the lowest index.
func (r *refiner) farthest(taken map[int]bool) int {
	f := -1
	for i := range r.dist {
		if taken[i] {
			continue
		}
		if f < 0 || r.dist[i] > r.dist[f] {
			f = i
		}
	}
	return f
}

// step runs one assign/recompute pass.
func (r *refiner) step(ctx context.Context, centers []Point) ([]Point, int, error) {
	changes, err := r.assign(ctx, centers)
	if err != nil {
		return nil, 0, err
	}
	next, err := r.recompute(ctx, centers)
	if err != nil {
		return nil, 0, err
	}
	return next, changes, nil
}

// inertia returns sum of squared distances of points to their assigned centers.
func (r *refiner) inertia() float64 {
	return floats.Dot(r.dist, r.dist)
}

// converged reports whether no center moved more than the delta threshold.
// A zero threshold requires exact equality.
func (t Trainer) converged(prev, next []Point) bool {
	for j := range next {
		if t.delta <= 0 {
			if !next[j].Equal(prev[j]) {
				return false
			}
			continue
		}
		if floats.Distance(next[j].coords, prev[j].coords, 2) > t.delta {
			return false
		}
	}
	return true
}
