package kmeans

import (
	"context"
	"math/rand"
)

// Cluster partitions points into k clusters and returns, for each point in
// input order, the index of its cluster.
func Cluster(points []Point, k int, rng RandomSource, options ...TrainerOption) ([]int, error) {
	m, err := NewTrainer(k, options...).Fit(context.Background(), points, rng)
	if err != nil {
		return nil, err
	}
	return m.Guesses(), nil
}

// ClusterSeed is Cluster with randomness derived from seed, so equal seeds give equal results.
func ClusterSeed(points []Point, k int, seed int64, options ...TrainerOption) ([]int, error) {
	return Cluster(points, k, rand.New(rand.NewSource(seed)), options...)
}
