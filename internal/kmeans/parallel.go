package kmeans

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// parallel splits [0, n) into contiguous chunks and runs fn on each chunk,
// at most concurrency chunks at a time. Chunks never overlap, so fn may
// write to its own index range of shared slices without locking.
func parallel(ctx context.Context, n int, concurrency int, fn func(lo, hi int) error) error {
	if n == 0 {
		return nil
	}
	concurrency = max(1, min(concurrency, n))
	size := (n + concurrency - 1) / concurrency

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(lo, hi)
		})
	}
	return g.Wait()
}
