package bvh

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// BatchResult pairs a hit with its validity for one ray of a batch.
type BatchResult struct {
	Hit Hit
	OK  bool
}

// IntersectBatch traverses many rays concurrently and returns one
// result per ray, in order. workers <= 0 uses one worker per CPU.
// Traversal is stateless, so the only coordination is the chunk split.
func (t *Tree) IntersectBatch(ctx context.Context, rays []Ray, vis Visibility, workers int) ([]BatchResult, error) {
	results := make([]BatchResult, len(rays))
	if len(rays) == 0 {
		return results, nil
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	chunk := (len(rays) + workers - 1) / workers

	g, ctx := errgroup.WithContext(ctx)
	for start := 0; start < len(rays); start += chunk {
		end := start + chunk
		if end > len(rays) {
			end = len(rays)
		}
		start, end := start, end
		g.Go(func() error {
			for i := start; i < end; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				results[i].Hit, results[i].OK = t.Intersect(rays[i], vis)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}
