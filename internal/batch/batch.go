// Package batch implements the chunked parallel dispatch of spec §4.2:
// SegDistBatch and TriIntBatch split a flat array of pairs across the
// worker pool and write results into a pre-allocated output buffer with no
// reordering, grounded on original_source/src/geometry/geometry_computer.cpp's
// SegDist_unit/TriInt_unit thread-splitting pattern, reimplemented over
// pkg/workerpool instead of raw pthreads.
package batch

import (
	"context"

	"github.com/kasuganosora/spatialjoin/internal/geomkernel"
	"github.com/kasuganosora/spatialjoin/pkg/workerpool"
)

// SegPair is one segment-distance query: segment (P,P+A) against segment
// (Q,Q+B).
type SegPair struct {
	P, A, Q, B [3]float32
}

// TriPair is one triangle-intersection query.
type TriPair struct {
	S, T geomkernel.Triangle
}

// chunkRanges partitions n items into up to workers contiguous ranges,
// matching geometry_computer.cpp's ceil(pair_num/max_thread_num) split.
func chunkRanges(n, workers int) [][2]int {
	if workers < 1 {
		workers = 1
	}
	if n == 0 {
		return nil
	}
	chunkSize := (n + workers - 1) / workers
	if chunkSize < 1 {
		chunkSize = 1
	}
	var ranges [][2]int
	for start := 0; start < n; start += chunkSize {
		end := start + chunkSize
		if end > n {
			end = n
		}
		ranges = append(ranges, [2]int{start, end})
	}
	return ranges
}

// SegDistBatch computes the distance for every pair, dispatching contiguous
// chunks across pool's workers. The result slice is ordered identically to
// pairs — callers (internal/join's scatter phase) depend on this.
func SegDistBatch(ctx context.Context, pool *workerpool.Pool, pairs []SegPair) ([]float32, error) {
	out := make([]float32, len(pairs))
	if len(pairs) == 0 {
		return out, nil
	}

	workers := 1
	if pool != nil {
		workers = pool.WorkerCount()
	}

	return out, dispatch(ctx, pool, chunkRanges(len(pairs), workers), func(start, end int) {
		for i := start; i < end; i++ {
			pr := pairs[i]
			out[i] = geomkernel.SegDistSingle(pr.P, pr.A, pr.Q, pr.B)
		}
	})
}

// TriIntBatch computes the intersection flag for every pair, with the same
// chunking and ordering guarantees as SegDistBatch.
func TriIntBatch(ctx context.Context, pool *workerpool.Pool, pairs []TriPair) ([]bool, error) {
	out := make([]bool, len(pairs))
	if len(pairs) == 0 {
		return out, nil
	}

	workers := 1
	if pool != nil {
		workers = pool.WorkerCount()
	}

	return out, dispatch(ctx, pool, chunkRanges(len(pairs), workers), func(start, end int) {
		for i := start; i < end; i++ {
			pr := pairs[i]
			out[i] = geomkernel.TriIntSingle(pr.S, pr.T)
		}
	})
}

// dispatch runs one work func per chunk range, either directly (pool == nil,
// used by tests and single-threaded callers) or via pool.Submit so each
// chunk runs under the pool's goroutines.
func dispatch(ctx context.Context, pool *workerpool.Pool, ranges [][2]int, work func(start, end int)) error {
	if pool == nil {
		for _, r := range ranges {
			work(r[0], r[1])
		}
		return nil
	}

	errCh := make(chan error, len(ranges))
	for _, r := range ranges {
		r := r
		resultCh, err := pool.Submit(ctx, func(ctx context.Context) error {
			work(r[0], r[1])
			return nil
		})
		if err != nil {
			return err
		}
		go func() {
			select {
			case res := <-resultCh:
				errCh <- res.Error
			case <-ctx.Done():
				errCh <- ctx.Err()
			}
		}()
	}

	for range ranges {
		if err := <-errCh; err != nil {
			return err
		}
	}
	return nil
}
