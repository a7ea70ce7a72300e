package executor

import (
	"context"
	"sync"
	"sync/atomic"
)

// Strategy selects the job-dispatch mechanism. Fingerprinting, manifests
// and command construction are shared regardless.
type Strategy int

const (
	// Parallel dispatches compile jobs across a bounded worker pool.
	Parallel Strategy = iota

	// Sequential runs jobs one at a time, in input order.
	Sequential
)

// runPool executes fn over items with bounded parallelism and returns one
// error slot per item, indexed like the input.
//
// Under fail-fast, a failed job stops not-yet-started items (their slot
// stays nil with started=false); jobs already running are allowed to finish
// so partially-written outputs are not left behind. Under best-effort
// (default), every item runs and every failure is reported.
func runPool[T any](ctx context.Context, items []T, workers int, failFast bool, fn func(context.Context, T) error) ([]error, []bool) {
	errs := make([]error, len(items))
	started := make([]bool, len(items))

	if len(items) == 0 {
		return errs, started
	}

	if workers < 1 {
		workers = 1
	}

	if workers > len(items) {
		workers = len(items)
	}

	var stop atomic.Bool
	next := make(chan int)

	go func() {
		defer close(next)
		for i := range items {
			if stop.Load() || ctx.Err() != nil {
				return
			}

			select {
			case next <- i:
			case <-ctx.Done():
				return
			}
		}
	}()

	var wg sync.WaitGroup
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range next {
				started[i] = true
				if err := fn(ctx, items[i]); err != nil {
					errs[i] = err
					if failFast {
						stop.Store(true)
					}
				}
			}
		}()
	}

	wg.Wait()
	return errs, started
}
