// internal/scraper/batch.go
package scraper

import (
	"context"
	"sync"
	"time"
)

// RunBatches processes items in consecutive groups of at most size.
// Items within a group run concurrently; groups run strictly one after
// another with an optional pause between them. Results keep the input
// order regardless of completion order.
//
// Workers report failure through their result value, so one failed
// item never stops the rest of the batch. Cancellation stops before
// the next group; results for unstarted items stay zero-valued.
func RunBatches[T, R any](ctx context.Context, items []T, size int, pause time.Duration, worker func(context.Context, T) R) []R {
	if size <= 0 {
		size = 1
	}

	results := make([]R, len(items))
	for start := 0; start < len(items); start += size {
		end := start + size
		if end > len(items) {
			end = len(items)
		}

		var wg sync.WaitGroup
		for i := start; i < end; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				results[i] = worker(ctx, items[i])
			}(i)
		}
		wg.Wait()

		if end == len(items) {
			break
		}
		if pause > 0 {
			select {
			case <-time.After(pause):
			case <-ctx.Done():
				return results
			}
		}
		if ctx.Err() != nil {
			return results
		}
	}
	return results
}
