// Package parallel provides generic fan-out execution over a slice of
// items with a bounded worker pool. The manager uses it to fan Run,
// Break, Detach, and Terminate calls out across every targeted engine at
// once (spec.md §4.6), since none of those calls block the caller.
package parallel

import (
	"sync"
)

// Result represents the outcome of processing a single item.
type Result[T any] struct {
	Index   int   // Original index in input slice
	Input   T     // The input item
	Success bool  // Whether processing succeeded
	Error   error // Error if processing failed
}

// WorkFunc is the function type for processing items.
type WorkFunc[T any] func(item T) error

// Execute processes items in parallel with the given concurrency and
// returns results in the same order as input items. The manager uses it
// to fan Run, Break, Detach, and Terminate out across every targeted
// engine at once (spec.md §4.6), since none of those calls block the
// caller.
func Execute[T any](items []T, parallelism int, work WorkFunc[T]) []Result[T] {
	if len(items) == 0 {
		return nil
	}

	if parallelism < 1 {
		parallelism = 1
	}

	results := make([]Result[T], len(items))

	// Channel for jobs (indices into items slice)
	jobs := make(chan int, len(items))

	// Start workers
	var wg sync.WaitGroup
	for w := 0; w < parallelism; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for idx := range jobs {
				item := items[idx]
				err := work(item)
				results[idx] = Result[T]{
					Index:   idx,
					Input:   item,
					Success: err == nil,
					Error:   err,
				}
			}
		}()
	}

	// Send jobs
	for i := range items {
		jobs <- i
	}
	close(jobs)

	// Wait for completion
	wg.Wait()

	return results
}
