// Package parallel provides simple range-splitting helpers for data-parallel
// work such as updating independent ensemble candidates concurrently.
package parallel

import (
	"runtime"
	"sync"
)

// Parallelize splits the half-open range [0, items) across up to NumCPU
// workers and calls fn(start, end) on each chunk concurrently. It returns
// once every chunk has been processed.
//
// fn must not share mutable state across chunks; the caller owns any final
// reduction step.
func Parallelize(items int, fn func(start, end int)) {
	if items <= 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// Ceiling division so the last worker picks up the remainder.
	chunkSize := (items + numWorkers - 1) / numWorkers

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		start := i * chunkSize
		end := start + chunkSize
		if end > items {
			end = items
		}
		if start >= end {
			continue
		}

		wg.Add(1)
		go func(s, e int) {
			defer wg.Done()
			fn(s, e)
		}(start, end)
	}

	wg.Wait()
}

// ParallelizeWithThreshold runs fn sequentially over the whole range when
// items is at or below threshold, and falls back to Parallelize otherwise.
// Small ensembles are cheaper to process on one goroutine than to fan out.
func ParallelizeWithThreshold(items, threshold int, fn func(start, end int)) {
	if items <= 0 {
		return
	}
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}
