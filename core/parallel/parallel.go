// Package parallel splits row-wise loss kernels across CPU cores.
package parallel

import (
	"runtime"
	"sync"
)

// DefaultRowThreshold is the batch size below which kernels stay sequential.
const DefaultRowThreshold = 2048

// Parallelize divides items according to the number of CPU cores and calls fn
// concurrently for each [start, end) range.
func Parallelize(items int, fn func(start, end int)) {
	if items == 0 {
		return
	}

	numWorkers := runtime.NumCPU()
	if numWorkers > items {
		numWorkers = items
	}

	// ceiling division
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

// ParallelizeWithThreshold runs fn(0, items) on the calling goroutine when
// items <= threshold and falls back to Parallelize otherwise.
func ParallelizeWithThreshold(items int, threshold int, fn func(start, end int)) {
	if items <= threshold {
		fn(0, items)
		return
	}
	Parallelize(items, fn)
}

// MapRows evaluates fn for every row and stores the result at the row's
// position in dst, which must have length rows. Each row is written by
// exactly one goroutine, so a later sequential sum over dst is reproducible
// regardless of how rows were scheduled.
func MapRows(dst []float64, threshold int, fn func(row int) float64) {
	ParallelizeWithThreshold(len(dst), threshold, func(start, end int) {
		for i := start; i < end; i++ {
			dst[i] = fn(i)
		}
	})
}
