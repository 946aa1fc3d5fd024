package extract

import (
	"context"
	"errors"
	"runtime"
	"sync"

	"go.uber.org/zap"

	"github.com/inodb/codon-counter/internal/alignment"
)

// WorkItem is one alignment file waiting to be processed.
type WorkItem struct {
	Seq  int
	Path string
}

// WorkResult holds the outcome for a single alignment file.
type WorkResult struct {
	Seq    int
	Path   string
	Result *SourceResult
	Err    error
}

// Skipped reports whether the file was ignored because it lacked the reference.
func (r WorkResult) Skipped() bool {
	return errors.Is(r.Err, alignment.ErrReferenceNotFound)
}

// ParallelRun processes work items using a pool of workers, each opening
// its own alignment file. Results are sent in arrival order; use
// OrderedCollect to consume them in sequence-number order.
// If workers is 0, runtime.NumCPU() is used.
func (e *Extractor) ParallelRun(ctx context.Context, items <-chan WorkItem, workers int) <-chan WorkResult {
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	results := make(chan WorkResult, 2*workers)

	var wg sync.WaitGroup
	wg.Add(workers)

	for range workers {
		go func() {
			defer wg.Done()
			for item := range items {
				res, err := e.Run(ctx, item.Path)
				results <- WorkResult{
					Seq:    item.Seq,
					Path:   item.Path,
					Result: res,
					Err:    err,
				}
			}
		}()
	}

	go func() {
		wg.Wait()
		close(results)
	}()

	return results
}

// OrderedCollect calls fn for each result in sequence-number order.
// It buffers out-of-order results in a pending map and emits them
// as soon as the next expected sequence number is available.
// Blocks until the results channel is closed.
func OrderedCollect(results <-chan WorkResult, fn func(WorkResult) error) error {
	pending := make(map[int]WorkResult)
	nextSeq := 0

	for r := range results {
		pending[r.Seq] = r

		for {
			rr, ok := pending[nextSeq]
			if !ok {
				break
			}
			delete(pending, nextSeq)
			nextSeq++
			if err := fn(rr); err != nil {
				// Drain remaining results to unblock workers.
				for range results {
				}
				return err
			}
		}
	}

	return nil
}

// RunAll processes every path and calls fn with the results in input order.
// A failure in one file does not stop the others: it is logged and passed
// to fn, which decides whether to abort by returning an error.
func (e *Extractor) RunAll(ctx context.Context, paths []string, workers int, fn func(WorkResult) error) error {
	items := make(chan WorkItem, len(paths))
	for i, p := range paths {
		items <- WorkItem{Seq: i, Path: p}
	}
	close(items)

	return OrderedCollect(e.ParallelRun(ctx, items, workers), func(r WorkResult) error {
		switch {
		case r.Skipped():
			e.logger.Warn("skipped alignment", zap.String("path", r.Path), zap.Error(r.Err))
		case r.Err != nil:
			e.logger.Error("failed to analyse alignment", zap.String("path", r.Path), zap.Error(r.Err))
		}
		return fn(r)
	})
}
