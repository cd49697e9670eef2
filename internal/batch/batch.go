package batch

import (
	"context"
	"runtime"
	"sync"

	"github.com/vk/apispec/internal/ctxlog"
)

// Result is the outcome of the job for one input.
type Result[T any] struct {
	Input string
	Value T
	Err   error
}

// Run calls job for every input using at most workers goroutines. Results
// keep the order of inputs. Once ctx is done, inputs that have not started
// are not run and report ctx.Err().
func Run[T any](ctx context.Context, inputs []string, workers int, job func(ctx context.Context, input string) (T, error)) []Result[T] {
	logger := ctxlog.Component(ctx, "batch")
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	workers = min(workers, len(inputs))

	results := make([]Result[T], len(inputs))
	ready := make(chan int)

	var wg sync.WaitGroup
	for id := 1; id <= workers; id++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			worker(ctx, workerID, inputs, ready, results, job)
		}(id)
	}

	logger.Debug("Batch started.", "inputs", len(inputs), "workers", workers)
	for i := range inputs {
		ready <- i
	}
	close(ready)
	wg.Wait()
	logger.Debug("Batch finished.", "inputs", len(inputs))

	return results
}

// worker is the processing loop for a single concurrent worker.
func worker[T any](ctx context.Context, workerID int, inputs []string, ready <-chan int, results []Result[T], job func(context.Context, string) (T, error)) {
	logger := ctxlog.Component(ctx, "batch")
	logger.Debug("Worker started.", "workerID", workerID)

	for i := range ready {
		input := inputs[i]
		results[i].Input = input

		if err := ctx.Err(); err != nil {
			results[i].Err = err
			continue
		}

		logger.Debug("Worker picked up input.", "workerID", workerID, "input", input)
		value, err := job(ctx, input)
		results[i].Value, results[i].Err = value, err
		if err != nil {
			logger.Debug("Job failed.", "workerID", workerID, "input", input, "error", err)
		}
	}
	logger.Debug("Worker finished.", "workerID", workerID)
}
