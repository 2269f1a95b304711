package partition

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/tigerroll/orgdigestor/pkg/batch/core/domain/model"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/exception"
	"github.com/tigerroll/orgdigestor/pkg/batch/support/util/logger"
)

// Unit is one independent piece of work: the processing of one chunk.
type Unit struct {
	Chunk model.Chunk
	Run   func(ctx context.Context) (model.ChunkReport, error)
}

// UnitResult is the outcome of a Unit. Err is set when the unit produced no report.
type UnitResult struct {
	Chunk  model.Chunk
	Report model.ChunkReport
	Err    error
}

// Dispatcher runs a batch of units and waits for all of them. It returns one result per
// unit, in completion order. A failing unit never prevents the others from running.
type Dispatcher interface {
	Dispatch(ctx context.Context, units []Unit) []UnitResult
}

// GoroutineDispatcher runs units on goroutines, at most maxWorkers at a time.
type GoroutineDispatcher struct {
	maxWorkers int
}

var _ Dispatcher = (*GoroutineDispatcher)(nil)

// NewGoroutineDispatcher creates a dispatcher. maxWorkers < 1 means no limit.
func NewGoroutineDispatcher(maxWorkers int) *GoroutineDispatcher {
	return &GoroutineDispatcher{maxWorkers: maxWorkers}
}

func (d *GoroutineDispatcher) Dispatch(ctx context.Context, units []Unit) []UnitResult {
	var (
		g       errgroup.Group
		mu      sync.Mutex
		results = make([]UnitResult, 0, len(units))
	)
	if d.maxWorkers > 0 {
		g.SetLimit(d.maxWorkers)
	}

	for _, u := range units {
		u := u
		g.Go(func() error {
			res := runUnit(ctx, u)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			// Unit failures travel in the result; the group never sees an error.
			return nil
		})
	}
	_ = g.Wait()
	return results
}

// SequentialDispatcher runs units one after the other on the calling goroutine.
type SequentialDispatcher struct{}

var _ Dispatcher = SequentialDispatcher{}

func (SequentialDispatcher) Dispatch(ctx context.Context, units []Unit) []UnitResult {
	results := make([]UnitResult, 0, len(units))
	for _, u := range units {
		results = append(results, runUnit(ctx, u))
	}
	return results
}

// runUnit executes u, turning a panic into a chunk failure.
func runUnit(ctx context.Context, u Unit) (res UnitResult) {
	res.Chunk = u.Chunk
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("Panic while processing %s: %v\n%s", u.Chunk, r, debug.Stack())
			res.Report = model.ChunkReport{}
			res.Err = exception.NewChunkFailure("dispatcher", fmt.Sprintf("panic while processing chunk %d", u.Chunk.Index), fmt.Errorf("%v", r))
		}
	}()
	res.Report, res.Err = u.Run(ctx)
	return res
}
