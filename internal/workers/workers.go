// Package workers runs a group of named goroutines that stop together.
package workers

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"github.com/fornellas/slogxt/log"
)

type worker struct {
	name  string
	fn    func(context.Context) error
	errCh chan error
}

// Group runs workers until the first one returns, then cancels the others.
type Group struct {
	mu         sync.Mutex
	workers    []*worker
	cancelFunc context.CancelFunc
}

func NewGroup() *Group {
	return &Group{}
}

// Add registers fn. It must be called before Start.
func (g *Group) Add(name string, fn func(context.Context) error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelFunc != nil {
		panic(fmt.Sprintf("bug: adding worker %#v to a started group", name))
	}
	g.workers = append(g.workers, &worker{name: name, fn: fn})
}

func (g *Group) Start(ctx context.Context) {
	ctx, logger := log.MustWithGroup(ctx, "Workers")

	g.mu.Lock()
	defer g.mu.Unlock()
	ctx, g.cancelFunc = context.WithCancel(ctx)

	logger.Debug("Starting workers", "count", len(g.workers))
	for _, w := range g.workers {
		workerCtx, workerLogger := log.MustWithGroup(ctx, w.name)
		w.errCh = make(chan error, 1)
		go func() {
			var err error
			defer func() {
				if r := recover(); r != nil {
					workerLogger.Debug("Panic", "recovered", r, "stack", string(debug.Stack()))
					err = fmt.Errorf("panic: %v", r)
				}
				workerLogger.Debug("Finished", "err", err)
				g.Cancel()
				w.errCh <- err
			}()
			workerLogger.Debug("Starting")
			err = w.fn(workerCtx)
		}()
	}
}

// Cancel requests all workers to stop.
func (g *Group) Cancel() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.cancelFunc != nil {
		g.cancelFunc()
	}
}

// Wait blocks until all workers returned, and joins their errors. Context cancellation is not
// reported as an error.
func (g *Group) Wait(ctx context.Context) error {
	logger := log.MustLogger(ctx).WithGroup("Workers")
	g.mu.Lock()
	workers := g.workers
	g.mu.Unlock()

	var err error
	for _, w := range workers {
		logger.Debug("Waiting", "name", w.name)
		workerErr := <-w.errCh
		if workerErr != nil && !errors.Is(workerErr, context.Canceled) {
			err = errors.Join(err, fmt.Errorf("%s: %w", w.name, workerErr))
		}
	}
	logger.Debug("All workers returned")
	return err
}
