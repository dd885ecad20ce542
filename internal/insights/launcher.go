package insights

import (
	"context"
	"sync"
	"time"
)

// Launcher starts a run without waiting for it.
type Launcher interface {
	Launch(ctx context.Context, task Task) error
}

type Executor interface {
	Execute(ctx context.Context, task Task)
}

// GoroutineLauncher runs each task in its own goroutine on a context that
// outlives the request.
type GoroutineLauncher struct {
	exec    Executor
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewGoroutineLauncher(exec Executor, timeout time.Duration) *GoroutineLauncher {
	return &GoroutineLauncher{exec: exec, timeout: timeout}
}

func (l *GoroutineLauncher) Launch(ctx context.Context, task Task) error {
	runCtx := context.WithoutCancel(ctx)
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		ctx := runCtx
		if l.timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, l.timeout)
			defer cancel()
		}
		l.exec.Execute(ctx, task)
	}()
	return nil
}

// Wait blocks until every launched task has finished.
func (l *GoroutineLauncher) Wait() {
	l.wg.Wait()
}
