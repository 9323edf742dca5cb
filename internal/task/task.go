package task

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/euphroshub/minimalist-stack/internal/ctxlog"
)

// Kind labels a node of an execution graph.
type Kind int

const (
	// KindLeaf is a task that performs work itself.
	KindLeaf Kind = iota
	// KindSeries runs its children strictly one after another.
	KindSeries
	// KindParallel starts all of its children at once and joins them.
	KindParallel
)

// String returns a human-readable representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindLeaf:
		return "task"
	case KindSeries:
		return "series"
	case KindParallel:
		return "parallel"
	default:
		return "unknown"
	}
}

// Func is the body of a leaf task. It must return only once all of its
// work, including every file write, has finished.
type Func func(ctx context.Context) error

// Task is a named, composable unit of build work. A Task is immutable once
// constructed.
type Task struct {
	Name     string
	Kind     Kind
	Children []*Task

	fn Func
}

// New creates a leaf task.
func New(name string, fn Func) *Task {
	return &Task{Name: name, Kind: KindLeaf, fn: fn}
}

// Series composes children into a strictly ordered sequence.
func Series(name string, children ...*Task) *Task {
	return &Task{Name: name, Kind: KindSeries, Children: children}
}

// Parallel composes children that start together.
func Parallel(name string, children ...*Task) *Task {
	return &Task{Name: name, Kind: KindParallel, Children: children}
}

// Error reports the failure of a leaf task.
type Error struct {
	Task string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("task '%s' failed: %v", e.Task, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Future is the asynchronous result of a started task.
type Future struct {
	done chan struct{}
	err  error
}

func newFuture() *Future {
	return &Future{done: make(chan struct{})}
}

func (f *Future) resolve(err error) {
	f.err = err
	close(f.done)
}

// Done is closed when the task has completed or failed.
func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the task's result. It is only meaningful after Done is closed.
func (f *Future) Err() error {
	select {
	case <-f.done:
		return f.err
	default:
		return nil
	}
}

// Wait blocks until the task settles and returns its result.
func (f *Future) Wait() error {
	<-f.done
	return f.err
}

// Start begins executing the task in the background and returns its future.
// Started tasks are never cancelled; ctx only prevents a sequence from
// starting further children.
func (t *Task) Start(ctx context.Context) *Future {
	f := newFuture()
	go func() {
		f.resolve(t.execute(ctx))
	}()
	return f
}

// Run starts the task and waits for it to settle.
func (t *Task) Run(ctx context.Context) error {
	return t.Start(ctx).Wait()
}

func (t *Task) execute(ctx context.Context) error {
	switch t.Kind {
	case KindLeaf:
		return t.runLeaf(ctx)
	case KindSeries:
		return t.runSeries(ctx)
	case KindParallel:
		return t.runParallel(ctx)
	default:
		return fmt.Errorf("task '%s' has unknown kind %d", t.Name, t.Kind)
	}
}

func (t *Task) runLeaf(ctx context.Context) (err error) {
	ctx = ctxlog.With(ctx, "task", t.Name)
	logger := ctxlog.FromContext(ctx)
	logger.Info("▶️ Starting task")
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
		if err != nil {
			logger.Error("❌ Task failed", "error", err, "duration", time.Since(started))
			err = &Error{Task: t.Name, Err: err}
			return
		}
		logger.Info("✅ Finished task", "duration", time.Since(started))
	}()

	if t.fn == nil {
		return nil
	}
	return t.fn(ctx)
}

func (t *Task) runSeries(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)
	for i, child := range t.Children {
		if err := ctx.Err(); err != nil {
			logger.Warn("Series interrupted, remaining tasks not started.", "series", t.Name, "remaining", len(t.Children)-i)
			return err
		}
		if err := child.Start(ctx).Wait(); err != nil {
			if rest := len(t.Children) - i - 1; rest > 0 {
				logger.Debug("Series stopped after failure.", "series", t.Name, "failed", child.Name, "skipped", rest)
			}
			return err
		}
	}
	return nil
}

func (t *Task) runParallel(ctx context.Context) error {
	futures := make([]*Future, len(t.Children))
	for i, child := range t.Children {
		futures[i] = child.Start(ctx)
	}

	var errs []error
	for _, f := range futures {
		if err := f.Wait(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
