package async

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
)

// ErrSkip marks an item that produced no value on purpose. It is recorded
// like any other error but is not logged as a failure.
var ErrSkip = errors.New("item skipped")

// Task processes a single fan-out item.
type Task[I, O any] func(ctx context.Context, item I) (O, error)

// Outcome is the result slot of one item.
type Outcome[O any] struct {
	Value O
	Err   error
}

func (o Outcome[O]) OK() bool { return o.Err == nil }

// Skipped reports whether the task declined the item.
func (o Outcome[O]) Skipped() bool { return errors.Is(o.Err, ErrSkip) }

// PanicError carries a panic recovered from a task.
type PanicError struct {
	Index int
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("task %d panicked: %v", e.Index, e.Value)
}

type fanoutConfig struct {
	name    string
	workers int
	timeout time.Duration
	logger  *slog.Logger
}

type Option func(*fanoutConfig)

// WithWorkers caps how many tasks run at once. n <= 0 means no cap.
func WithWorkers(n int) Option {
	return func(c *fanoutConfig) { c.workers = n }
}

// WithTaskTimeout bounds each task's run time.
func WithTaskTimeout(d time.Duration) Option {
	return func(c *fanoutConfig) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *fanoutConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithName labels the batch in logs.
func WithName(name string) Option {
	return func(c *fanoutConfig) { c.name = name }
}

// RunAll runs task over items concurrently and returns one outcome per item,
// in input order. A failing or panicking task only affects its own slot.
// Items that have not started when ctx is done record ctx.Err().
func RunAll[I, O any](ctx context.Context, items []I, task Task[I, O], opts ...Option) []Outcome[O] {
	cfg := fanoutConfig{name: "fanout", logger: slog.Default()}
	for _, o := range opts {
		o(&cfg)
	}

	out := make([]Outcome[O], len(items))
	if len(items) == 0 {
		return out
	}

	start := time.Now()
	var g errgroup.Group
	if cfg.workers > 0 {
		g.SetLimit(cfg.workers)
	}
	for i, item := range items {
		g.Go(func() error {
			out[i] = runOne(ctx, i, item, task, cfg.timeout)
			return nil
		})
	}
	_ = g.Wait()

	var failed, skipped int
	for i, o := range out {
		switch {
		case o.OK():
		case o.Skipped():
			skipped++
		default:
			failed++
			cfg.logger.Warn("async.fanout.item_failed", "batch", cfg.name, "index", i, "error", o.Err)
		}
	}
	cfg.logger.Debug("async.fanout.done",
		"batch", cfg.name,
		"items", len(items),
		"failed", failed,
		"skipped", skipped,
		"workers", cfg.workers,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return out
}

func runOne[I, O any](ctx context.Context, idx int, item I, task Task[I, O], timeout time.Duration) Outcome[O] {
	if err := ctx.Err(); err != nil {
		return Outcome[O]{Err: err}
	}
	tctx, cancel := ctx, context.CancelFunc(func() {})
	if timeout > 0 {
		tctx, cancel = context.WithTimeout(ctx, timeout)
	}
	defer cancel()

	done := make(chan Outcome[O], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- Outcome[O]{Err: &PanicError{Index: idx, Value: r}}
			}
		}()
		v, err := task(tctx, item)
		done <- Outcome[O]{Value: v, Err: err}
	}()

	select {
	case o := <-done:
		return o
	case <-tctx.Done():
		return Outcome[O]{Err: tctx.Err()}
	}
}

// Values returns the values of successful outcomes, preserving order.
func Values[O any](outcomes []Outcome[O]) []O {
	vals := make([]O, 0, len(outcomes))
	for _, o := range outcomes {
		if o.OK() {
			vals = append(vals, o.Value)
		}
	}
	return vals
}

// FirstError returns the first non-skip error, if any.
func FirstError[O any](outcomes []Outcome[O]) error {
	for _, o := range outcomes {
		if o.Err != nil && !o.Skipped() {
			return o.Err
		}
	}
	return nil
}
