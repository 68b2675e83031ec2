package resilience

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Result holds the settled outcome of one operation in a batch.
type Result[T any] struct {
	Value T
	Err   error
}

// Op is an operation that produces a value.
type Op[T any] func(ctx context.Context) (T, error)

// AllSettled runs every operation concurrently, each independently
// retried by r, and returns the settled result of each in input order.
// It never fails itself; per-operation errors live in the results.
func AllSettled[T any](ctx context.Context, r *Retry, ops []Op[T]) []Result[T] {
	results := make([]Result[T], len(ops))

	var g errgroup.Group
	for i, op := range ops {
		g.Go(func() error {
			results[i] = runRetried(ctx, r, op)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// Race runs every operation concurrently, each independently retried by
// r, and returns the first count successful values in completion order.
// Once count successes arrive the remaining operations are cancelled via
// their context. If fewer than count succeed, Race returns a *RaceError
// aggregating every failure.
func Race[T any](ctx context.Context, r *Retry, ops []Op[T], count int) ([]T, error) {
	if count <= 0 || count > len(ops) {
		return nil, &RaceError{Required: count, Succeeded: 0}
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	settled := make(chan Result[T], len(ops))

	var g errgroup.Group
	for _, op := range ops {
		g.Go(func() error {
			settled <- runRetried(raceCtx, r, op)
			return nil
		})
	}
	go func() {
		_ = g.Wait()
		close(settled)
	}()

	winners := make([]T, 0, count)
	var failures []error
	for res := range settled {
		if res.Err != nil {
			failures = append(failures, res.Err)
			continue
		}
		winners = append(winners, res.Value)
		if len(winners) == count {
			// Stop the stragglers; their results are discarded.
			cancel()
			return winners, nil
		}
	}

	return nil, &RaceError{
		Required:  count,
		Succeeded: len(winners),
		Failures:  failures,
	}
}

// runRetried adapts a value-producing operation to the error-only retry
// loop.
func runRetried[T any](ctx context.Context, r *Retry, op Op[T]) Result[T] {
	var value T
	err := r.Execute(ctx, func(ctx context.Context) error {
		v, err := op(ctx)
		if err != nil {
			return err
		}
		value = v
		return nil
	})
	if err != nil {
		return Result[T]{Err: err}
	}
	return Result[T]{Value: value}
}
