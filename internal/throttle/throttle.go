// Package throttle runs independent operations with a bounded number in
// flight, collecting failures instead of stopping at the first one.
package throttle

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// ErrInvalidConcurrency is returned when maxConcurrent is less than one.
var ErrInvalidConcurrency = errors.New("max concurrency must be at least 1")

// Operation is a unit of work paired with the source that produced it.
// Source is carried through to the Failure so callers can report on it.
type Operation[T any] struct {
	Source T
	Run    func(ctx context.Context) error
}

// Failure is an operation that returned an error, was cancelled, or panicked.
type Failure[T any] struct {
	Source T
	Err    error
}

// Run executes ops with at most maxConcurrent running at once. Operations are
// started in order; as soon as any running operation finishes, the next one is
// started. Run returns after every operation has finished.
//
// A failing operation never cancels or delays the others and nothing is
// retried. The returned failures are not in any particular order.
func Run[T any](ctx context.Context, maxConcurrent int, ops []Operation[T]) ([]Failure[T], error) {
	if maxConcurrent < 1 {
		return nil, ErrInvalidConcurrency
	}
	if len(ops) == 0 {
		return nil, nil
	}

	// Each goroutine owns one slot, so no locking is needed.
	errs := make([]error, len(ops))

	// The group is deliberately not derived from ctx: a failure must not
	// cancel its siblings.
	var g errgroup.Group
	g.SetLimit(maxConcurrent)

	for i, op := range ops {
		// Blocks while maxConcurrent operations are in flight.
		g.Go(func() error {
			errs[i] = runOne(ctx, op)
			return nil
		})
	}
	g.Wait()

	var failures []Failure[T]
	for i, err := range errs {
		if err != nil {
			failures = append(failures, Failure[T]{Source: ops[i].Source, Err: err})
		}
	}
	return failures, nil
}

func runOne[T any](ctx context.Context, op Operation[T]) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("operation panicked: %v", r)
		}
	}()

	if op.Run == nil {
		return errors.New("operation has no run function")
	}
	return op.Run(ctx)
}
