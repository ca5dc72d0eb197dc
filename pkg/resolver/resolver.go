// Package resolver fans independent lookups out to a bounded number of
// goroutines and collects one result per key.
package resolver

import (
	"context"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"
)

// Options bound the fan-out.
type Options struct {
	// Workers caps concurrent calls. Zero or less means GOMAXPROCS.
	Workers int
	// Timeout bounds every single call. Zero means no per-call limit.
	Timeout time.Duration
}

// Result is the outcome of resolving one key.
type Result[K comparable, V any] struct {
	Key   K
	Value V
	Err   error
}

// Resolve calls fn once per key with at most opts.Workers calls in flight
// and waits for all of them. A failing call only marks its own result: the
// rest of the batch still runs. Results are in input order.
//
// fn must not touch shared state; callers fold the results after Resolve
// returns.
func Resolve[K comparable, V any](
	ctx context.Context,
	keys []K,
	opts Options,
	fn func(context.Context, K) (V, error),
) []Result[K, V] {
	results := make([]Result[K, V], len(keys))
	if len(keys) == 0 {
		return results
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	var g errgroup.Group

	g.SetLimit(workers)

	for i, key := range keys {
		results[i].Key = key

		g.Go(func() error {
			results[i].Value, results[i].Err = call(ctx, key, opts.Timeout, fn)

			return nil
		})
	}

	_ = g.Wait() //nolint:errcheck // workers never return an error.

	return results
}

func call[K comparable, V any](
	ctx context.Context,
	key K,
	timeout time.Duration,
	fn func(context.Context, K) (V, error),
) (V, error) {
	err := ctx.Err()
	if err != nil {
		var zero V

		return zero, err
	}

	if timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	return fn(ctx, key)
}

// Failed returns the results that carry an error.
func Failed[K comparable, V any](results []Result[K, V]) []Result[K, V] {
	var failed []Result[K, V]

	for _, r := range results {
		if r.Err != nil {
			failed = append(failed, r)
		}
	}

	return failed
}
