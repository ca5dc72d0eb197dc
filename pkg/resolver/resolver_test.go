package resolver

import (
	"context"
	"errors"
	"strconv"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errOdd = errors.New("odd key")

func TestResolve_ReturnsOneResultPerKeyInOrder(t *testing.T) {
	t.Parallel()

	keys := []int{1, 2, 3, 4, 5, 6}

	results := Resolve(context.Background(), keys, Options{Workers: 3}, func(_ context.Context, k int) (string, error) {
		return strconv.Itoa(k * 10), nil
	})

	require.Len(t, results, len(keys))

	for i, r := range results {
		assert.Equal(t, keys[i], r.Key)
		assert.Equal(t, strconv.Itoa(keys[i]*10), r.Value)
		assert.NoError(t, r.Err)
	}
}

func TestResolve_FailuresDoNotAbortBatch(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32

	results := Resolve(context.Background(), []int{1, 2, 3, 4}, Options{Workers: 1}, func(_ context.Context, k int) (int, error) {
		calls.Add(1)

		if k%2 == 1 {
			return 0, errOdd
		}

		return k, nil
	})

	assert.Equal(t, int32(4), calls.Load())

	failed := Failed(results)
	require.Len(t, failed, 2)
	assert.Equal(t, 1, failed[0].Key)
	assert.ErrorIs(t, failed[1].Err, errOdd)
	assert.Equal(t, 4, results[3].Value)
}

func TestResolve_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	const workers = 2

	var inFlight, peak atomic.Int32

	keys := make([]int, 20)

	Resolve(context.Background(), keys, Options{Workers: workers}, func(_ context.Context, _ int) (struct{}, error) {
		n := inFlight.Add(1)

		for {
			old := peak.Load()
			if n <= old || peak.CompareAndSwap(old, n) {
				break
			}
		}

		time.Sleep(2 * time.Millisecond)
		inFlight.Add(-1)

		return struct{}{}, nil
	})

	assert.LessOrEqual(t, peak.Load(), int32(workers))
	assert.Positive(t, peak.Load())
}

func TestResolve_PerCallTimeout(t *testing.T) {
	t.Parallel()

	results := Resolve(context.Background(), []string{"slow", "fast"}, Options{Workers: 2, Timeout: 20 * time.Millisecond},
		func(ctx context.Context, k string) (string, error) {
			if k == "fast" {
				return k, nil
			}

			<-ctx.Done()

			return "", ctx.Err()
		})

	require.ErrorIs(t, results[0].Err, context.DeadlineExceeded)
	require.NoError(t, results[1].Err)
	assert.Equal(t, "fast", results[1].Value)
}

func TestResolve_CancelledContextMarksEveryKey(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls atomic.Int32

	results := Resolve(ctx, []int{1, 2}, Options{}, func(_ context.Context, k int) (int, error) {
		calls.Add(1)

		return k, nil
	})

	assert.Zero(t, calls.Load())
	assert.Len(t, Failed(results), 2)
}

func TestResolve_NoKeys(t *testing.T) {
	t.Parallel()

	results := Resolve(context.Background(), nil, Options{}, func(_ context.Context, _ int) (int, error) {
		return 0, nil
	})

	assert.Empty(t, results)
}
