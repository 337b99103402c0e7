package workerpool

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func TestRunReturnsOneResultPerItemInOrder(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}
	results := Run(context.Background(), items, 2, func(_ context.Context, n int) (int, error) {
		return n * n, nil
	})

	if len(results) != len(items) {
		t.Fatalf("got %d results, want %d", len(results), len(items))
	}
	for i, r := range results {
		want := items[i] * items[i]
		if r.Index != i || r.Value != want || r.Err != nil {
			t.Errorf("results[%d] = %+v, want value %d", i, r, want)
		}
	}
}

func TestRunRespectsConcurrencyLimit(t *testing.T) {
	var current, maxSeen atomic.Int32
	items := make([]int, 20)

	Run(context.Background(), items, 3, func(_ context.Context, _ int) (int, error) {
		n := current.Add(1)
		for {
			m := maxSeen.Load()
			if n <= m || maxSeen.CompareAndSwap(m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		current.Add(-1)
		return 0, nil
	})

	if maxSeen.Load() > 3 {
		t.Errorf("max concurrent = %d, want <= 3", maxSeen.Load())
	}
}

func TestRunOneItemErrorDoesNotCancelPeers(t *testing.T) {
	items := []int{1, 2, 3}
	failErr := errors.New("boom")

	results := Run(context.Background(), items, 3, func(_ context.Context, n int) (int, error) {
		if n == 2 {
			return 0, failErr
		}
		return n, nil
	})

	for i, r := range results {
		if items[i] == 2 {
			if r.Err != failErr {
				t.Errorf("results[%d].Err = %v, want %v", i, r.Err, failErr)
			}
			continue
		}
		if r.Err != nil {
			t.Errorf("results[%d].Err = %v, want nil", i, r.Err)
		}
	}
}

func TestRunCancelledContextStopsNewWork(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	items := []int{1, 2, 3}
	results := Run(ctx, items, 2, func(_ context.Context, n int) (int, error) {
		return n, nil
	})

	for i, r := range results {
		if r.Err == nil {
			t.Errorf("results[%d].Err = nil, want context.Canceled", i)
		}
	}
}
