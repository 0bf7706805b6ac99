package workerpool

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestPoolProcessesAllJobs(t *testing.T) {
	pool := New[int, int](3, 10)
	if pool.Workers() != 3 {
		t.Errorf("Workers() = %d, want 3", pool.Workers())
	}
	pool.Start(context.Background(), func(_ context.Context, n int) int { return n * n })
	for i := 1; i <= 10; i++ {
		pool.Submit(i)
	}
	pool.Close()

	sum := 0
	for r := range pool.Results() {
		sum += r
	}
	if sum != 385 {
		t.Errorf("sum of squares = %d, want 385", sum)
	}
}

func TestNewSizing(t *testing.T) {
	if got := New[int, int](8, 2).Workers(); got != 2 {
		t.Errorf("pool larger than job count: %d workers", got)
	}
	if got := New[int, int](0, 0).Workers(); got != DefaultWorkers {
		t.Errorf("default workers = %d, want %d", got, DefaultWorkers)
	}
}

func TestMapKeepsOrder(t *testing.T) {
	var seen atomic.Int32
	names := []string{"Paul", "Silas", "Lydia", "Timothy"}
	got, err := Map(context.Background(), 2, names,
		func(_ context.Context, s string) int { return len(s) },
		func(int) { seen.Add(1) })
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff([]int{4, 5, 5, 7}, got); diff != "" {
		t.Errorf("Map() mismatch (-want +got):\n%s", diff)
	}
	if seen.Load() != 4 {
		t.Errorf("onResult called %d times", seen.Load())
	}
}

func TestMapCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	var calls atomic.Int32
	_, err := Map(ctx, 2, []int{1, 2, 3}, func(context.Context, int) int {
		calls.Add(1)
		return 1
	}, nil)
	if err != context.Canceled {
		t.Errorf("Map() error = %v, want context.Canceled", err)
	}
	if calls.Load() != 0 {
		t.Errorf("fn called %d times after cancel", calls.Load())
	}
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 4, nil, func(context.Context, int) int { return 0 }, nil)
	if err != nil || len(got) != 0 {
		t.Errorf("Map(nil) = %v, %v", got, err)
	}
}
