package cache_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/KaramelBytes/datalens-cli/internal/cache"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func key(id string) cache.Key {
	return cache.Key{DatasetID: id, Rows: 10, UpdatedAt: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)}
}

func constant(v string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return v, nil }
}

func TestGetOrCompute_HitAfterMiss(t *testing.T) {
	c := cache.New[string](4, time.Minute)
	ctx := context.Background()
	v, hit, err := c.GetOrCompute(ctx, key("a"), constant("one"))
	if err != nil || hit || v != "one" {
		t.Fatalf("first call = %q hit=%v err=%v", v, hit, err)
	}
	v, hit, err = c.GetOrCompute(ctx, key("a"), constant("two"))
	if err != nil || !hit || v != "one" {
		t.Fatalf("second call = %q hit=%v err=%v", v, hit, err)
	}
}

func TestGetOrCompute_VersionChangeMisses(t *testing.T) {
	c := cache.New[string](4, time.Minute)
	ctx := context.Background()
	k := key("a")
	_, _, _ = c.GetOrCompute(ctx, k, constant("v1"))
	k.UpdatedAt = k.UpdatedAt.Add(time.Second)
	v, hit, _ := c.GetOrCompute(ctx, k, constant("v2"))
	if hit || v != "v2" {
		t.Fatalf("updated dataset should recompute, got %q hit=%v", v, hit)
	}
	k.Rows++
	if _, ok := c.Get(k); ok {
		t.Fatalf("row count is part of the key")
	}
}

func TestTTLExpiry(t *testing.T) {
	clk := &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	c := cache.New[string](4, 10*time.Second).WithClock(clk.Now)
	ctx := context.Background()
	_, _, _ = c.GetOrCompute(ctx, key("a"), constant("old"))
	clk.Advance(9 * time.Second)
	if _, ok := c.Get(key("a")); !ok {
		t.Fatalf("entry expired early")
	}
	clk.Advance(time.Second)
	if _, ok := c.Get(key("a")); ok {
		t.Fatalf("entry should have expired")
	}
	v, hit, _ := c.GetOrCompute(ctx, key("a"), constant("new"))
	if hit || v != "new" {
		t.Fatalf("expected recompute, got %q hit=%v", v, hit)
	}
}

func TestCapacityEvictsLeastRecentlyComputed(t *testing.T) {
	c := cache.New[string](2, 0)
	ctx := context.Background()
	_, _, _ = c.GetOrCompute(ctx, key("a"), constant("a"))
	_, _, _ = c.GetOrCompute(ctx, key("b"), constant("b"))
	// Reading "a" does not protect it: eviction follows computation order.
	if _, ok := c.Get(key("a")); !ok {
		t.Fatalf("a missing")
	}
	_, _, _ = c.GetOrCompute(ctx, key("c"), constant("c"))
	if c.Len() != 2 {
		t.Fatalf("len = %d", c.Len())
	}
	if _, ok := c.Get(key("a")); ok {
		t.Fatalf("a should have been evicted")
	}
	for _, id := range []string{"b", "c"} {
		if _, ok := c.Get(key(id)); !ok {
			t.Fatalf("%s should remain", id)
		}
	}
}

func TestGetOrCompute_SingleComputationUnderConcurrency(t *testing.T) {
	c := cache.New[int](4, time.Minute)
	var calls int32
	release := make(chan struct{})
	compute := func(context.Context) (int, error) {
		atomic.AddInt32(&calls, 1)
		<-release
		return 42, nil
	}
	const n = 32
	var wg sync.WaitGroup
	results := make([]int, n)
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _, errs[i] = c.GetOrCompute(context.Background(), key("hot"), compute)
		}(i)
	}
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()
	if got := atomic.LoadInt32(&calls); got != 1 {
		t.Fatalf("compute ran %d times", got)
	}
	for i := range results {
		if errs[i] != nil || results[i] != 42 {
			t.Fatalf("caller %d got %d, %v", i, results[i], errs[i])
		}
	}
}

func TestGetOrCompute_ErrorsAreNotCached(t *testing.T) {
	c := cache.New[string](4, time.Minute)
	boom := errors.New("boom")
	_, _, err := c.GetOrCompute(context.Background(), key("a"), func(context.Context) (string, error) { return "", boom })
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if c.Len() != 0 {
		t.Fatalf("error result was stored")
	}
}

func TestGetOrCompute_CancelledCallerStopsWaiting(t *testing.T) {
	c := cache.New[string](4, time.Minute)
	release := make(chan struct{})
	defer close(release)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err := c.GetOrCompute(ctx, key("slow"), func(context.Context) (string, error) {
		<-release
		return "late", nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestInvalidate(t *testing.T) {
	c := cache.New[string](8, time.Minute)
	ctx := context.Background()
	ka := key("a")
	ka2 := ka
	ka2.Variant = "question"
	_, _, _ = c.GetOrCompute(ctx, ka, constant("1"))
	_, _, _ = c.GetOrCompute(ctx, ka2, constant("2"))
	_, _, _ = c.GetOrCompute(ctx, key("b"), constant("3"))
	if n := c.Invalidate("a"); n != 2 {
		t.Fatalf("invalidated %d", n)
	}
	if c.Len() != 1 {
		t.Fatalf("len = %d", c.Len())
	}
}
