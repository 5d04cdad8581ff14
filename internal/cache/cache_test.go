package cache

import (
	"sync"
	"sync/atomic"
	"testing"
)

func constCost(int) int64 { return 1 }

func TestGetOrCreateMissThenHit(t *testing.T) {
	c := New(10, constCost)
	var builds int32

	create := func() (int, error) {
		atomic.AddInt32(&builds, 1)
		return 42, nil
	}

	v, err := c.GetOrCreate("a", create)
	if err != nil || v != 42 {
		t.Fatalf("GetOrCreate = %v, %v", v, err)
	}
	v, err = c.GetOrCreate("a", create)
	if err != nil || v != 42 {
		t.Fatalf("GetOrCreate (hit) = %v, %v", v, err)
	}
	if builds != 1 {
		t.Errorf("create called %d times, want 1 (idempotent insertion)", builds)
	}
}

func TestGetOrCreateConcurrentIsIdempotent(t *testing.T) {
	c := New(1000, constCost)
	var builds int32
	var wg sync.WaitGroup

	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = c.GetOrCreate("shared", func() (int, error) {
				atomic.AddInt32(&builds, 1)
				return 7, nil
			})
		}()
	}
	wg.Wait()

	if builds != 1 {
		t.Errorf("create called %d times under concurrency, want exactly 1", builds)
	}
}

func TestEvictionRespectsByteBudget(t *testing.T) {
	c := New(3, constCost)
	for _, k := range []string{"a", "b", "c", "d", "e"} {
		key := k
		_, err := c.GetOrCreate(key, func() (int, error) { return 1, nil })
		if err != nil {
			t.Fatalf("GetOrCreate(%s): %v", key, err)
		}
	}
	if c.Len() > 3 {
		t.Errorf("cache holds %d entries, budget is 3", c.Len())
	}
	// Most recently inserted must survive.
	if _, ok := c.Get("e"); !ok {
		t.Errorf("most recently used entry was evicted")
	}
}

func TestGetTouchesRecency(t *testing.T) {
	c := New(2, constCost)
	c.GetOrCreate("a", func() (int, error) { return 1, nil })
	c.GetOrCreate("b", func() (int, error) { return 2, nil })

	// Touch "a" so "b" becomes the least-recently-used entry.
	c.Get("a")
	c.GetOrCreate("c", func() (int, error) { return 3, nil })

	if _, ok := c.Get("a"); !ok {
		t.Errorf("recently touched entry should survive eviction")
	}
	if _, ok := c.Get("b"); ok {
		t.Errorf("least-recently-used entry should have been evicted")
	}
}

func TestGetOrCreatePropagatesError(t *testing.T) {
	c := New(10, constCost)
	wantErr := errBoom
	_, err := c.GetOrCreate("x", func() (int, error) { return 0, wantErr })
	if err != wantErr {
		t.Fatalf("GetOrCreate error = %v, want %v", err, wantErr)
	}
	if c.Len() != 0 {
		t.Errorf("failed creation should not populate the cache")
	}
}

type boomError struct{}

func (boomError) Error() string { return "boom" }

var errBoom = boomError{}
