package parallel

import (
	"sync/atomic"
	"testing"
)

func TestParallelize_CoversRangeExactlyOnce(t *testing.T) {
	const items = 1000
	var touched [items]int32

	Parallelize(items, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&touched[i], 1)
		}
	})

	for i, n := range touched {
		if n != 1 {
			t.Fatalf("index %d touched %d times, want 1", i, n)
		}
	}
}

func TestParallelize_EmptyRange(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	if called {
		t.Error("fn should not be called for an empty range")
	}
}

func TestParallelize_SingleItem(t *testing.T) {
	var count int32
	Parallelize(1, func(start, end int) {
		atomic.AddInt32(&count, int32(end-start))
	})
	if count != 1 {
		t.Errorf("processed %d items, want 1", count)
	}
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(8, 16, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		if start != 0 || end != 8 {
			t.Errorf("sequential path got chunk [%d, %d), want [0, 8)", start, end)
		}
	})
	if calls != 1 {
		t.Errorf("sequential path made %d calls, want 1", calls)
	}
}

func TestParallelizeWithThreshold_Parallel(t *testing.T) {
	const items = 64
	var total int32
	ParallelizeWithThreshold(items, 4, func(start, end int) {
		atomic.AddInt32(&total, int32(end-start))
	})
	if total != items {
		t.Errorf("processed %d items, want %d", total, items)
	}
}
