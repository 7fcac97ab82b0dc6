package rng

import (
	"fmt"
	"runtime"
	"sync"
	"testing"
)

func drawSequence(seed uint64, count int) []int {
	g := New(seed)
	out := make([]int, count)
	for i := range out {
		out[i] = g.Rn2(1 + i%50)
	}
	return out
}

// TestCrossPlatformReproducibility checks that draw sequences do not depend on
// scheduling or on how many generators run at once.
func TestCrossPlatformReproducibility(t *testing.T) {
	seed := uint64(12345)
	count := 1024
	reference := drawSequence(seed, count)

	t.Run("Multiple calls identical", func(t *testing.T) {
		for i := 0; i < 10; i++ {
			got := drawSequence(seed, count)
			for j := range got {
				if got[j] != reference[j] {
					t.Fatalf("iteration %d index %d: expected %d, got %d", i, j, reference[j], got[j])
				}
			}
		}
	})

	t.Run("Different GOMAXPROCS settings", func(t *testing.T) {
		original := runtime.GOMAXPROCS(0)
		defer runtime.GOMAXPROCS(original)

		for _, procs := range []int{1, 2, 4, runtime.NumCPU()} {
			if procs > runtime.NumCPU() {
				continue
			}
			t.Run(fmt.Sprintf("GOMAXPROCS=%d", procs), func(t *testing.T) {
				runtime.GOMAXPROCS(procs)
				got := drawSequence(seed, count)
				for j := range got {
					if got[j] != reference[j] {
						t.Errorf("GOMAXPROCS=%d index %d: expected %d, got %d", procs, j, reference[j], got[j])
					}
				}
			})
		}
	})

	t.Run("Concurrent generators", func(t *testing.T) {
		const numGoroutines = 8

		var wg sync.WaitGroup
		errs := make([]error, numGoroutines)
		for i := 0; i < numGoroutines; i++ {
			wg.Add(1)
			go func(id int) {
				defer wg.Done()
				got := drawSequence(seed, count)
				for j := range got {
					if got[j] != reference[j] {
						errs[id] = fmt.Errorf("goroutine %d index %d: expected %d, got %d", id, j, reference[j], got[j])
						return
					}
				}
			}(i)
		}
		wg.Wait()

		for _, err := range errs {
			if err != nil {
				t.Error(err)
			}
		}
	})
}

func BenchmarkRn2(b *testing.B) {
	g := New(1)
	for i := 0; i < b.N; i++ {
		g.Rn2(100)
	}
}
