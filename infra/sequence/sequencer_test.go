package sequence

import (
	"sync"
	"testing"
)

func TestSequencerMonotonic(t *testing.T) {
	s := New(0)
	if v := s.Next(); v != 1 {
		t.Fatalf("first version = %d, want 1", v)
	}
	if v := s.Next(); v != 2 {
		t.Fatalf("second version = %d, want 2", v)
	}
	if s.Current() != 2 {
		t.Fatalf("current = %d", s.Current())
	}
}

func TestSequencerConcurrentUnique(t *testing.T) {
	s := New(0)
	const workers, each = 8, 1000
	seen := make([][]uint64, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < each; i++ {
				seen[w] = append(seen[w], s.Next())
			}
		}(w)
	}
	wg.Wait()

	all := map[uint64]bool{}
	for _, vs := range seen {
		for _, v := range vs {
			if all[v] {
				t.Fatalf("duplicate version %d", v)
			}
			all[v] = true
		}
	}
	if s.Current() != workers*each {
		t.Fatalf("current = %d", s.Current())
	}
}
