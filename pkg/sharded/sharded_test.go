package sharded

import (
	"fmt"
	"sync"
	"testing"
)

func TestMap_BasicOperations(t *testing.T) {
	m := NewMap[int]()

	if m.Len() != 0 {
		t.Errorf("new map Len() = %d, want 0", m.Len())
	}

	m.Store("a", 1)
	m.Store("b", 2)

	if got, ok := m.Load("a"); !ok || got != 1 {
		t.Errorf("Load(a) = %d, %v; want 1, true", got, ok)
	}
	if !m.Has("b") {
		t.Error("Has(b) = false, want true")
	}
	if m.Has("c") {
		t.Error("Has(c) = true, want false")
	}
	if m.Len() != 2 {
		t.Errorf("Len() = %d, want 2", m.Len())
	}

	m.Store("a", 10)
	if got, _ := m.Load("a"); got != 10 {
		t.Errorf("Load(a) after overwrite = %d, want 10", got)
	}
	if m.Len() != 2 {
		t.Errorf("Len() after overwrite = %d, want 2", m.Len())
	}

	m.Delete("a")
	if m.Has("a") {
		t.Error("Has(a) after Delete = true, want false")
	}
	if m.Len() != 1 {
		t.Errorf("Len() after Delete = %d, want 1", m.Len())
	}
}

func TestMap_Items(t *testing.T) {
	m := NewMap[string]()
	want := map[string]string{"x": "1", "y": "2", "z": "3"}
	for k, v := range want {
		m.Store(k, v)
	}

	items := m.Items()
	if len(items) != len(want) {
		t.Fatalf("Items() returned %d entries, want %d", len(items), len(want))
	}
	for k, v := range want {
		if items[k] != v {
			t.Errorf("Items()[%q] = %q, want %q", k, items[k], v)
		}
	}
}

func TestMap_Range(t *testing.T) {
	m := NewMap[int]()
	for i := 0; i < 10; i++ {
		m.Store(fmt.Sprintf("key-%d", i), i)
	}

	seen := 0
	m.Range(func(key string, value int) bool {
		seen++
		return true
	})
	if seen != 10 {
		t.Errorf("Range visited %d entries, want 10", seen)
	}

	// Early termination stops the iteration.
	seen = 0
	m.Range(func(key string, value int) bool {
		seen++
		return false
	})
	if seen != 1 {
		t.Errorf("Range with early stop visited %d entries, want 1", seen)
	}
}

func TestMap_ConcurrentAccess(t *testing.T) {
	m := NewMap[int]()
	const goroutines = 8
	const perGoroutine = 200

	var wg sync.WaitGroup
	for g := 0; g < goroutines; g++ {
		g := g
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perGoroutine; i++ {
				key := fmt.Sprintf("g%d-k%d", g, i)
				m.Store(key, i)
				if got, ok := m.Load(key); !ok || got != i {
					t.Errorf("Load(%q) = %d, %v; want %d, true", key, got, ok, i)
				}
			}
		}()
	}
	wg.Wait()

	if m.Len() != goroutines*perGoroutine {
		t.Errorf("Len() = %d, want %d", m.Len(), goroutines*perGoroutine)
	}
}
