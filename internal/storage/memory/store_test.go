package memory

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/yndnr/minidb-go/internal/core/domain"
)

func TestStore_InsertLookupRemove(t *testing.T) {
	s := New()

	if existed := s.Insert("A", "B"); existed {
		t.Error("Insert on new key reported existing")
	}

	got, err := s.Lookup("A")
	if err != nil {
		t.Fatalf("Lookup: %v", err)
	}
	if got != "B" {
		t.Fatalf("Lookup = %q, want %q", got, "B")
	}

	if err := s.Remove("A"); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if _, err := s.Lookup("A"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("Lookup after Remove err = %v, want ErrKeyNotFound", err)
	}
}

func TestStore_InsertOverwrites(t *testing.T) {
	s := New()
	s.Insert("A", "B")
	if existed := s.Insert("A", "C"); !existed {
		t.Error("Insert on existing key should report existed")
	}

	got, _ := s.Lookup("A")
	if got != "C" {
		t.Fatalf("Lookup = %q, want %q", got, "C")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1", s.Len())
	}
}

func TestStore_RemoveMissing(t *testing.T) {
	s := New()
	s.Insert("A", "B")

	if err := s.Remove("X"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Fatalf("Remove missing err = %v, want ErrKeyNotFound", err)
	}
	if domain.StatusOf(s.Remove("X")) != domain.StatusNotFound {
		t.Error("Remove missing should map to status 1")
	}
	if s.Len() != 1 {
		t.Fatalf("Len = %d, want 1 (store must be unchanged)", s.Len())
	}
}

func TestStore_SnapshotSortedAndIsolated(t *testing.T) {
	s := New(WithShards(4))
	s.Insert("c", "3")
	s.Insert("a", "1")
	s.Insert("b", "2")

	snap := s.Snapshot()
	want := []domain.Record{{Key: "a", Value: "1"}, {Key: "b", Value: "2"}, {Key: "c", Value: "3"}}
	if len(snap) != len(want) {
		t.Fatalf("len(Snapshot) = %d, want %d", len(snap), len(want))
	}
	for i := range want {
		if snap[i] != want[i] {
			t.Errorf("Snapshot[%d] = %+v, want %+v", i, snap[i], want[i])
		}
	}

	s.Insert("d", "4")
	if len(snap) != 3 {
		t.Error("Snapshot must not observe later inserts")
	}
}

func TestStore_Restore(t *testing.T) {
	s := New()
	s.Insert("old", "x")

	s.Restore([]domain.Record{
		{Key: "A", Value: "1"},
		{Key: "B", Value: "2"},
		{Key: "A", Value: "3"},
	})

	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}
	if _, err := s.Lookup("old"); !errors.Is(err, domain.ErrKeyNotFound) {
		t.Error("Restore should drop previous contents")
	}
	if v, _ := s.Lookup("A"); v != "3" {
		t.Errorf("Lookup(A) = %q, want %q (last duplicate wins)", v, "3")
	}
}

func TestStore_ConcurrentAccess(t *testing.T) {
	s := New()
	const workers = 16
	const perWorker = 200

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				key := fmt.Sprintf("k-%d-%d", w, i)
				s.Insert(key, "v")
				if _, err := s.Lookup(key); err != nil {
					t.Errorf("Lookup(%q): %v", key, err)
					return
				}
				if i%2 == 0 {
					if err := s.Remove(key); err != nil {
						t.Errorf("Remove(%q): %v", key, err)
						return
					}
				}
			}
		}(w)
	}

	// Snapshots taken concurrently must never panic or race.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 20; i++ {
			_ = s.Snapshot()
		}
	}()

	wg.Wait()
	<-done

	if got, want := s.Len(), workers*perWorker/2; got != want {
		t.Fatalf("Len = %d, want %d", got, want)
	}
}

func TestStore_ConcurrentSameKey(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	var removed sync.Map

	s.Insert("K", "V")
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if s.Remove("K") == nil {
				removed.Store(i, true)
			}
		}(i)
	}
	wg.Wait()

	n := 0
	removed.Range(func(_, _ any) bool { n++; return true })
	if n != 1 {
		t.Fatalf("%d concurrent removes succeeded, want exactly 1", n)
	}
}
