package state

import (
	"errors"
	"fmt"
	"sync"
	"testing"
)

func TestStoreGetPut(t *testing.T) {
	s := NewStore()

	if _, err := s.Get("sess-1", "schema"); err == nil {
		t.Fatal("Get on empty store = nil error, want KeyNotFoundError")
	} else {
		var notFound *KeyNotFoundError
		if !errors.As(err, &notFound) {
			t.Fatalf("error type = %T, want *KeyNotFoundError", err)
		}
	}

	s.Put("sess-1", "schema", "v1")
	v, err := s.Get("sess-1", "schema")
	if err != nil || v != "v1" {
		t.Fatalf("Get = %v, %v, want v1", v, err)
	}

	// Overwrite is allowed; the audit ledger records history, not the store.
	s.Put("sess-1", "schema", "v2")
	if v, _ := s.Get("sess-1", "schema"); v != "v2" {
		t.Fatalf("Get after overwrite = %v, want v2", v)
	}

	// Sessions do not leak into each other.
	if _, err := s.Get("sess-2", "schema"); err == nil {
		t.Fatal("key visible from another session")
	}
}

func TestStoreSnapshotIsolation(t *testing.T) {
	s := NewStore()
	s.Put("sess-1", "a", 1)
	s.Put("sess-1", "b", 2)

	snap := s.Snapshot("sess-1")
	if len(snap) != 2 {
		t.Fatalf("snapshot has %d keys, want 2", len(snap))
	}

	// Mutating the snapshot map must not affect the store.
	snap["c"] = 3
	if _, err := s.Get("sess-1", "c"); err == nil {
		t.Fatal("snapshot mutation leaked into the store")
	}
}

func TestStoreConcurrentSessions(t *testing.T) {
	s := NewStore()

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sessionID := fmt.Sprintf("sess-%d", i)
			for j := 0; j < 100; j++ {
				s.Put(sessionID, "counter", j)
			}
		}(i)
	}
	wg.Wait()

	for i := 0; i < 16; i++ {
		v, err := s.Get(fmt.Sprintf("sess-%d", i), "counter")
		if err != nil || v != 99 {
			t.Errorf("sess-%d counter = %v, %v, want 99", i, v, err)
		}
	}
}

func TestWithSessionLockSerializes(t *testing.T) {
	s := NewStore()

	counter := 0
	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = s.WithSessionLock("sess-1", func() error {
				counter++
				return nil
			})
		}()
	}
	wg.Wait()

	if counter != 32 {
		t.Errorf("counter = %d, want 32", counter)
	}
}

func TestWithSessionLockPropagatesError(t *testing.T) {
	s := NewStore()
	want := errors.New("boom")
	if got := s.WithSessionLock("sess-1", func() error { return want }); !errors.Is(got, want) {
		t.Errorf("WithSessionLock error = %v, want %v", got, want)
	}
}
