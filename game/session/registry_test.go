package session

import (
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/chessarena/chessarena/game/rules"
)

func newTestRegistry() (*Registry, *recorder) {
	bc := &recorder{}
	return NewRegistry(rules.NewEngine(), bc), bc
}

func TestFindOrCreate(t *testing.T) {
	registry, _ := newTestRegistry()

	t.Run("creates when empty", func(t *testing.T) {
		s := registry.FindOrCreate()
		if s == nil {
			t.Fatal("FindOrCreate returned nil")
		}
		if registry.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", registry.Count())
		}
	})

	t.Run("reuses under-full session", func(t *testing.T) {
		first := registry.FindOrCreate()
		first.SeatPlayer("conn-a")

		again := registry.FindOrCreate()
		if again.ID() != first.ID() {
			t.Error("Expected the under-full session to be reused")
		}
		if registry.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", registry.Count())
		}
	})

	t.Run("returns earliest when all full", func(t *testing.T) {
		first := registry.FindOrCreate()
		first.SeatPlayer("conn-b")

		// With both seats taken matchmaking must not create a second
		// session; the caller falls back to spectating.
		again := registry.FindOrCreate()
		if again.ID() != first.ID() {
			t.Error("Expected the full session back, not a new one")
		}
		if registry.Count() != 1 {
			t.Errorf("Expected 1 session, got %d", registry.Count())
		}
	})

	t.Run("prefers earliest under-full session", func(t *testing.T) {
		first := registry.List()[0]
		second := registry.Create()
		if second.ID() == first.ID() {
			t.Fatal("Create returned an existing session")
		}

		// Both first (freed seat) and second (brand new) have room;
		// matchmaking must pick the earliest.
		first.RemoveConnection("conn-a")

		s := registry.FindOrCreate()
		if s.ID() != first.ID() {
			t.Errorf("Expected earliest session %s, got %s", first.ID(), s.ID())
		}
	})
}

func TestCreate(t *testing.T) {
	registry, _ := newTestRegistry()

	first := registry.Create()
	second := registry.Create()
	if first.ID() == second.ID() {
		t.Error("Create returned duplicate ids")
	}
	if registry.Count() != 2 {
		t.Errorf("Expected 2 sessions, got %d", registry.Count())
	}
}

func TestGet(t *testing.T) {
	registry, _ := newTestRegistry()
	created := registry.FindOrCreate()

	s, err := registry.Get(created.ID())
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if s.ID() != created.ID() {
		t.Errorf("Got wrong session: %s", s.ID())
	}

	if _, err := registry.Get("NOSUCH"); !errors.Is(err, ErrSessionNotFound) {
		t.Errorf("Expected ErrSessionNotFound, got %v", err)
	}
}

func TestEvictIfEmpty(t *testing.T) {
	t.Run("keeps session with a player", func(t *testing.T) {
		registry, _ := newTestRegistry()
		s := registry.FindOrCreate()
		s.SeatPlayer("conn-a")
		if registry.EvictIfEmpty(s.ID()) {
			t.Error("Evicted a session with a seated player")
		}
	})

	t.Run("keeps session with only spectators", func(t *testing.T) {
		registry, _ := newTestRegistry()
		s := registry.FindOrCreate()
		s.SeatPlayer("conn-b")
		s.AddSpectator("spec-1")
		s.RemoveConnection("conn-b")
		if registry.EvictIfEmpty(s.ID()) {
			t.Error("Evicted a session that still has a spectator")
		}
	})

	t.Run("evicts fully empty session", func(t *testing.T) {
		registry, _ := newTestRegistry()
		s := registry.FindOrCreate()
		id := s.ID()
		s.SeatPlayer("conn-c")
		s.RemoveConnection("conn-c")

		if !registry.EvictIfEmpty(id) {
			t.Error("Expected eviction of empty session")
		}
		if _, err := registry.Get(id); !errors.Is(err, ErrSessionNotFound) {
			t.Error("Evicted session still retrievable")
		}
	})

	t.Run("unknown id is a no-op", func(t *testing.T) {
		registry, _ := newTestRegistry()
		if registry.EvictIfEmpty("NOSUCH") {
			t.Error("Evicted a session that does not exist")
		}
	})
}

func TestSweepEmpty(t *testing.T) {
	registry, _ := newTestRegistry()

	occupied := registry.Create()
	occupied.SeatPlayer("conn-a")
	occupied.SeatPlayer("conn-b")

	watched := registry.Create()
	watched.SeatPlayer("conn-c")
	watched.AddSpectator("spec-1")
	watched.RemoveConnection("conn-c")

	empty := registry.Create()
	empty.SeatPlayer("conn-e")
	empty.RemoveConnection("conn-e")

	removed := registry.SweepEmpty()
	if removed != 1 {
		t.Errorf("Expected 1 session swept, got %d", removed)
	}
	if _, err := registry.Get(empty.ID()); err == nil {
		t.Error("Empty session survived the sweep")
	}
	if _, err := registry.Get(occupied.ID()); err != nil {
		t.Error("Occupied session was swept")
	}
	if _, err := registry.Get(watched.ID()); err != nil {
		t.Error("Spectated session was swept")
	}

	// Idempotent.
	if removed := registry.SweepEmpty(); removed != 0 {
		t.Errorf("Second sweep removed %d sessions", removed)
	}
}

func TestIDGeneration(t *testing.T) {
	registry, _ := newTestRegistry()

	seen := make(map[string]bool)
	for i := 0; i < 50; i++ {
		id := registry.Create().ID()
		if len(id) != idLength {
			t.Fatalf("Expected %d-character id, got %q", idLength, id)
		}
		for _, c := range id {
			if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
				t.Fatalf("Unexpected character %q in id %q", c, id)
			}
		}
		if seen[id] {
			t.Fatalf("Duplicate session id %q", id)
		}
		seen[id] = true
	}
}

func TestRegistryConcurrentAccess(t *testing.T) {
	registry, _ := newTestRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := registry.FindOrCreate()
			s.SeatPlayer(fmt.Sprintf("conn-%d", n))
			registry.SweepEmpty()
		}(i)
	}
	wg.Wait()

	for _, s := range registry.List() {
		if s.Occupancy() > 2 {
			t.Errorf("Session %s over-seated", s.ID())
		}
	}
}
