package session

import (
	"crypto/rand"
	"errors"
	"sync"

	"github.com/chessarena/chessarena/game/rules"
)

var ErrSessionNotFound = errors.New("session not found")

const idLength = 6

const idAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Registry owns all sessions and implements the matchmaking and
// eviction policy. It is safe for concurrent use; the registry lock is
// held only for map bookkeeping, never across network I/O.
type Registry struct {
	engine rules.Engine
	bc     Broadcaster

	mu       sync.Mutex
	sessions map[string]*Session
	order    []string // session ids in insertion order, for matchmaking preference
}

// NewRegistry creates an empty registry. Construct one per server
// instance and thread it through explicitly; there is no package-level
// singleton.
func NewRegistry(engine rules.Engine, bc Broadcaster) *Registry {
	return &Registry{
		engine:   engine,
		bc:       bc,
		sessions: make(map[string]*Session),
	}
}

// FindOrCreate returns the earliest-created session with a free seat.
// Scanning in insertion order keeps new arrivals from fragmenting
// across many half-empty sessions. When no session exists one is
// created; when every session is full the earliest is returned and the
// caller's seat attempt fails into the spectator fallback. New
// concurrent games come from Create (explicit creation), not from
// matchmaking.
func (r *Registry) FindOrCreate() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.order {
		s := r.sessions[id]
		if s.Occupancy() < 2 {
			return s
		}
	}

	if len(r.order) > 0 {
		return r.sessions[r.order[0]]
	}
	return r.createLocked()
}

// Create inserts a brand-new session regardless of existing capacity,
// for explicit game creation with a shareable id.
func (r *Registry) Create() *Session {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.createLocked()
}

func (r *Registry) createLocked() *Session {
	id := r.newIDLocked()
	s := New(id, r.engine, r.bc)
	r.sessions[id] = s
	r.order = append(r.order, id)
	return s
}

// Get looks up a session by id for explicit join requests.
func (r *Registry) Get(id string) (*Session, error) {
	r.mu.Lock()
	s, exists := r.sessions[id]
	r.mu.Unlock()

	if !exists {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// EvictIfEmpty removes the session immediately if it has no seated
// players and no spectators. Called right after any removal that could
// have emptied the session; returns whether an eviction happened.
func (r *Registry) EvictIfEmpty(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, exists := r.sessions[id]
	if !exists || !s.Empty() {
		return false
	}
	r.removeLocked(id)
	return true
}

// SweepEmpty removes every session with no players and no spectators
// and returns how many were removed. It is an idempotent backstop for
// evictions that were skipped; the empty predicate is re-verified under
// the registry lock.
func (r *Registry) SweepEmpty() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for _, id := range append([]string(nil), r.order...) {
		if s := r.sessions[id]; s != nil && s.Empty() {
			r.removeLocked(id)
			removed++
		}
	}
	return removed
}

func (r *Registry) removeLocked(id string) {
	delete(r.sessions, id)
	for i, other := range r.order {
		if other == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
}

// List returns all sessions in insertion order.
func (r *Registry) List() []*Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	result := make([]*Session, 0, len(r.order))
	for _, id := range r.order {
		result = append(result, r.sessions[id])
	}
	return result
}

// Count returns the number of live sessions.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// newIDLocked generates a 6-character uppercase alphanumeric id,
// regenerating on collision with any live session.
func (r *Registry) newIDLocked() string {
	for {
		bytes := make([]byte, idLength)
		rand.Read(bytes)
		id := make([]byte, idLength)
		for i, b := range bytes {
			id[i] = idAlphabet[int(b)%len(idAlphabet)]
		}
		if _, exists := r.sessions[string(id)]; !exists {
			return string(id)
		}
	}
}
