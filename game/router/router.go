package router

import (
	"errors"
	"log"
	"sync"

	"github.com/chessarena/chessarena/game/rules"
	"github.com/chessarena/chessarena/game/session"
	"github.com/chessarena/chessarena/validate"
)

// ErrUnboundConnection means an event arrived for a connection with no
// recorded session binding. Under correct transport sequencing this
// should not happen; the sender gets an error event instead of a crash.
var ErrUnboundConnection = errors.New("connection not bound to a session")

// binding is the transient connection→session association used for
// O(1) routing. The session's own membership stays authoritative.
type binding struct {
	sessionID string
	role      session.Role
}

// Router is the single entry point translating connection lifecycle and
// inbound messages into session operations. Every error it handles is
// recovered into a targeted event to the originating connection; nothing
// here is fatal to the process.
type Router struct {
	registry *session.Registry
	bc       session.Broadcaster

	mu       sync.Mutex
	bindings map[string]binding
}

// New creates a router over the given registry and broadcaster.
func New(registry *session.Registry, bc session.Broadcaster) *Router {
	return &Router{
		registry: registry,
		bc:       bc,
		bindings: make(map[string]binding),
	}
}

// OnConnect matches a new connection into a session: it takes the first
// free seat, or falls back to spectating when the session is full. A
// session evicted between matchmaking and the membership landing is
// abandoned and matchmaking reruns.
func (r *Router) OnConnect(connID string) {
	for {
		if r.join(connID, r.registry.FindOrCreate()) {
			return
		}
	}
}

// OnJoinRequest handles an explicit join-by-id. An unknown id produces a
// targeted error event. A connection already bound elsewhere is detached
// from its old session first so it never belongs to two sessions.
func (r *Router) OnJoinRequest(connID, sessionID string) {
	if err := validate.SessionID(sessionID); err != nil {
		r.bc.Send(connID, session.EventError, session.MessagePayload{Message: "session not found"})
		return
	}

	s, err := r.registry.Get(sessionID)
	if err != nil {
		r.bc.Send(connID, session.EventError, session.MessagePayload{Message: "session not found"})
		return
	}

	r.detach(connID)
	if !r.join(connID, s) {
		r.bc.Send(connID, session.EventError, session.MessagePayload{Message: "session not found"})
	}
}

// join seats connID in s (spectating when full) and records the
// binding. It reports false when s was evicted before the membership
// landed; the caller reruns matchmaking or reports the failure.
func (r *Router) join(connID string, s *session.Session) bool {
	role, ok := s.SeatPlayer(connID)
	if !ok {
		s.AddSpectator(connID)
		role = session.RoleSpectator
	}

	// The registry hands sessions out without holding its lock across
	// the seat assignment, so the last member's disconnect can evict s
	// before the membership above lands. Re-check registration: once
	// connID is a member the session can no longer go empty, so a
	// session registered here stays registered.
	if got, err := r.registry.Get(s.ID()); err != nil || got != s {
		s.RemoveConnection(connID)
		return false
	}

	r.mu.Lock()
	r.bindings[connID] = binding{sessionID: s.ID(), role: role}
	r.mu.Unlock()

	log.Printf("Connection %s joined session %s as %s", connID, s.ID(), role)
	return true
}

// OnMove routes a move to the bound session. Failures are surfaced to
// the originating connection only, never broadcast.
func (r *Router) OnMove(connID, move string) {
	b, ok := r.lookup(connID)
	if !ok {
		r.bc.Send(connID, session.EventError, session.MessagePayload{Message: ErrUnboundConnection.Error()})
		return
	}

	if err := validate.Move(move); err != nil {
		r.bc.Send(connID, session.EventInvalidMove, session.ReasonPayload{Reason: err.Error()})
		return
	}

	s, err := r.registry.Get(b.sessionID)
	if err != nil {
		r.bc.Send(connID, session.EventError, session.MessagePayload{Message: err.Error()})
		return
	}

	if err := s.SubmitMove(connID, move); err != nil {
		r.bc.Send(connID, session.EventInvalidMove, session.ReasonPayload{Reason: reasonFor(err)})
	}
}

// OnDisconnect detaches the connection from its session and evicts the
// session when nobody is left. The binding is cleared regardless.
func (r *Router) OnDisconnect(connID string) {
	r.detach(connID)
}

// detach removes connID from its bound session, triggers eviction when
// the session reports no seated players remain, and clears the binding.
func (r *Router) detach(connID string) {
	r.mu.Lock()
	b, ok := r.bindings[connID]
	delete(r.bindings, connID)
	r.mu.Unlock()

	if !ok {
		return
	}

	s, err := r.registry.Get(b.sessionID)
	if err != nil {
		return // already evicted
	}

	if playersEmpty := s.RemoveConnection(connID); playersEmpty {
		if r.registry.EvictIfEmpty(b.sessionID) {
			log.Printf("Evicted empty session %s", b.sessionID)
		}
	}
}

// Binding reports the session and role currently bound to connID.
func (r *Router) Binding(connID string) (sessionID string, role session.Role, ok bool) {
	b, found := r.lookup(connID)
	if !found {
		return "", "", false
	}
	return b.sessionID, b.role, true
}

func (r *Router) lookup(connID string) (binding, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.bindings[connID]
	return b, ok
}

// reasonFor maps session errors onto client-facing reasons. Illegal
// moves keep only the generic prefix; engine internals stay server-side.
func reasonFor(err error) string {
	switch {
	case errors.Is(err, session.ErrNotYourTurn):
		return "not your turn"
	case errors.Is(err, session.ErrGameFinished):
		return "game is finished"
	case errors.Is(err, rules.ErrIllegalMove):
		return "invalid move"
	default:
		return err.Error()
	}
}
