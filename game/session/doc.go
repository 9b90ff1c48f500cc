// Package session implements the game session lifecycle for the chess
// server.
//
// The session package provides:
//   - Session: one game's membership, position, and status
//   - Registry: thread-safe session storage and matchmaking
//   - The outbound event vocabulary shared with clients
//   - Eviction and periodic sweep of empty sessions
//
// Core Types:
//
// Session owns a single game. Its two seats (white fills before black)
// hold connection ids, with "" meaning an empty seat; spectators are an
// unbounded set. The status machine is
//
//	waiting --(2nd seat filled)--> active --(terminal outcome)--> finished
//	active  --(seated player disconnects)--> waiting
//
// finished is terminal: a finished session still accepts and sheds
// spectators but rejects further moves.
//
// Registry maps session ids to sessions. FindOrCreate prefers the
// earliest-created session with a free seat, so connections pair up
// instead of fragmenting into half-empty games.
//
// Session Identifiers:
//
// Sessions use 6-character uppercase alphanumeric ids for easy sharing.
// Generation uses cryptographic randomness and retries on collision
// with any live session.
//
// Concurrency:
//
// Every session operation runs under that session's mutex; registry
// bookkeeping runs under the registry's mutex. The registry may briefly
// take a session lock (for the empty/occupancy predicates) but session
// operations never take the registry lock, so the ordering cannot
// deadlock. Broadcasting from inside a critical section is safe because
// the Broadcaster contract is enqueue-and-return.
//
// Usage:
//
//	registry := session.NewRegistry(engine, broadcaster)
//
//	s := registry.FindOrCreate()
//	role, ok := s.SeatPlayer(connID)
//	if !ok {
//		s.AddSpectator(connID)
//	}
package session
