package session

import "github.com/chessarena/chessarena/game/rules"

// Outbound event names. These are the stable wire vocabulary shared with
// clients; changing one breaks every connected frontend.
const (
	EventPlayerRole         = "playerRole"
	EventSpectatorRole      = "spectatorRole"
	EventSessionID          = "sessionId"
	EventGameStart          = "gameStart"
	EventPositionState      = "positionState"
	EventMove               = "move"
	EventInvalidMove        = "invalidMove"
	EventGameOver           = "gameOver"
	EventPlayerDisconnected = "playerDisconnected"
	EventError              = "error"
)

// Broadcaster delivers events to connections. Implementations must
// enqueue and return without blocking on network I/O: sessions call
// these methods while holding their lock.
type Broadcaster interface {
	// JoinChannel associates a connection with a session's channel so
	// subsequent Broadcast calls reach it.
	JoinChannel(connID, sessionID string)

	// Send delivers an event to a single connection.
	Send(connID, event string, payload any)

	// Broadcast delivers an event to every connection in a session's
	// channel.
	Broadcast(sessionID, event string, payload any)
}

// RolePayload names a seat, for playerRole and playerDisconnected.
type RolePayload struct {
	Role Role `json:"role"`
}

// SessionIDPayload carries the session's shareable identifier.
type SessionIDPayload struct {
	SessionID string `json:"sessionId"`
}

// PositionPayload carries the full position after a change.
type PositionPayload struct {
	FEN string `json:"fen"`
}

// MovePayload describes an accepted move in both notations.
type MovePayload struct {
	UCI string `json:"uci"`
	SAN string `json:"san"`
}

// ReasonPayload explains a rejected move.
type ReasonPayload struct {
	Reason string `json:"reason"`
}

// OutcomePayload reports the final result of a finished game.
type OutcomePayload struct {
	Outcome rules.Outcome `json:"outcome"`
	Reason  string        `json:"reason"`
}

// MessagePayload carries a targeted error message.
type MessagePayload struct {
	Message string `json:"message"`
}
