package session

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/chessarena/chessarena/game/rules"
)

var (
	ErrNotYourTurn  = errors.New("not your turn")
	ErrGameFinished = errors.New("game already finished")
)

// Role is a participant's position in a session.
type Role string

const (
	RoleWhite     Role = "white"
	RoleBlack     Role = "black"
	RoleSpectator Role = "spectator"
)

// Status is a session's lifecycle state.
type Status string

const (
	// StatusWaiting means fewer than two players are seated.
	StatusWaiting Status = "waiting"
	// StatusActive means both seats are occupied and the game is on.
	StatusActive Status = "active"
	// StatusFinished means the rules engine reported a terminal outcome.
	// Finished is sticky; it never reverts.
	StatusFinished Status = "finished"
)

// Session owns one game: its two seats, spectators, position, and
// status. All operations are serialized by an internal mutex so a move
// in flight and a concurrent disconnect cannot race on shared state.
// Broadcasts happen under the lock, which is safe because Broadcaster
// implementations only enqueue.
type Session struct {
	id        string
	createdAt time.Time
	engine    rules.Engine
	bc        Broadcaster

	mu         sync.Mutex
	pos        *rules.Position
	white      string // connection id, "" when the seat is empty
	black      string
	spectators map[string]struct{}
	status     Status
	outcome    *rules.Terminal
}

// New creates a waiting session with a fresh starting position.
func New(id string, engine rules.Engine, bc Broadcaster) *Session {
	return &Session{
		id:         id,
		createdAt:  time.Now(),
		engine:     engine,
		bc:         bc,
		pos:        engine.InitialPosition(),
		spectators: make(map[string]struct{}),
		status:     StatusWaiting,
	}
}

// ID returns the session's immutable identifier.
func (s *Session) ID() string { return s.id }

// CreatedAt returns the session's creation time.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// SeatPlayer assigns the first free seat (white before black) to connID
// and reports the assigned role. ok is false when both seats are taken;
// the caller should fall back to AddSpectator. Filling the second seat
// starts the game: status moves to active and gameStart plus the current
// position are broadcast to all members.
func (s *Session) SeatPlayer(connID string) (role Role, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.white == "":
		s.white = connID
		role = RoleWhite
	case s.black == "":
		s.black = connID
		role = RoleBlack
	default:
		return "", false
	}

	s.bc.JoinChannel(connID, s.id)
	s.bc.Send(connID, EventPlayerRole, RolePayload{Role: role})
	s.bc.Send(connID, EventSessionID, SessionIDPayload{SessionID: s.id})

	if s.white != "" && s.black != "" && s.status == StatusWaiting {
		s.status = StatusActive
		s.bc.Broadcast(s.id, EventGameStart, nil)
		s.bc.Broadcast(s.id, EventPositionState, PositionPayload{FEN: s.pos.FEN()})
	}

	return role, true
}

// AddSpectator registers connID as a spectator. The insert is
// idempotent. The current position is sent to that connection only.
func (s *Session) AddSpectator(connID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.spectators[connID] = struct{}{}
	s.bc.JoinChannel(connID, s.id)
	s.bc.Send(connID, EventSpectatorRole, nil)
	s.bc.Send(connID, EventSessionID, SessionIDPayload{SessionID: s.id})
	s.bc.Send(connID, EventPositionState, PositionPayload{FEN: s.pos.FEN()})
}

// SubmitMove plays move on behalf of connID. It fails with
// ErrGameFinished after a terminal outcome, ErrNotYourTurn when connID
// does not hold the seat matching the side to move, and
// rules.ErrIllegalMove when the engine rejects the move. On success the
// move and new position are broadcast to the whole session; a terminal
// result flips status to finished before the single gameOver broadcast.
func (s *Session) SubmitMove(connID, move string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.status == StatusFinished {
		return ErrGameFinished
	}

	turnSeat := s.white
	if s.engine.SideToMove(s.pos) == rules.Black {
		turnSeat = s.black
	}
	if connID == "" || connID != turnSeat {
		return ErrNotYourTurn
	}

	result, err := s.engine.Apply(s.pos, move)
	if err != nil {
		return fmt.Errorf("move %q: %w", move, err)
	}

	s.pos = result.Position
	s.bc.Broadcast(s.id, EventMove, MovePayload{UCI: result.UCI, SAN: result.SAN})
	s.bc.Broadcast(s.id, EventPositionState, PositionPayload{FEN: s.pos.FEN()})

	if result.Terminal != nil {
		s.status = StatusFinished
		s.outcome = result.Terminal
		s.bc.Broadcast(s.id, EventGameOver, OutcomePayload{
			Outcome: result.Terminal.Outcome,
			Reason:  result.Terminal.Reason,
		})
	}

	return nil
}

// RemoveConnection detaches connID from the session. A vacated seat is
// announced with playerDisconnected and an active game falls back to
// waiting; the remaining player is not awarded a win. Spectators are
// removed silently. The return value reports whether no seated players
// remain, signalling the registry to consider eviction.
func (s *Session) RemoveConnection(connID string) (playersEmpty bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID != "" && connID == s.white {
		s.white = ""
		s.vacateLocked(RoleWhite)
	} else if connID != "" && connID == s.black {
		s.black = ""
		s.vacateLocked(RoleBlack)
	} else {
		delete(s.spectators, connID)
	}

	return s.white == "" && s.black == ""
}

func (s *Session) vacateLocked(role Role) {
	if s.status == StatusActive {
		s.status = StatusWaiting
	}
	s.bc.Broadcast(s.id, EventPlayerDisconnected, RolePayload{Role: role})
}

// Occupancy returns the number of occupied seats (0, 1, or 2).
func (s *Session) Occupancy() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupancyLocked()
}

func (s *Session) occupancyLocked() int {
	count := 0
	if s.white != "" {
		count++
	}
	if s.black != "" {
		count++
	}
	return count
}

// Empty reports whether the session has no players and no spectators.
func (s *Session) Empty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.occupancyLocked() == 0 && len(s.spectators) == 0
}

// Status returns the session's current lifecycle state.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Role reports connID's role in the session, or ok=false when the
// connection is not a member.
func (s *Session) Role(connID string) (Role, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if connID == "" {
		return "", false
	}
	switch connID {
	case s.white:
		return RoleWhite, true
	case s.black:
		return RoleBlack, true
	}
	if _, ok := s.spectators[connID]; ok {
		return RoleSpectator, true
	}
	return "", false
}

// Info is a point-in-time snapshot of a session for read surfaces.
type Info struct {
	ID          string        `json:"id"`
	Status      Status        `json:"status"`
	WhiteSeated bool          `json:"white_seated"`
	BlackSeated bool          `json:"black_seated"`
	Spectators  int           `json:"spectators"`
	FEN         string        `json:"fen"`
	Turn        rules.Color   `json:"turn"`
	Outcome     rules.Outcome `json:"outcome,omitempty"`
	CreatedAt   time.Time     `json:"created_at"`
}

// Info returns a consistent snapshot of the session.
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()

	info := Info{
		ID:          s.id,
		Status:      s.status,
		WhiteSeated: s.white != "",
		BlackSeated: s.black != "",
		Spectators:  len(s.spectators),
		FEN:         s.pos.FEN(),
		Turn:        s.engine.SideToMove(s.pos),
		CreatedAt:   s.createdAt,
	}
	if s.outcome != nil {
		info.Outcome = s.outcome.Outcome
	}
	return info
}
