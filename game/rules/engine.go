package rules

import (
	"errors"
	"fmt"

	nchess "github.com/corentings/chess/v2"
)

// ErrIllegalMove is returned by Apply for any move the rules library
// rejects. Unparseable input is treated the same as an illegal move.
var ErrIllegalMove = errors.New("illegal move")

// Color identifies a side.
type Color string

const (
	White Color = "white"
	Black Color = "black"
)

// Outcome is a terminal game result.
type Outcome string

const (
	WhiteWins Outcome = "white_wins"
	BlackWins Outcome = "black_wins"
	Draw      Outcome = "draw"
)

// Terminal describes a game-ending condition reported by the rules
// library. The winner on checkmate comes from the library's own outcome,
// never recomputed here.
type Terminal struct {
	Outcome Outcome `json:"outcome"`
	Reason  string  `json:"reason"`
}

// Result is the effect of a successfully applied move.
type Result struct {
	Position *Position
	Terminal *Terminal
	UCI      string
	SAN      string
}

// Engine is the rules-engine contract consumed by sessions.
type Engine interface {
	// InitialPosition returns a fresh starting position.
	InitialPosition() *Position

	// PositionFromFEN builds a position from a FEN string.
	PositionFromFEN(fen string) (*Position, error)

	// Apply plays move on pos. On success the position advances and the
	// result reports any terminal condition. On failure pos is unchanged
	// and the error wraps ErrIllegalMove.
	Apply(pos *Position, move string) (*Result, error)

	// SideToMove reports whose turn it is in pos.
	SideToMove(pos *Position) Color
}

// Position is an opaque position handle. It is not safe for concurrent
// use; the owning session serializes access.
type Position struct {
	game *nchess.Game
}

// FEN returns the position in Forsyth-Edwards notation.
func (p *Position) FEN() string {
	return p.game.FEN()
}

type chessEngine struct{}

// NewEngine returns an Engine backed by the chess library.
func NewEngine() Engine {
	return &chessEngine{}
}

func (e *chessEngine) InitialPosition() *Position {
	return &Position{game: nchess.NewGame()}
}

func (e *chessEngine) PositionFromFEN(fen string) (*Position, error) {
	option, err := nchess.FEN(fen)
	if err != nil {
		return nil, err
	}
	return &Position{game: nchess.NewGame(option)}, nil
}

// Apply decodes the move as UCI first and falls back to standard
// algebraic notation, so both "e2e4" and "e4" are accepted.
func (e *chessEngine) Apply(pos *Position, move string) (*Result, error) {
	game := pos.game
	current := game.Position()

	result := &Result{Position: pos}

	if mv, err := (nchess.UCINotation{}).Decode(current, move); err == nil {
		// Decode validates against the position, so the move is legal here.
		result.SAN = nchess.AlgebraicNotation{}.Encode(current, mv)
		result.UCI = mv.String()
		game.Move(mv, nil)
	} else {
		if err := game.PushNotationMove(move, nchess.AlgebraicNotation{}, nil); err != nil {
			return nil, fmt.Errorf("%w: %s", ErrIllegalMove, move)
		}
		moves := game.Moves()
		last := moves[len(moves)-1]
		result.SAN = nchess.AlgebraicNotation{}.Encode(current, last)
		result.UCI = last.String()
	}

	result.Terminal = terminalOf(game)
	return result, nil
}

func (e *chessEngine) SideToMove(pos *Position) Color {
	if pos.game.Position().Turn() == nchess.White {
		return White
	}
	return Black
}

// terminalOf translates the library's outcome into the wire vocabulary.
// NoOutcome means the game continues.
func terminalOf(game *nchess.Game) *Terminal {
	var outcome Outcome
	switch game.Outcome() {
	case nchess.WhiteWon:
		outcome = WhiteWins
	case nchess.BlackWon:
		outcome = BlackWins
	case nchess.Draw:
		outcome = Draw
	default:
		return nil
	}

	reason := "draw"
	switch game.Method() {
	case nchess.Checkmate:
		reason = "checkmate"
	case nchess.Stalemate:
		reason = "stalemate"
	}

	return &Terminal{Outcome: outcome, Reason: reason}
}
