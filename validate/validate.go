// Package validate provides sanity checks for untrusted inbound
// payloads. It checks:
//   - Session id shape (6 uppercase alphanumeric characters)
//   - Move string length and character set
//
// These checks run at the transport/router boundary before any registry
// or session access. They reject input that no session id or chess move
// in any notation could ever look like; actual move legality is the
// rules engine's call.
package validate

import (
	"errors"
	"fmt"
)

var (
	ErrEmptyMove    = errors.New("empty move")
	ErrMoveTooLong  = errors.New("move too long")
	ErrBadCharacter = errors.New("move contains invalid characters")
	ErrBadSessionID = errors.New("malformed session id")
)

// maxMoveLength comfortably covers the longest SAN a legal move can
// produce (e.g. "exd8=Q#") plus annotation suffixes clients might send.
const maxMoveLength = 16

const sessionIDLength = 6

// Move checks that a move string is plausibly a chess move in UCI or
// SAN before it reaches the rules engine.
func Move(move string) error {
	if move == "" {
		return ErrEmptyMove
	}
	if len(move) > maxMoveLength {
		return fmt.Errorf("%w: %d characters", ErrMoveTooLong, len(move))
	}
	for _, c := range move {
		if !isMoveChar(c) {
			return ErrBadCharacter
		}
	}
	return nil
}

// SessionID checks that id has the shape the registry generates.
func SessionID(id string) error {
	if len(id) != sessionIDLength {
		return ErrBadSessionID
	}
	for _, c := range id {
		if !(c >= 'A' && c <= 'Z') && !(c >= '0' && c <= '9') {
			return ErrBadSessionID
		}
	}
	return nil
}

// isMoveChar admits the characters used by UCI and SAN: squares, piece
// letters, captures, promotions, castling, and check/mate marks.
func isMoveChar(c rune) bool {
	switch {
	case c >= 'a' && c <= 'h':
		return true
	case c >= '1' && c <= '8':
		return true
	case c == 'K' || c == 'Q' || c == 'R' || c == 'B' || c == 'N' || c == 'O':
		return true
	case c == 'x' || c == '=' || c == '+' || c == '#' || c == '-' || c == '0' || c == 'q' || c == 'r' || c == 'n':
		return true
	default:
		return false
	}
}
