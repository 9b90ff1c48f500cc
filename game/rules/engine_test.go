package rules

import (
	"errors"
	"strings"
	"testing"
)

func TestInitialPosition(t *testing.T) {
	engine := NewEngine()
	pos := engine.InitialPosition()

	if pos == nil {
		t.Fatal("InitialPosition() returned nil")
	}

	fen := pos.FEN()
	if !strings.HasPrefix(fen, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w") {
		t.Errorf("Unexpected starting FEN: %s", fen)
	}

	if turn := engine.SideToMove(pos); turn != White {
		t.Errorf("Expected white to move first, got %s", turn)
	}
}

func TestApply(t *testing.T) {
	engine := NewEngine()

	t.Run("legal UCI move", func(t *testing.T) {
		pos := engine.InitialPosition()
		result, err := engine.Apply(pos, "e2e4")
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if result.Terminal != nil {
			t.Error("Expected no terminal condition after opening move")
		}
		if result.SAN != "e4" {
			t.Errorf("Expected SAN 'e4', got '%s'", result.SAN)
		}
		if result.UCI != "e2e4" {
			t.Errorf("Expected UCI 'e2e4', got '%s'", result.UCI)
		}
		if turn := engine.SideToMove(result.Position); turn != Black {
			t.Errorf("Expected black to move after e4, got %s", turn)
		}
	})

	t.Run("legal SAN move", func(t *testing.T) {
		pos := engine.InitialPosition()
		result, err := engine.Apply(pos, "Nf3")
		if err != nil {
			t.Fatalf("Apply failed: %v", err)
		}
		if result.UCI != "g1f3" {
			t.Errorf("Expected UCI 'g1f3', got '%s'", result.UCI)
		}
	})

	t.Run("illegal move", func(t *testing.T) {
		pos := engine.InitialPosition()
		before := pos.FEN()

		_, err := engine.Apply(pos, "e2e5")
		if err == nil {
			t.Fatal("Expected error for illegal move")
		}
		if !errors.Is(err, ErrIllegalMove) {
			t.Errorf("Expected ErrIllegalMove, got %v", err)
		}
		if pos.FEN() != before {
			t.Error("Position changed after rejected move")
		}
	})

	t.Run("garbage input", func(t *testing.T) {
		pos := engine.InitialPosition()
		_, err := engine.Apply(pos, "not a move")
		if !errors.Is(err, ErrIllegalMove) {
			t.Errorf("Expected ErrIllegalMove for garbage input, got %v", err)
		}
	})
}

func TestApply_Checkmate(t *testing.T) {
	engine := NewEngine()
	pos := engine.InitialPosition()

	// Fool's mate: black checkmates white.
	moves := []string{"f2f3", "e7e5", "g2g4"}
	for _, mv := range moves {
		if _, err := engine.Apply(pos, mv); err != nil {
			t.Fatalf("Apply(%s) failed: %v", mv, err)
		}
	}

	result, err := engine.Apply(pos, "d8h4")
	if err != nil {
		t.Fatalf("Apply(d8h4) failed: %v", err)
	}

	if result.Terminal == nil {
		t.Fatal("Expected terminal condition after checkmate")
	}
	if result.Terminal.Outcome != BlackWins {
		t.Errorf("Expected black_wins, got %s", result.Terminal.Outcome)
	}
	if result.Terminal.Reason != "checkmate" {
		t.Errorf("Expected reason 'checkmate', got '%s'", result.Terminal.Reason)
	}
}

func TestApply_Stalemate(t *testing.T) {
	engine := NewEngine()

	pos, err := engine.PositionFromFEN("k7/8/2Q5/8/8/8/8/7K w - - 0 1")
	if err != nil {
		t.Fatalf("PositionFromFEN failed: %v", err)
	}

	result, err := engine.Apply(pos, "c6c7")
	if err != nil {
		t.Fatalf("Apply failed: %v", err)
	}

	if result.Terminal == nil {
		t.Fatal("Expected terminal condition after stalemating move")
	}
	if result.Terminal.Outcome != Draw {
		t.Errorf("Expected draw, got %s", result.Terminal.Outcome)
	}
	if result.Terminal.Reason != "stalemate" {
		t.Errorf("Expected reason 'stalemate', got '%s'", result.Terminal.Reason)
	}
}

func TestPositionFromFEN_Invalid(t *testing.T) {
	engine := NewEngine()
	if _, err := engine.PositionFromFEN("not a fen"); err == nil {
		t.Error("Expected error for invalid FEN")
	}
}
