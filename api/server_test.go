package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/chessarena/chessarena/game/rules"
	"github.com/chessarena/chessarena/game/session"
	"github.com/chessarena/chessarena/transport/websocket"
)

// Test helpers
func setupTestServer() (*Server, *session.Registry) {
	hub := websocket.NewHub()
	registry := session.NewRegistry(rules.NewEngine(), hub)
	return NewServer(registry, hub), registry
}

func parseResponse(t *testing.T, w *httptest.ResponseRecorder, target interface{}) {
	t.Helper()
	if err := json.Unmarshal(w.Body.Bytes(), target); err != nil {
		t.Fatalf("Failed to parse response: %v", err)
	}
}

func TestCreateSession(t *testing.T) {
	server, registry := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("POST", "/api/sessions", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("Expected status %d, got %d", http.StatusCreated, w.Code)
	}

	var resp session.Info
	parseResponse(t, w, &resp)
	if len(resp.ID) != 6 {
		t.Errorf("Expected 6-character session id, got %q", resp.ID)
	}
	if resp.Status != session.StatusWaiting {
		t.Errorf("Expected waiting session, got %s", resp.Status)
	}
	if !strings.HasPrefix(resp.FEN, "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w") {
		t.Errorf("Expected the initial position, got %q", resp.FEN)
	}

	if registry.Count() != 1 {
		t.Errorf("Expected 1 session in the registry, got %d", registry.Count())
	}
}

func TestListSessions(t *testing.T) {
	t.Run("empty registry", func(t *testing.T) {
		server, _ := setupTestServer()

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sessions", nil)
		server.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}

		var resp struct {
			Count    int            `json:"count"`
			Sessions []session.Info `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		if resp.Count != 0 {
			t.Errorf("Expected count 0, got %d", resp.Count)
		}
		if resp.Sessions == nil {
			t.Error("Expected an empty array, got null")
		}
	})

	t.Run("multiple sessions", func(t *testing.T) {
		server, registry := setupTestServer()
		registry.Create()
		second := registry.Create()
		second.SeatPlayer("conn-a")

		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sessions", nil)
		server.ServeHTTP(w, req)

		var resp struct {
			Count    int            `json:"count"`
			Sessions []session.Info `json:"sessions"`
		}
		parseResponse(t, w, &resp)
		if resp.Count != 2 {
			t.Fatalf("Expected count 2, got %d", resp.Count)
		}

		seated := 0
		for _, info := range resp.Sessions {
			if info.WhiteSeated {
				seated++
			}
		}
		if seated != 1 {
			t.Errorf("Expected exactly one session with a seated player, got %d", seated)
		}
	})
}

func TestGetSession(t *testing.T) {
	server, registry := setupTestServer()
	created := registry.Create()
	created.SeatPlayer("conn-a")

	t.Run("existing session", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sessions/"+created.ID(), nil)
		server.ServeHTTP(w, req)

		if w.Code != http.StatusOK {
			t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
		}

		var resp session.Info
		parseResponse(t, w, &resp)
		if resp.ID != created.ID() {
			t.Errorf("Expected session %s, got %s", created.ID(), resp.ID)
		}
		if !resp.WhiteSeated || resp.BlackSeated {
			t.Errorf("Expected only white seated, got white=%v black=%v", resp.WhiteSeated, resp.BlackSeated)
		}
	})

	t.Run("session not found", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sessions/ZZZZZZ", nil)
		server.ServeHTTP(w, req)

		if w.Code != http.StatusNotFound {
			t.Errorf("Expected status %d, got %d", http.StatusNotFound, w.Code)
		}

		var resp map[string]string
		parseResponse(t, w, &resp)
		if resp["error"] == "" {
			t.Error("Expected an error message")
		}
	})

	t.Run("malformed session id", func(t *testing.T) {
		w := httptest.NewRecorder()
		req := httptest.NewRequest("GET", "/api/sessions/not-a-valid-id", nil)
		server.ServeHTTP(w, req)

		if w.Code != http.StatusBadRequest {
			t.Errorf("Expected status %d, got %d", http.StatusBadRequest, w.Code)
		}
	})
}

func TestGetBoard(t *testing.T) {
	server, registry := setupTestServer()
	created := registry.Create()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/api/sessions/"+created.ID()+"/board", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		FEN    string `json:"fen"`
		Turn   string `json:"turn"`
		Status string `json:"status"`
	}
	parseResponse(t, w, &resp)
	if !strings.HasPrefix(resp.FEN, "rnbqkbnr/") {
		t.Errorf("Expected the initial position, got %q", resp.FEN)
	}
	if resp.Turn != string(rules.White) {
		t.Errorf("Expected white to move, got %q", resp.Turn)
	}
	if resp.Status != string(session.StatusWaiting) {
		t.Errorf("Expected waiting status, got %q", resp.Status)
	}
}

func TestStaticClient(t *testing.T) {
	// The file server resolves ./static/ against the working directory,
	// which for tests is this package. Run from the repository root,
	// where static/index.html lives.
	t.Chdir("..")
	server, _ := setupTestServer()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}
	if !strings.Contains(w.Body.String(), "Chess Arena") {
		t.Error("Expected the browser client page")
	}
}

func TestHealth(t *testing.T) {
	server, registry := setupTestServer()
	registry.Create()

	w := httptest.NewRecorder()
	req := httptest.NewRequest("GET", "/health", nil)
	server.ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("Expected status %d, got %d", http.StatusOK, w.Code)
	}

	var resp struct {
		Status   string `json:"status"`
		Sessions int    `json:"sessions"`
		Clients  int    `json:"clients"`
	}
	parseResponse(t, w, &resp)
	if resp.Status != "healthy" {
		t.Errorf("Expected healthy, got %q", resp.Status)
	}
	if resp.Sessions != 1 {
		t.Errorf("Expected 1 session, got %d", resp.Sessions)
	}
}
