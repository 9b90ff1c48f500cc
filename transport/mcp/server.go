package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/chessarena/chessarena/game/session"
	"github.com/chessarena/chessarena/validate"
)

// Server exposes session state to MCP clients. It reads the registry
// directly; moves and seating stay on the WebSocket protocol so agents
// observe games rather than play in them.
type Server struct {
	registry  *session.Registry
	mcpServer *server.MCPServer
}

// NewServer creates a new MCP server backed by the session registry
func NewServer(registry *session.Registry) *Server {
	s := &Server{
		registry: registry,
	}

	s.initMCPServer()
	return s
}

// initMCPServer initializes the MCP server with all tools
func (s *Server) initMCPServer() {
	s.mcpServer = server.NewMCPServer(
		"Chess Arena",
		"1.0.0",
		server.WithToolCapabilities(true),
		server.WithInstructions(`Chess Arena - MCP Interface

Real-time chess server with automatic matchmaking. Players and
spectators connect over WebSocket; this interface provides read access
to the live sessions.

AVAILABLE TOOLS:
- list_sessions: List all active sessions with seating and status
- get_session: Get one session's full snapshot
- get_board: Render the current board for a session
- create_session: Start a fresh session to share by id

SESSION LIFECYCLE:
Sessions are created on demand, hold up to two players plus any number
of spectators, and are removed once the last connection leaves. Each
session has a 6-character id (A-Z, 0-9).`),
	)

	// Register all tools
	s.registerTools()
}

// registerTools registers all MCP tools
func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.Tool{
		Name:        "list_sessions",
		Description: "List all active chess sessions",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleListSessions)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_session",
		Description: "Get details of a specific session",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID to retrieve (6 characters, A-Z and 0-9)",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleGetSession)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "get_board",
		Description: "Render the current board of a session as text, with the position in FEN",
		InputSchema: mcp.ToolInputSchema{
			Type: "object",
			Properties: map[string]interface{}{
				"session_id": map[string]interface{}{
					"type":        "string",
					"description": "Session ID (6 characters, A-Z and 0-9)",
				},
			},
			Required: []string{"session_id"},
		},
	}, s.handleGetBoard)

	s.mcpServer.AddTool(mcp.Tool{
		Name:        "create_session",
		Description: "Create a new chess session outside of matchmaking; share its id for others to join",
		InputSchema: mcp.ToolInputSchema{
			Type:       "object",
			Properties: map[string]interface{}{},
		},
	}, s.handleCreateSession)
}

// GetMCPServer returns the underlying MCP server for serving
func (s *Server) GetMCPServer() *server.MCPServer {
	return s.mcpServer
}

// HandleMessage processes one raw JSON-RPC message, for mounting the
// MCP protocol on an HTTP endpoint.
func (s *Server) HandleMessage(ctx context.Context, message []byte) interface{} {
	return s.mcpServer.HandleMessage(ctx, message)
}

// Tool handlers

func (s *Server) handleListSessions(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sessions := s.registry.List()

	result := fmt.Sprintf("Active Sessions (%d):\n\n", len(sessions))
	for _, sess := range sessions {
		info := sess.Info()
		result += fmt.Sprintf("- %s (status: %s, players: %d, spectators: %d, created: %s)\n",
			info.ID, info.Status, seatedCount(info), info.Spectators,
			info.CreatedAt.Format("15:04:05"))
	}

	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleGetSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	return mcp.NewToolResultText(formatSessionInfo(sess.Info())), nil
}

func (s *Server) handleGetBoard(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	sess, err := s.lookupSession(request)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	info := sess.Info()
	result := fmt.Sprintf("Session %s: %s to move\n\n%s\nFEN: %s",
		info.ID, info.Turn, formatBoard(info.FEN), info.FEN)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) handleCreateSession(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	created := s.registry.Create()
	info := created.Info()

	result := fmt.Sprintf("Created session: %s\nStatus: %s\nJoin over WebSocket with ?session=%s",
		info.ID, info.Status, info.ID)
	return mcp.NewToolResultText(result), nil
}

func (s *Server) lookupSession(request mcp.CallToolRequest) (*session.Session, error) {
	args, _ := request.Params.Arguments.(map[string]interface{})
	sessionID, _ := args["session_id"].(string)

	if err := validate.SessionID(sessionID); err != nil {
		return nil, fmt.Errorf("invalid session id %q", sessionID)
	}
	return s.registry.Get(sessionID)
}

// Formatting helpers

func seatedCount(info session.Info) int {
	n := 0
	if info.WhiteSeated {
		n++
	}
	if info.BlackSeated {
		n++
	}
	return n
}

func formatSessionInfo(info session.Info) string {
	var b strings.Builder

	b.WriteString(fmt.Sprintf("Session: %s\n", info.ID))
	b.WriteString(fmt.Sprintf("Status: %s\n", info.Status))
	b.WriteString(fmt.Sprintf("White seated: %v\n", info.WhiteSeated))
	b.WriteString(fmt.Sprintf("Black seated: %v\n", info.BlackSeated))
	b.WriteString(fmt.Sprintf("Spectators: %d\n", info.Spectators))
	b.WriteString(fmt.Sprintf("Turn: %s\n", info.Turn))
	if info.Outcome != "" {
		b.WriteString(fmt.Sprintf("Outcome: %s\n", info.Outcome))
	}
	b.WriteString(fmt.Sprintf("Created: %s\n", info.CreatedAt.Format("2006-01-02 15:04:05")))
	b.WriteString("\n")
	b.WriteString(formatBoard(info.FEN))
	b.WriteString(fmt.Sprintf("\nFEN: %s", info.FEN))

	return b.String()
}

// formatBoard renders the piece placement field of a FEN string as an
// 8x8 text diagram, rank 8 at the top.
func formatBoard(fen string) string {
	placement := fen
	if i := strings.IndexByte(fen, ' '); i >= 0 {
		placement = fen[:i]
	}

	var b strings.Builder
	b.WriteString("  +-----------------+\n")

	ranks := strings.Split(placement, "/")
	for i, rank := range ranks {
		b.WriteString(fmt.Sprintf("%d | ", 8-i))
		for _, c := range rank {
			if c >= '1' && c <= '8' {
				b.WriteString(strings.Repeat(". ", int(c-'0')))
			} else {
				b.WriteString(string(c) + " ")
			}
		}
		b.WriteString("|\n")
	}

	b.WriteString("  +-----------------+\n")
	b.WriteString("    a b c d e f g h\n")
	return b.String()
}
