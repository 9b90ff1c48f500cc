// Package mcp provides the Model Context Protocol surface of the chess
// server.
//
// The mcp package implements:
//   - An MCP server reading the session registry directly
//   - Read-only tools for listing and inspecting live sessions
//   - A text board renderer for agents without a chess UI
//   - Explicit session creation for shareable games
//
// Tools:
//   - list_sessions - All active sessions with seating and status
//   - get_session - Full snapshot of one session
//   - get_board - Board diagram plus FEN for one session
//   - create_session - Start a fresh session outside matchmaking
//
// Moves and seat assignment are deliberately not exposed here: play
// happens over the WebSocket protocol, so an MCP agent observes games
// and shares session ids rather than acting as a player.
//
// The server can run on stdio (see the mcp-stdio command) or be mounted
// on an HTTP endpoint via HandleMessage.
package mcp
