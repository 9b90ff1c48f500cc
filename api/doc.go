// Package api provides the HTTP surface of the chess server.
//
// The api package implements:
//   - RESTful endpoints for session inspection
//   - Explicit session creation for shareable games
//   - WebSocket upgrade handling
//   - Static file serving for the browser client
//
// Endpoints:
//
// Session Management:
//   - POST /api/sessions - Create a session outside matchmaking
//   - GET /api/sessions - List all sessions
//   - GET /api/sessions/{id} - Get one session's snapshot
//   - GET /api/sessions/{id}/board - Position only (fen, turn, status)
//
// Operational:
//   - GET /health - Server health plus session/client counts
//   - GET /ws - WebSocket upgrade; ?session=ID joins a specific game,
//     otherwise the connection is matched into a session
//
// The REST surface is read-only apart from session creation: moves and
// seat assignment happen exclusively over the WebSocket protocol, so
// there is no way to mutate a game from HTTP.
//
// Every other path falls through to a file server rooted at ./static/,
// resolved relative to the server's working directory. The repository
// ships static/index.html, a minimal browser client; run the server
// from the repository root (or place a static/ directory next to the
// binary) for / to serve it.
//
// Request/Response Format:
//
// All endpoints return JSON. Errors use an appropriate HTTP status and
// a JSON body:
//
//	{
//	  "error": "error message"
//	}
package api
