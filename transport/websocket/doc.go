// Package websocket provides the WebSocket transport for the chess
// server.
//
// The websocket package implements:
//   - Real-time bidirectional communication
//   - Connection identity (one uuid per connection)
//   - Per-session channels for targeted broadcasting
//   - Connection lifecycle management
//   - Inbound message routing to the game router
//
// Architecture:
//
// The package uses a hub-and-spoke model where a central Hub tracks all
// connections. Each client connection is handled by dedicated read and
// write goroutines. The hub implements the session package's
// Broadcaster contract: JoinChannel, Send, and Broadcast only enqueue
// onto buffered per-client queues and never touch the network, so the
// game layer can call them from inside its critical sections.
//
// Message Protocol:
//
// Frames are JSON-encoded in both directions:
//   - Incoming: {"event": "move", "data": {"move": "e2e4"}}
//     and {"event": "joinSession", "data": {"sessionId": "ABC123"}}
//   - Outgoing: {"event": <name>, "data": <payload>} using the event
//     vocabulary defined in the session package
//
// Connection Lifecycle:
//
//  1. Client connects to /ws (optionally ?session=ID for an explicit join)
//  2. Hub assigns a connection id and starts the pumps
//  3. The router matches the connection into a session
//  4. Client sends moves, receives session events
//  5. Disconnection (or a full send queue) triggers cleanup through the
//     router, which may evict the emptied session
package websocket
