// Package router dispatches connection lifecycle and inbound messages
// to sessions.
//
// The Router is the only component that touches both the registry and
// individual sessions. It keeps a binding index (connection id →
// session id + role) so inbound events route in O(1) instead of
// scanning every session, and it guarantees a connection is bound to at
// most one session at a time.
//
// Error philosophy: every failure is translated into a targeted event
// back to the originating connection (invalidMove or error) and never
// broadcast; no inbound message can crash or halt the registry.
package router
