// Package rules adapts the external chess rules library behind a small
// engine interface. The server never implements chess semantics itself:
// move legality, resulting positions, and terminal outcomes (checkmate,
// stalemate, draws) all come from the library. Positions are opaque
// handles owned by their session and mutated only through Apply.
package rules
