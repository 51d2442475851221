package game

import "github.com/google/uuid"

// Identity is who is taking a seat. UserID comes from the auth provider and
// is uuid.Nil for anonymous players.
type Identity struct {
	UserID uuid.UUID
	Name   string
}

// Seat is one player's slot in a room. It is keyed by the transport
// connection, so a connection holds at most one seat.
type Seat struct {
	ConnID  uuid.UUID
	UserID  uuid.UUID
	Name    string
	Score   int
	IsReady bool
}
