// internal/game/state.go
package game

import (
	"github.com/TimPolDev/memoriesDev/engine"
	"github.com/google/uuid"
)

// Status is the room lifecycle state.
type Status string

const (
	StatusWaiting  Status = "waiting"
	StatusPlaying  Status = "playing"
	StatusFinished Status = "finished"
)

// PlayerState is a seat as clients see it.
type PlayerState struct {
	ID      uuid.UUID `json:"id"`
	Name    string    `json:"name"`
	Score   int       `json:"score"`
	IsReady bool      `json:"isReady"`
}

// RoomState is the snapshot broadcast to every connection of a room.
// Face-down cards carry no symbol.
type RoomState struct {
	RoomID          string        `json:"roomId"`
	Cards           []engine.Card `json:"cards"`
	Players         []PlayerState `json:"players"`
	CurrentPlayerID *uuid.UUID    `json:"currentPlayerId"`
	FlippedCards    []int         `json:"flippedCards"`
	GameStatus      Status        `json:"gameStatus"`
	WinnerID        *uuid.UUID    `json:"winnerId"`
}

// RoomInfo is the lobby summary of a room.
type RoomInfo struct {
	RoomID      string `json:"roomId"`
	PlayerCount int    `json:"playerCount"`
	MaxPlayers  int    `json:"maxPlayers"`
	GameStatus  Status `json:"gameStatus"`
}

// snapshotUnsafe builds the client view of the room.
// Assumes lock is held by caller.
func (g *Room) snapshotUnsafe() RoomState {
	cards := g.board.CardsCopy()
	for i := range cards {
		if cards[i].Hidden() {
			cards[i].Symbol = ""
		}
	}

	players := make([]PlayerState, len(g.seats))
	for i, s := range g.seats {
		players[i] = PlayerState{ID: s.ConnID, Name: s.Name, Score: s.Score, IsReady: s.IsReady}
	}

	st := RoomState{
		RoomID:       g.ID,
		Cards:        cards,
		Players:      players,
		FlippedCards: g.board.PendingCopy(),
		GameStatus:   g.status,
	}
	if cur := g.currentTurnUnsafe(); cur != uuid.Nil {
		st.CurrentPlayerID = &cur
	}
	if g.winner != uuid.Nil {
		w := g.winner
		st.WinnerID = &w
	}
	return st
}

// Snapshot returns the current client view of the room.
func (g *Room) Snapshot() RoomState {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.snapshotUnsafe()
}

// Info returns the lobby summary of the room.
func (g *Room) Info() RoomInfo {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return RoomInfo{
		RoomID:      g.ID,
		PlayerCount: len(g.seats),
		MaxPlayers:  engine.MaxSeats,
		GameStatus:  g.status,
	}
}
