// internal/game/result.go
package game

import (
	"github.com/TimPolDev/memoriesDev/engine"
	"github.com/google/uuid"
)

// SeatResult is one seat's outcome in a finished game. Won and Lost are
// both false on a tie. Score is the number of pairs the seat found.
type SeatResult struct {
	ConnID uuid.UUID
	UserID uuid.UUID
	Name   string
	Score  int
	Won    bool
	Lost   bool
}

// GameResult describes a finished game for the statistics store.
type GameResult struct {
	GameID   uuid.UUID
	RoomID   string
	Round    uint64
	Tie      bool
	WinnerID uuid.UUID // connection id of the winning seat; uuid.Nil on a tie.
	Seats    []SeatResult
}

// OnGameEndFunc is called once per finished game, with the room lock held.
// It must not block or call back into the room.
type OnGameEndFunc func(result GameResult)

// decideWinnerUnsafe sets the winner from the seat scores and builds the result.
// Assumes lock is held by caller.
func (g *Room) decideWinnerUnsafe() GameResult {
	scores := make([]int, len(g.seats))
	for i, s := range g.seats {
		scores[i] = s.Score
	}
	winIdx := engine.Winner(scores)

	g.winner = uuid.Nil
	if winIdx >= 0 {
		g.winner = g.seats[winIdx].ConnID
	}

	res := GameResult{
		GameID:   uuid.New(),
		RoomID:   g.ID,
		Round:    g.round,
		Tie:      winIdx < 0,
		WinnerID: g.winner,
		Seats:    make([]SeatResult, len(g.seats)),
	}
	for i, s := range g.seats {
		won := i == winIdx
		res.Seats[i] = SeatResult{
			ConnID: s.ConnID,
			UserID: s.UserID,
			Name:   s.Name,
			Score:  s.Score,
			Won:    won,
			Lost:   !won && !res.Tie,
		}
	}
	return res
}
