// internal/game/actionlog.go
package game

import (
	"time"

	"github.com/google/uuid"
)

// ActionRecord is one entry of a room's action history.
type ActionRecord struct {
	RoomID      string                 `json:"roomId"`
	Round       uint64                 `json:"round"`
	ActionIndex int                    `json:"actionIndex"`
	ActorID     uuid.UUID              `json:"actorId"` // uuid.Nil for room-driven events.
	ActionType  string                 `json:"actionType"`
	Payload     map[string]interface{} `json:"payload"`
	Timestamp   int64                  `json:"timestamp"`
}

// ActionLogger receives action records. Record is called with the room lock
// held and must not block.
type ActionLogger interface {
	Record(rec ActionRecord)
}

// logAction appends an entry to the room's action history.
// Assumes lock is held by caller.
func (g *Room) logAction(actorID uuid.UUID, actionType string, payload map[string]interface{}) {
	g.actionIndex++
	if g.actions == nil {
		return
	}
	if payload == nil {
		payload = make(map[string]interface{})
	}
	g.actions.Record(ActionRecord{
		RoomID:      g.ID,
		Round:       g.round,
		ActionIndex: g.actionIndex,
		ActorID:     actorID,
		ActionType:  actionType,
		Payload:     payload,
		Timestamp:   time.Now().UnixMilli(),
	})
}
