package game

// GameEventType identifies an outbound room event.
type GameEventType string

const (
	EventStateUpdate GameEventType = "game-state-update" // Full room snapshot.
	EventPlayerLeft  GameEventType = "player-left"       // Departure notice; Payload["playerName"].
)

// GameEvent is what a Room hands to its BroadcastFn. State is set for
// EventStateUpdate, Payload for narrower notices.
type GameEvent struct {
	Type    GameEventType
	State   *RoomState
	Payload map[string]interface{}
}
