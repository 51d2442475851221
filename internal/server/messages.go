package server

import (
	"encoding/json"

	"github.com/TimPolDev/memoriesDev/internal/game"
)

// Inbound action types.
const (
	ActionCreateRoom  = "create-room"
	ActionJoinRoom    = "join-room"
	ActionPlayerReady = "player-ready"
	ActionFlipCard    = "flip-card"
	ActionRestartGame = "restart-game"
	ActionLeaveRoom   = "leave-room"
)

// Outbound frame types besides the room events.
const (
	FrameAck       = "ack"
	FrameConnected = "connected"
)

// Envelope is an inbound frame. ID is echoed on the ack of actions that
// expect a reply.
type Envelope struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Frame is an outbound frame.
type Frame struct {
	Type    string      `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload interface{} `json:"payload,omitempty"`
}

type createRoomRequest struct {
	DisplayName string `json:"displayName"`
}

type joinRoomRequest struct {
	RoomID      string `json:"roomId"`
	DisplayName string `json:"displayName"`
}

type flipCardRequest struct {
	CardID *int `json:"cardId"`
}

// roomAck answers create-room and join-room.
type roomAck struct {
	Success   bool            `json:"success"`
	RoomID    string          `json:"roomId,omitempty"`
	GameState *game.RoomState `json:"gameState,omitempty"`
	Code      string          `json:"code,omitempty"`
	Error     string          `json:"error,omitempty"`
}

type connectedPayload struct {
	ConnectionID string `json:"connectionId"`
}
