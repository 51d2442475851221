// internal/server/router.go
package server

import (
	"encoding/json"

	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/sirupsen/logrus"
)

// Router translates inbound frames into room operations. The target room is
// always taken from the connection's binding; only join-room names a room.
type Router struct {
	rooms *game.Registry
	gw    *Gateway
	log   logrus.FieldLogger
}

func NewRouter(rooms *game.Registry, gw *Gateway, log logrus.FieldLogger) *Router {
	return &Router{rooms: rooms, gw: gw, log: log.WithField("component", "router")}
}

// Dispatch handles one inbound frame. Malformed, unknown and unbound
// actions are dropped.
func (rt *Router) Dispatch(c *Connection, data []byte) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		rt.log.WithError(err).WithField("conn", c.ID).Debug("malformed frame dropped")
		return
	}
	entry := rt.log.WithFields(logrus.Fields{"conn": c.ID, "action": env.Type})

	switch env.Type {
	case ActionCreateRoom:
		var req createRoomRequest
		if !decodePayload(env.Payload, &req) {
			entry.Debug("bad payload dropped")
			return
		}
		rt.createRoom(c, env.ID, req)

	case ActionJoinRoom:
		var req joinRoomRequest
		if !decodePayload(env.Payload, &req) {
			entry.Debug("bad payload dropped")
			return
		}
		rt.joinRoom(c, env.ID, req)

	case ActionPlayerReady:
		if b := rt.boundOrDrop(c, entry); b != nil {
			b.room.MarkReady(c.ID)
		}

	case ActionFlipCard:
		var req flipCardRequest
		if !decodePayload(env.Payload, &req) || req.CardID == nil {
			entry.Debug("bad payload dropped")
			return
		}
		if b := rt.boundOrDrop(c, entry); b != nil {
			b.room.FlipCard(c.ID, *req.CardID)
		}

	case ActionRestartGame:
		if b := rt.boundOrDrop(c, entry); b != nil {
			b.room.Restart(c.ID)
		}

	case ActionLeaveRoom:
		rt.leave(c, c.current())

	default:
		entry.Debug("unknown action dropped")
	}
}

// Disconnect releases whatever seat c holds.
func (rt *Router) Disconnect(c *Connection) {
	rt.leave(c, c.current())
}

func (rt *Router) createRoom(c *Connection, ackID string, req createRoomRequest) {
	rt.leave(c, c.current())

	name := c.displayName(req.DisplayName)
	room := rt.rooms.Create(c.ID, c.seatIdentity(name))
	rt.gw.Subscribe(room.ID, c)
	c.bind(&binding{roomID: room.ID, room: room, name: name})

	st := room.Snapshot()
	c.sendFrame(Frame{Type: FrameAck, ID: ackID, Payload: roomAck{Success: true, RoomID: room.ID, GameState: &st}})
}

func (rt *Router) joinRoom(c *Connection, ackID string, req joinRoomRequest) {
	room, err := rt.rooms.Get(req.RoomID)
	if err != nil {
		rt.joinFailed(c, ackID, req.RoomID, err)
		return
	}

	prev := c.current()
	if prev != nil && prev.room == room {
		st := room.Snapshot()
		c.sendFrame(Frame{Type: FrameAck, ID: ackID, Payload: roomAck{Success: true, RoomID: room.ID, GameState: &st}})
		return
	}

	// Subscribe first so the join broadcast reaches the newcomer too.
	name := c.displayName(req.DisplayName)
	rt.gw.Subscribe(room.ID, c)
	st, err := room.Join(c.ID, c.seatIdentity(name))
	if err != nil {
		rt.gw.Unsubscribe(room.ID, c.ID)
		rt.joinFailed(c, ackID, room.ID, err)
		return
	}

	rt.leave(c, prev)
	c.bind(&binding{roomID: room.ID, room: room, name: name})
	c.sendFrame(Frame{Type: FrameAck, ID: ackID, Payload: roomAck{Success: true, RoomID: room.ID, GameState: &st}})
}

func (rt *Router) joinFailed(c *Connection, ackID, roomID string, err error) {
	rt.log.WithFields(logrus.Fields{"conn": c.ID, "room": roomID}).WithError(err).Info("join refused")
	c.sendFrame(Frame{Type: FrameAck, ID: ackID, Payload: roomAck{
		Success: false,
		Code:    game.ErrorCode(err),
		Error:   err.Error(),
	}})
}

// leave gives up the seat behind b, if b is still the connection's binding.
func (rt *Router) leave(c *Connection, b *binding) {
	if b == nil || !c.unbindIf(b) {
		return
	}
	rt.gw.Unsubscribe(b.roomID, c.ID)
	b.room.Leave(c.ID)
}

func (rt *Router) boundOrDrop(c *Connection, entry logrus.FieldLogger) *binding {
	b := c.current()
	if b == nil {
		entry.Debug("action from unbound connection dropped")
	}
	return b
}

// decodePayload unmarshals an optional payload. An absent payload decodes
// to the zero value.
func decodePayload(raw json.RawMessage, v interface{}) bool {
	if len(raw) == 0 || string(raw) == "null" {
		return true
	}
	return json.Unmarshal(raw, v) == nil
}
