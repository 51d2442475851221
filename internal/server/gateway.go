// internal/server/gateway.go
package server

import (
	"encoding/json"
	"sync"

	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Sink receives serialized frames. Enqueue must not block.
type Sink interface {
	SinkID() uuid.UUID
	Enqueue(frame []byte) bool
}

// Gateway fans room events out to the connections subscribed to each room.
type Gateway struct {
	mu    sync.RWMutex
	rooms map[string]map[uuid.UUID]Sink
	log   logrus.FieldLogger
}

func NewGateway(log logrus.FieldLogger) *Gateway {
	return &Gateway{
		rooms: make(map[string]map[uuid.UUID]Sink),
		log:   log.WithField("component", "gateway"),
	}
}

// Subscribe adds s to roomID's audience.
func (gw *Gateway) Subscribe(roomID string, s Sink) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	members := gw.rooms[roomID]
	if members == nil {
		members = make(map[uuid.UUID]Sink)
		gw.rooms[roomID] = members
	}
	members[s.SinkID()] = s
}

// Unsubscribe removes a sink. Empty rooms are forgotten.
func (gw *Gateway) Unsubscribe(roomID string, id uuid.UUID) {
	gw.mu.Lock()
	defer gw.mu.Unlock()
	members := gw.rooms[roomID]
	if members == nil {
		return
	}
	delete(members, id)
	if len(members) == 0 {
		delete(gw.rooms, roomID)
	}
}

// Members returns how many sinks are subscribed to roomID.
func (gw *Gateway) Members(roomID string) int {
	gw.mu.RLock()
	defer gw.mu.RUnlock()
	return len(gw.rooms[roomID])
}

// Publish is the Registry's broadcast hook.
func (gw *Gateway) Publish(roomID string, ev game.GameEvent) {
	if ev.Type == game.EventStateUpdate && ev.State != nil {
		gw.BroadcastState(roomID, *ev.State)
		return
	}
	gw.Notify(roomID, ev.Type, ev.Payload)
}

// BroadcastState sends a full snapshot to the room.
func (gw *Gateway) BroadcastState(roomID string, st game.RoomState) {
	gw.send(roomID, Frame{Type: string(game.EventStateUpdate), Payload: st})
}

// Notify sends a named event to the room.
func (gw *Gateway) Notify(roomID string, event game.GameEventType, payload interface{}) {
	gw.send(roomID, Frame{Type: string(event), Payload: payload})
}

// send marshals once and enqueues to every member without blocking.
func (gw *Gateway) send(roomID string, f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		gw.log.WithError(err).WithFields(logrus.Fields{"room": roomID, "type": f.Type}).Error("failed to marshal frame")
		return
	}

	gw.mu.RLock()
	defer gw.mu.RUnlock()
	for id, s := range gw.rooms[roomID] {
		if !s.Enqueue(b) {
			gw.log.WithFields(logrus.Fields{"room": roomID, "conn": id, "type": f.Type}).Warn("send buffer full, frame dropped")
		}
	}
}
