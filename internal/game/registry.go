// internal/game/registry.go
package game

import (
	"math/rand/v2"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/TimPolDev/memoriesDev/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// CodeLength is the length of a room code.
	CodeLength   = 6
	codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
)

// RoomOptions configures every room a Registry creates.
type RoomOptions struct {
	RevealDelay time.Duration        // Defaults to DefaultRevealDelay.
	Scheduler   Scheduler            // Defaults to TimerScheduler.
	NewDeck     func() []engine.Card // Defaults to a shuffled 16-card deck.
	Logger      logrus.FieldLogger   // Defaults to the logrus standard logger.
	ActionLog   ActionLogger         // Optional.

	// Broadcast receives every event of every room, with that room's lock held.
	Broadcast func(roomID string, ev GameEvent)
	OnGameEnd OnGameEndFunc

	// CodeFunc generates room codes. Defaults to NewCode.
	CodeFunc func() string
}

func (o RoomOptions) withDefaults() RoomOptions {
	if o.RevealDelay <= 0 {
		o.RevealDelay = DefaultRevealDelay
	}
	if o.Scheduler == nil {
		o.Scheduler = TimerScheduler
	}
	if o.NewDeck == nil {
		o.NewDeck = func() []engine.Card { return engine.BuildDeck(engine.PairCount) }
	}
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.CodeFunc == nil {
		o.CodeFunc = NewCode
	}
	return o
}

// NewCode returns a random room code of CodeLength upper-case letters and digits.
func NewCode() string {
	b := make([]byte, CodeLength)
	for i := range b {
		b[i] = codeAlphabet[rand.IntN(len(codeAlphabet))]
	}
	return string(b)
}

// NormalizeCode upper-cases and trims a user-supplied room code.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// Registry maps live room codes to rooms. It is safe for concurrent use.
// The registry lock is never held while a room lock is acquired.
type Registry struct {
	mu    sync.RWMutex
	rooms map[string]*Room
	opts  RoomOptions
	log   logrus.FieldLogger
}

// NewRegistry creates an empty registry whose rooms use opts.
func NewRegistry(opts RoomOptions) *Registry {
	opts = opts.withDefaults()
	return &Registry{
		rooms: make(map[string]*Room),
		opts:  opts,
		log:   opts.Logger,
	}
}

// Create opens a room with the host in the first seat. The room code is
// unique among live rooms.
func (r *Registry) Create(hostConn uuid.UUID, host Identity) *Room {
	room := newRoom("", r.opts)
	if r.opts.Broadcast != nil {
		broadcast := r.opts.Broadcast
		room.BroadcastFn = func(ev GameEvent) { broadcast(room.ID, ev) }
	}
	room.OnEmpty = func(id string) { r.remove(id, room) }

	r.mu.Lock()
	code := r.opts.CodeFunc()
	for attempts := 1; r.rooms[code] != nil; attempts++ {
		r.log.WithFields(logrus.Fields{"code": code, "attempt": attempts}).Warn("room code collision, regenerating")
		code = r.opts.CodeFunc()
	}
	// The room is not reachable until it is in the map, so no room lock is needed.
	room.setID(code)
	room.addSeatUnsafe(hostConn, host)
	r.rooms[code] = room
	r.mu.Unlock()

	room.log.WithFields(logrus.Fields{"conn": hostConn, "host": host.Name}).Info("room created")
	return room
}

// Get returns the live room for code.
func (r *Registry) Get(code string) (*Room, error) {
	r.mu.RLock()
	room, ok := r.rooms[NormalizeCode(code)]
	r.mu.RUnlock()
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room, nil
}

// Delete removes a room regardless of its seats.
func (r *Registry) Delete(code string) {
	r.mu.Lock()
	delete(r.rooms, NormalizeCode(code))
	r.mu.Unlock()
}

// remove deletes code only while it still maps to room.
func (r *Registry) remove(code string, room *Room) {
	r.mu.Lock()
	if cur, ok := r.rooms[code]; ok && cur == room {
		delete(r.rooms, code)
		r.log.WithField("room", code).Info("room removed from registry")
	}
	r.mu.Unlock()
}

// Len returns the number of live rooms.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.rooms)
}

// Codes returns the live room codes in sorted order.
func (r *Registry) Codes() []string {
	r.mu.RLock()
	codes := make([]string, 0, len(r.rooms))
	for c := range r.rooms {
		codes = append(codes, c)
	}
	r.mu.RUnlock()
	sort.Strings(codes)
	return codes
}
