// Package game holds the authoritative state of every live memory-match room.
//
// A Room is the single writer of its board, seats and turn pointer: every
// mutation goes through a Room method that takes Room.Mu, and every state
// change is broadcast before the lock is released, so observers see
// transitions in the order they were applied. Rooms are created and looked
// up through a Registry.
package game

import (
	"sync"
	"time"

	"github.com/TimPolDev/memoriesDev/engine"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Room is one game instance, keyed by a short public code.
type Room struct {
	ID string
	Mu sync.Mutex

	board     *engine.Board
	seats     []*Seat     // join order
	turnOrder []uuid.UUID // connection ids in turn order
	turn      int         // index into turnOrder, -1 when nobody is to move
	status    Status
	winner    uuid.UUID

	round       uint64 // bumped whenever the board or seating is reset
	closed      bool   // set when the last seat leaves
	actionIndex int

	newDeck     func() []engine.Card
	revealDelay time.Duration
	scheduler   Scheduler
	actions     ActionLogger
	baseLog     logrus.FieldLogger
	log         logrus.FieldLogger

	// Communication callbacks. All are invoked with the lock held.
	BroadcastFn func(ev GameEvent)
	OnGameEnd   OnGameEndFunc
	OnEmpty     func(roomID string)
}

// newRoom builds an empty room in the waiting state.
func newRoom(id string, opts RoomOptions) *Room {
	opts = opts.withDefaults()
	g := &Room{
		turn:        -1,
		status:      StatusWaiting,
		newDeck:     opts.NewDeck,
		revealDelay: opts.RevealDelay,
		scheduler:   opts.Scheduler,
		actions:     opts.ActionLog,
		baseLog:     opts.Logger,
		OnGameEnd:   opts.OnGameEnd,
	}
	g.board = engine.NewBoard(g.newDeck())
	g.setID(id)
	return g
}

// setID names the room. Only valid before the room is published.
func (g *Room) setID(id string) {
	g.ID = id
	g.log = g.baseLog.WithField("room", id)
}

// Join seats a new player. It fails with ErrRoomNotFound if the room has
// been torn down, ErrRoomFull if both seats are taken and
// ErrGameAlreadyStarted unless the room is waiting.
func (g *Room) Join(connID uuid.UUID, who Identity) (RoomState, error) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.closed {
		return RoomState{}, ErrRoomNotFound
	}
	if g.seatByConnUnsafe(connID) != nil {
		return g.snapshotUnsafe(), nil
	}
	if len(g.seats) >= engine.MaxSeats {
		return RoomState{}, ErrRoomFull
	}
	if g.status != StatusWaiting {
		return RoomState{}, ErrGameAlreadyStarted
	}

	g.addSeatUnsafe(connID, who)
	g.log.WithFields(logrus.Fields{"conn": connID, "name": who.Name}).Info("player joined")
	g.broadcastStateUnsafe()
	return g.snapshotUnsafe(), nil
}

// addSeatUnsafe appends a seat and its turn slot.
// Assumes lock is held by caller.
func (g *Room) addSeatUnsafe(connID uuid.UUID, who Identity) {
	g.seats = append(g.seats, &Seat{ConnID: connID, UserID: who.UserID, Name: who.Name})
	g.turnOrder = append(g.turnOrder, connID)
	g.logAction(connID, "player_join", map[string]interface{}{"name": who.Name})
}

// MarkReady flags the caller's seat as ready. Once both seats are ready the
// game starts with the first seat in turn order to move.
func (g *Room) MarkReady(connID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	seat := g.seatByConnUnsafe(connID)
	if seat == nil {
		g.log.WithField("conn", connID).Debug("ready from unseated connection dropped")
		return
	}
	seat.IsReady = true
	g.logAction(connID, "player_ready", nil)

	if g.status == StatusWaiting && len(g.seats) == engine.MaxSeats && g.allReadyUnsafe() {
		g.status = StatusPlaying
		g.turn = 0
		g.logAction(uuid.Nil, "game_start", nil)
		g.log.WithField("first", g.turnOrder[0]).Info("game started")
	}
	g.broadcastStateUnsafe()
}

// FlipCard reveals a card for the player to move. Any action that is not
// currently legal is dropped without a reply or broadcast. The second flip
// of a pair schedules its resolution after the reveal delay.
func (g *Room) FlipCard(connID uuid.UUID, cardID int) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	entry := g.log.WithFields(logrus.Fields{"conn": connID, "card": cardID})
	if g.status != StatusPlaying || g.currentTurnUnsafe() != connID {
		entry.Debug("flip out of turn dropped")
		return
	}
	ok, complete := g.board.Flip(cardID)
	if !ok {
		entry.Debug("illegal flip dropped")
		return
	}
	g.logAction(connID, "card_flip", map[string]interface{}{"card": cardID})
	g.broadcastStateUnsafe()

	if complete {
		pair := g.board.PendingCopy()
		g.scheduleResolutionUnsafe(pair[0], pair[1])
	}
}

// Restart deals a fresh board and returns the room to the waiting state,
// keeping its seats. Any seated player may restart.
func (g *Room) Restart(connID uuid.UUID) {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	if g.seatByConnUnsafe(connID) == nil {
		g.log.WithField("conn", connID).Debug("restart from unseated connection dropped")
		return
	}
	g.resetRoundUnsafe()
	g.logAction(connID, "game_restart", nil)
	g.log.WithField("conn", connID).Info("game restarted")
	g.broadcastStateUnsafe()
}

// Leave removes the caller's seat. When the last seat goes the room is
// closed and OnEmpty fires; otherwise the room drops back to a fresh lobby
// and the remaining player is told who left. It reports whether the room
// is now empty.
func (g *Room) Leave(connID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()

	idx := -1
	for i, s := range g.seats {
		if s.ConnID == connID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return len(g.seats) == 0
	}

	seat := g.seats[idx]
	g.seats = append(g.seats[:idx], g.seats[idx+1:]...)
	for i, id := range g.turnOrder {
		if id == connID {
			g.turnOrder = append(g.turnOrder[:i], g.turnOrder[i+1:]...)
			break
		}
	}
	g.logAction(connID, "player_leave", map[string]interface{}{"name": seat.Name})

	if len(g.seats) == 0 {
		g.round++
		g.closed = true
		g.board.Abandon()
		g.log.Info("room empty, closing")
		if g.OnEmpty != nil {
			g.OnEmpty(g.ID)
		}
		return true
	}

	g.resetRoundUnsafe()
	g.log.WithFields(logrus.Fields{"conn": connID, "name": seat.Name}).Info("player left")
	g.fireEvent(GameEvent{
		Type:    EventPlayerLeft,
		Payload: map[string]interface{}{"playerName": seat.Name},
	})
	g.broadcastStateUnsafe()
	return false
}

// resetRoundUnsafe deals a new board and clears scores, readiness, turn and
// winner. Bumping the round retires any scheduled resolution.
// Assumes lock is held by caller.
func (g *Room) resetRoundUnsafe() {
	g.round++
	g.board = engine.NewBoard(g.newDeck())
	g.status = StatusWaiting
	g.winner = uuid.Nil
	g.turn = -1
	for _, s := range g.seats {
		s.Score = 0
		s.IsReady = false
	}
}

// advanceTurnUnsafe passes the turn to the next seat in turn order.
// Assumes lock is held by caller.
func (g *Room) advanceTurnUnsafe() {
	if len(g.turnOrder) == 0 {
		g.turn = -1
		return
	}
	g.turn = (g.turn + 1) % len(g.turnOrder)
	g.log.WithField("turn", g.turnOrder[g.turn]).Debug("turn passed")
}

// currentTurnUnsafe returns the connection id of the player to move, or
// uuid.Nil when nobody is.
// Assumes lock is held by caller.
func (g *Room) currentTurnUnsafe() uuid.UUID {
	if g.turn < 0 || g.turn >= len(g.turnOrder) {
		return uuid.Nil
	}
	return g.turnOrder[g.turn]
}

// seatByConnUnsafe finds the seat held by a connection.
// Assumes lock is held by caller.
func (g *Room) seatByConnUnsafe(connID uuid.UUID) *Seat {
	if connID == uuid.Nil {
		return nil
	}
	for _, s := range g.seats {
		if s.ConnID == connID {
			return s
		}
	}
	return nil
}

// allReadyUnsafe reports whether every seat is ready.
// Assumes lock is held by caller.
func (g *Room) allReadyUnsafe() bool {
	for _, s := range g.seats {
		if !s.IsReady {
			return false
		}
	}
	return len(g.seats) > 0
}

// broadcastStateUnsafe sends the current snapshot to the room.
// Assumes lock is held by caller.
func (g *Room) broadcastStateUnsafe() {
	st := g.snapshotUnsafe()
	g.fireEvent(GameEvent{Type: EventStateUpdate, State: &st})
}

// fireEvent hands an event to BroadcastFn.
// Assumes lock is held by caller.
func (g *Room) fireEvent(ev GameEvent) {
	if g.BroadcastFn == nil {
		g.log.WithField("event", ev.Type).Warn("BroadcastFn is nil, event dropped")
		return
	}
	g.BroadcastFn(ev)
}

// Status returns the room's lifecycle state.
func (g *Room) Status() Status {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.status
}

// HasSeat reports whether connID holds a seat in the room.
func (g *Room) HasSeat(connID uuid.UUID) bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.seatByConnUnsafe(connID) != nil
}

// Seats returns a copy of the seats in join order.
func (g *Room) Seats() []Seat {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	out := make([]Seat, len(g.seats))
	for i, s := range g.seats {
		out[i] = *s
	}
	return out
}

// Closed reports whether the room has been torn down.
func (g *Room) Closed() bool {
	g.Mu.Lock()
	defer g.Mu.Unlock()
	return g.closed
}
