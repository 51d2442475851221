package server

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/TimPolDev/memoriesDev/internal/auth"
	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	// MaxNameLength caps display names, in runes.
	MaxNameLength = 20
	// DefaultName replaces a blank display name.
	DefaultName = "Player"

	readLimit    = 8 << 10
	writeTimeout = 5 * time.Second
	pingInterval = 25 * time.Second
)

// binding is the room a connection currently sits in.
type binding struct {
	roomID string
	room   *game.Room
	name   string
}

// Connection is one websocket client. Frames are written by a single
// goroutine, in the order they were enqueued.
type Connection struct {
	ID       uuid.UUID
	ws       *websocket.Conn
	identity auth.Identity

	send      chan []byte
	done      chan struct{}
	closeOnce sync.Once

	mu    sync.Mutex
	bound *binding

	log logrus.FieldLogger
}

func newConnection(ws *websocket.Conn, who auth.Identity, buffer int, log logrus.FieldLogger) *Connection {
	id := uuid.New()
	return &Connection{
		ID:       id,
		ws:       ws,
		identity: who,
		send:     make(chan []byte, buffer),
		done:     make(chan struct{}),
		log:      log.WithField("conn", id),
	}
}

// SinkID implements Sink.
func (c *Connection) SinkID() uuid.UUID { return c.ID }

// Enqueue implements Sink. It never blocks; a full buffer or a closed
// connection drops the frame.
func (c *Connection) Enqueue(frame []byte) bool {
	select {
	case <-c.done:
		return false
	default:
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// sendFrame marshals and enqueues a frame for this connection only.
func (c *Connection) sendFrame(f Frame) {
	b, err := json.Marshal(f)
	if err != nil {
		c.log.WithError(err).WithField("type", f.Type).Error("failed to marshal frame")
		return
	}
	if !c.Enqueue(b) {
		c.log.WithField("type", f.Type).Warn("send buffer full, frame dropped")
	}
}

// close stops the writer. The send channel is never closed, so Enqueue stays
// safe to call from broadcasts racing the disconnect.
func (c *Connection) close() {
	c.closeOnce.Do(func() { close(c.done) })
}

func (c *Connection) current() *binding {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.bound
}

func (c *Connection) bind(b *binding) {
	c.mu.Lock()
	c.bound = b
	c.mu.Unlock()
}

// unbindIf clears the binding only if it is still b.
func (c *Connection) unbindIf(b *binding) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.bound != b {
		return false
	}
	c.bound = nil
	return true
}

// displayName picks the seat name: the verified username if there is one,
// otherwise the requested name, trimmed and capped.
func (c *Connection) displayName(requested string) string {
	name := requested
	if c.identity.Username != "" {
		name = c.identity.Username
	}
	return sanitizeName(name)
}

func sanitizeName(name string) string {
	name = strings.TrimSpace(name)
	if utf8.RuneCountInString(name) > MaxNameLength {
		name = strings.TrimSpace(string([]rune(name)[:MaxNameLength]))
	}
	if name == "" {
		return DefaultName
	}
	return name
}

// seatIdentity is the identity this connection presents to a room.
func (c *Connection) seatIdentity(name string) game.Identity {
	return game.Identity{UserID: c.identity.UserID, Name: name}
}

// writePump drains the send buffer to the socket and keeps it alive with
// pings. It returns when the connection is closed or a write fails.
func (c *Connection) writePump(ctx context.Context) {
	ping := time.NewTicker(pingInterval)
	defer ping.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.done:
			return
		case frame := <-c.send:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Write(wctx, websocket.MessageText, frame)
			cancel()
			if err != nil {
				c.log.WithError(err).Debug("write failed, closing")
				c.ws.CloseNow()
				return
			}
		case <-ping.C:
			pctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := c.ws.Ping(pctx)
			cancel()
			if err != nil {
				c.log.WithError(err).Debug("ping failed, closing")
				c.ws.CloseNow()
				return
			}
		}
	}
}

// readPump hands every text frame to dispatch until the socket fails.
func (c *Connection) readPump(ctx context.Context, dispatch func(*Connection, []byte)) {
	c.ws.SetReadLimit(readLimit)
	for {
		typ, data, err := c.ws.Read(ctx)
		if err != nil {
			if status := websocket.CloseStatus(err); status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				c.log.Debug("client closed")
			} else {
				c.log.WithError(err).Debug("read failed")
			}
			return
		}
		if typ != websocket.MessageText {
			c.log.Debug("binary frame dropped")
			continue
		}
		dispatch(c, data)
	}
}
