// Package server is the websocket transport in front of the room registry:
// it accepts connections, routes their actions and fans room events back out.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/TimPolDev/memoriesDev/internal/auth"
	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/coder/websocket"
	"github.com/sirupsen/logrus"
)

// DefaultSendBuffer is the per-connection outbound queue length.
const DefaultSendBuffer = 64

// Options configures a Server.
type Options struct {
	// OriginPatterns restricts websocket origins. Empty allows any origin.
	OriginPatterns []string
	SendBuffer     int
	// Verifier, when enabled, requires a valid token on upgrade.
	Verifier *auth.Verifier
	Logger   logrus.FieldLogger
}

// Server serves the websocket endpoint and the small HTTP surface around it.
type Server struct {
	rooms  *game.Registry
	gw     *Gateway
	router *Router
	opts   Options
	log    logrus.FieldLogger

	mu    sync.Mutex
	conns map[*Connection]struct{}
}

func New(rooms *game.Registry, gw *Gateway, opts Options) *Server {
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = DefaultSendBuffer
	}
	if opts.Logger == nil {
		opts.Logger = logrus.StandardLogger()
	}
	return &Server{
		rooms:  rooms,
		gw:     gw,
		router: NewRouter(rooms, gw, opts.Logger),
		opts:   opts,
		log:    opts.Logger,
		conns:  make(map[*Connection]struct{}),
	}
}

// Routes returns the HTTP handler.
func (s *Server) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", s.handleWS)
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /rooms/{code}", s.handleRoomInfo)
	return mux
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok"))
}

func (s *Server) handleRoomInfo(w http.ResponseWriter, r *http.Request) {
	room, err := s.rooms.Get(r.PathValue("code"))
	if err != nil {
		writeJSON(w, http.StatusNotFound, map[string]string{"code": game.ErrorCode(err), "error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, room.Info())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	var who auth.Identity
	if s.opts.Verifier.Enabled() {
		id, err := s.opts.Verifier.Verify(auth.TokenFromRequest(r))
		if err != nil {
			s.log.WithError(err).WithField("remote", r.RemoteAddr).Info("websocket upgrade refused")
			http.Error(w, "unauthorized", http.StatusUnauthorized)
			return
		}
		who = id
	}

	accept := &websocket.AcceptOptions{OriginPatterns: s.opts.OriginPatterns}
	if len(s.opts.OriginPatterns) == 0 {
		accept.InsecureSkipVerify = true
	}
	ws, err := websocket.Accept(w, r, accept)
	if err != nil {
		s.log.WithError(err).WithField("remote", r.RemoteAddr).Warn("websocket accept failed")
		return
	}

	c := newConnection(ws, who, s.opts.SendBuffer, s.log)
	s.track(c)
	c.log.WithField("user", who.UserID).Info("client connected")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go c.writePump(ctx)
	c.sendFrame(Frame{Type: FrameConnected, Payload: connectedPayload{ConnectionID: c.ID.String()}})
	c.readPump(ctx, s.router.Dispatch)

	s.router.Disconnect(c)
	c.close()
	s.untrack(c)
	_ = ws.Close(websocket.StatusNormalClosure, "")
	c.log.Info("client disconnected")
}

func (s *Server) track(c *Connection) {
	s.mu.Lock()
	s.conns[c] = struct{}{}
	s.mu.Unlock()
}

func (s *Server) untrack(c *Connection) {
	s.mu.Lock()
	delete(s.conns, c)
	s.mu.Unlock()
}

// ConnCount returns the number of open websocket connections.
func (s *Server) ConnCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.conns)
}

// CloseAll closes every open socket with StatusGoingAway. Each connection's
// handler then releases its seat as on any disconnect.
func (s *Server) CloseAll(reason string) {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.conns))
	for c := range s.conns {
		conns = append(conns, c)
	}
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, c := range conns {
		wg.Add(1)
		go func(c *Connection) {
			defer wg.Done()
			if err := c.ws.Close(websocket.StatusGoingAway, reason); err != nil {
				c.log.WithError(err).Debug("close on shutdown")
			}
		}(c)
	}
	wg.Wait()
	s.log.WithField("count", len(conns)).Info("closed all connections")
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// StatsTimeout bounds one statistics write.
const StatsTimeout = 5 * time.Second

// ResultRecorder persists finished games.
type ResultRecorder interface {
	RecordResult(ctx context.Context, res game.GameResult) error
}

// StatsHook adapts rec to a room's OnGameEnd. The write runs on its own
// goroutine since OnGameEnd is called with the room lock held; failures are
// logged and never reach the room.
func StatsHook(rec ResultRecorder, log logrus.FieldLogger) game.OnGameEndFunc {
	return func(res game.GameResult) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), StatsTimeout)
			defer cancel()
			if err := rec.RecordResult(ctx, res); err != nil {
				log.WithError(err).WithFields(logrus.Fields{"room": res.RoomID, "game": res.GameID}).Error("failed to record game result")
				return
			}
			log.WithFields(logrus.Fields{"room": res.RoomID, "game": res.GameID}).Debug("game result recorded")
		}()
	}
}
