package server

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/TimPolDev/memoriesDev/internal/auth"
	"github.com/TimPolDev/memoriesDev/internal/game"
	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestServer(t *testing.T, verifier *auth.Verifier) (*Server, *httptest.Server) {
	t.Helper()
	logger, _ := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	gw := NewGateway(logger)
	reg := game.NewRegistry(game.RoomOptions{
		RevealDelay: 10 * time.Millisecond,
		NewDeck:     pairedDeck,
		Logger:      logger,
		Broadcast:   gw.Publish,
	})
	srv := New(reg, gw, Options{Verifier: verifier, Logger: logger})
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return srv, ts
}

func wsURL(ts *httptest.Server) string {
	return "ws" + strings.TrimPrefix(ts.URL, "http") + "/ws"
}

func dial(t *testing.T, ctx context.Context, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })

	f := readFrame(t, ctx, conn)
	require.Equal(t, FrameConnected, f.Type)
	return conn
}

func readFrame(t *testing.T, ctx context.Context, conn *websocket.Conn) testFrame {
	t.Helper()
	_, data, err := conn.Read(ctx)
	require.NoError(t, err)
	var f testFrame
	require.NoError(t, json.Unmarshal(data, &f))
	return f
}

// readUntil reads frames until one of type typ arrives.
func readUntil(t *testing.T, ctx context.Context, conn *websocket.Conn, typ string) testFrame {
	t.Helper()
	for {
		f := readFrame(t, ctx, conn)
		if f.Type == typ {
			return f
		}
	}
}

func writeEnvelope(t *testing.T, ctx context.Context, conn *websocket.Conn, typ, id string, payload interface{}) {
	t.Helper()
	b, err := json.Marshal(map[string]interface{}{"type": typ, "id": id, "payload": payload})
	require.NoError(t, err)
	require.NoError(t, conn.Write(ctx, websocket.MessageText, b))
}

func TestHealth(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", string(body))
}

func TestWebSocketGameSession(t *testing.T) {
	a := assert.New(t)
	srv, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	host := dial(t, ctx, wsURL(ts))
	writeEnvelope(t, ctx, host, ActionCreateRoom, "c1", map[string]string{"displayName": "Alice"})
	f := readUntil(t, ctx, host, FrameAck)
	a.Equal("c1", f.ID)
	var ack roomAck
	require.NoError(t, json.Unmarshal(f.Payload, &ack))
	require.True(t, ack.Success)
	code := ack.RoomID

	resp, err := http.Get(ts.URL + "/rooms/" + strings.ToLower(code))
	require.NoError(t, err)
	var info game.RoomInfo
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&info))
	resp.Body.Close()
	a.Equal(game.RoomInfo{RoomID: code, PlayerCount: 1, MaxPlayers: 2, GameStatus: game.StatusWaiting}, info)

	guest := dial(t, ctx, wsURL(ts))
	writeEnvelope(t, ctx, guest, ActionJoinRoom, "j1", map[string]string{"roomId": code, "displayName": "Bob"})
	f = readUntil(t, ctx, guest, FrameAck)
	require.NoError(t, json.Unmarshal(f.Payload, &ack))
	require.True(t, ack.Success)
	a.Equal(2, srv.ConnCount())

	writeEnvelope(t, ctx, host, ActionPlayerReady, "", nil)
	writeEnvelope(t, ctx, guest, ActionPlayerReady, "", nil)
	var st game.RoomState
	for st.GameStatus != game.StatusPlaying {
		f = readUntil(t, ctx, host, "game-state-update")
		require.NoError(t, json.Unmarshal(f.Payload, &st))
	}
	require.NotNil(t, st.CurrentPlayerID)
	hostID := *st.CurrentPlayerID

	// The paired deck puts matches side by side; the host clears the board.
	for id := 0; id < 16; id++ {
		writeEnvelope(t, ctx, host, ActionFlipCard, "", map[string]int{"cardId": id})
		if id%2 == 1 {
			// Wait for the judgement before the next pair.
			for {
				f = readUntil(t, ctx, host, "game-state-update")
				require.NoError(t, json.Unmarshal(f.Payload, &st))
				if st.Cards[id].IsMatched {
					break
				}
			}
		}
	}
	a.Equal(game.StatusFinished, st.GameStatus)
	require.NotNil(t, st.WinnerID)
	a.Equal(hostID, *st.WinnerID)
	a.Equal(8, st.Players[0].Score)

	guest.Close(websocket.StatusNormalClosure, "")
	f = readUntil(t, ctx, host, "player-left")
	a.JSONEq(`{"playerName":"Bob"}`, string(f.Payload))
}

func TestRoomInfoNotFound(t *testing.T) {
	_, ts := newTestServer(t, nil)

	resp, err := http.Get(ts.URL + "/rooms/ZZZZZZ")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "room_not_found", body["code"])
}

func TestWebSocketAuth(t *testing.T) {
	const secret = "test-secret"
	_, ts := newTestServer(t, auth.NewVerifier(secret))
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, resp, err := websocket.Dial(ctx, wsURL(ts), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	token, err := auth.Issue(secret, auth.Identity{UserID: uuid.New(), Username: "alice"}, time.Minute)
	require.NoError(t, err)
	conn := dial(t, ctx, wsURL(ts)+"?token="+token)

	writeEnvelope(t, ctx, conn, ActionCreateRoom, "c1", map[string]string{"displayName": "mallory"})
	f := readUntil(t, ctx, conn, FrameAck)
	var ack roomAck
	require.NoError(t, json.Unmarshal(f.Payload, &ack))
	require.NotNil(t, ack.GameState)
	assert.Equal(t, "alice", ack.GameState.Players[0].Name)
}

func TestCloseAll(t *testing.T) {
	srv, ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	conn := dial(t, ctx, wsURL(ts))
	writeEnvelope(t, ctx, conn, ActionCreateRoom, "c1", nil)
	readUntil(t, ctx, conn, FrameAck)

	var wg sync.WaitGroup
	wg.Add(1)
	var readErr error
	go func() {
		defer wg.Done()
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				readErr = err
				return
			}
		}
	}()

	srv.CloseAll("server shutting down")
	wg.Wait()
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(readErr))
	assert.Eventually(t, func() bool { return srv.ConnCount() == 0 }, time.Second, 10*time.Millisecond)
	assert.Eventually(t, func() bool { return srv.rooms.Len() == 0 }, time.Second, 10*time.Millisecond)
}

func TestStatsHook(t *testing.T) {
	logger, hook := test.NewNullLogger()
	rec := &fakeRecorder{done: make(chan game.GameResult, 1)}
	fn := StatsHook(rec, logger)

	res := game.GameResult{GameID: uuid.New(), RoomID: "ROOM01"}
	fn(res)
	select {
	case got := <-rec.done:
		assert.Equal(t, res, got)
	case <-time.After(time.Second):
		t.Fatal("recorder not called")
	}

	failing := &fakeRecorder{err: io.ErrUnexpectedEOF, done: make(chan game.GameResult, 1)}
	StatsHook(failing, logger)(res)
	<-failing.done
	assert.Eventually(t, func() bool {
		e := hook.LastEntry()
		return e != nil && e.Level == logrus.ErrorLevel
	}, time.Second, 10*time.Millisecond)
}

type fakeRecorder struct {
	err  error
	done chan game.GameResult
}

func (r *fakeRecorder) RecordResult(_ context.Context, res game.GameResult) error {
	r.done <- res
	return r.err
}
