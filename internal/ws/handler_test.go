package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/keyrace/internal/engine"
	"github.com/DoyleJ11/keyrace/internal/hub"
	"github.com/DoyleJ11/keyrace/internal/room"
	"github.com/DoyleJ11/keyrace/pkg/types"
)

func newTestServer(t *testing.T) (*httptest.Server, *hub.Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	h := hub.NewHub(ctx, room.DefaultConfig(), room.Deps{})
	_, err := h.Ensure(ctx, hub.DefaultRoom)
	require.NoError(t, err)

	srv := httptest.NewServer(Handler(h, DefaultOptions()))
	t.Cleanup(srv.Close)
	return srv, h
}

func dial(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/?" + query
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close(websocket.StatusNormalClosure, "") })
	return conn
}

// readUntil reads server messages until match returns true.
func readUntil(t *testing.T, conn *websocket.Conn, match func(types.ServerMessage) bool) types.ServerMessage {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for {
		var msg types.ServerMessage
		require.NoError(t, wsjson.Read(ctx, conn, &msg))
		if match(msg) {
			return msg
		}
	}
}

func write(t *testing.T, conn *websocket.Conn, msg types.ClientMessage) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, wsjson.Write(ctx, conn, msg))
}

func TestHandler_UnknownRoomIs404(t *testing.T) {
	srv, _ := newTestServer(t)

	resp, err := http.Get(srv.URL + "/?room=NOPE")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestHandler_JoinFromQueryAndBroadcast(t *testing.T) {
	srv, _ := newTestServer(t)

	ana := dial(t, srv, "name=ana")
	msg := readUntil(t, ana, func(m types.ServerMessage) bool {
		return m.Type == string(room.KindParticipants) && len(m.Participants) == 1
	})
	assert.Equal(t, "ana", msg.Participants[0].Name)
	assert.Equal(t, string(engine.StatusWaiting), msg.Status)

	bo := dial(t, srv, "room=main")
	write(t, bo, types.ClientMessage{Type: types.ClientJoin, Name: "bo", Cosmetics: map[string]string{"color": "teal"}})

	seen := readUntil(t, ana, func(m types.ServerMessage) bool {
		return m.Type == string(room.KindParticipants) && len(m.Participants) == 2
	})
	assert.Equal(t, "bo", seen.Participants[1].Name)
	assert.Equal(t, "teal", seen.Participants[1].Cosmetics["color"])
}

func TestHandler_ReadyStartsCountdown(t *testing.T) {
	srv, _ := newTestServer(t)

	ana := dial(t, srv, "name=ana")
	readUntil(t, ana, func(m types.ServerMessage) bool { return len(m.Participants) == 1 })

	write(t, ana, types.ClientMessage{Type: types.ClientReady, Ready: true})
	msg := readUntil(t, ana, func(m types.ServerMessage) bool { return m.Type == string(room.KindCountdown) })
	assert.Equal(t, 3, msg.SecondsRemaining)
	assert.Equal(t, string(engine.StatusCountdown), msg.Status)
}

func TestHandler_DuplicateNameIsReportedToRequester(t *testing.T) {
	srv, _ := newTestServer(t)

	first := dial(t, srv, "name=ana")
	readUntil(t, first, func(m types.ServerMessage) bool { return len(m.Participants) == 1 })
	other := dial(t, srv, "name=ana")

	msg := readUntil(t, other, func(m types.ServerMessage) bool { return m.Type == string(room.KindError) })
	assert.Equal(t, engine.ErrNameTaken.Error(), msg.Error)
}

func TestHandler_RejectsUnknownMessageType(t *testing.T) {
	srv, _ := newTestServer(t)

	conn := dial(t, srv, "")
	write(t, conn, types.ClientMessage{Type: "teleport"})

	msg := readUntil(t, conn, func(m types.ServerMessage) bool { return m.Type == string(room.KindError) })
	assert.Equal(t, "unknown type", msg.Error)
}

func TestHandler_DisconnectLeavesRoom(t *testing.T) {
	srv, h := newTestServer(t)

	ana := dial(t, srv, "name=ana")
	readUntil(t, ana, func(m types.ServerMessage) bool { return len(m.Participants) == 1 })
	require.NoError(t, ana.Close(websocket.StatusNormalClosure, "bye"))

	rm, err := h.Get(context.Background(), hub.DefaultRoom)
	require.NoError(t, err)
	require.Eventually(t, func() bool {
		v, err := rm.State(context.Background())
		return err == nil && len(v.Participants) == 0 && v.NumClients == 0
	}, time.Second, 10*time.Millisecond)
}
