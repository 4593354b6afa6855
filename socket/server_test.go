package socket_test

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"bookreview_server/auth"
	"bookreview_server/routes"
	"bookreview_server/socket"

	"github.com/goccy/go-json"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type liveFixture struct {
	rooms  *socket.Rooms
	tokens *auth.TokenManager
	srv    *httptest.Server
}

// newLive serves the socket endpoint behind the same router and middleware
// chain main uses.
func newLive(t *testing.T) *liveFixture {
	t.Helper()
	tokens, err := auth.NewTokenManager("0123456789abcdef0123456789abcdef", time.Hour)
	require.NoError(t, err)

	rooms := socket.NewRooms()
	server := socket.NewSocketServer(rooms, tokens, 16)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = server.Serve(ctx)
	}()

	r := mux.NewRouter()
	routes.RegisterRoutes(r, tokens, routes.RateLimit{Requests: 1000, Window: time.Minute})
	routes.RegisterSocketRoutes(r, server)
	srv := httptest.NewServer(r)

	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &liveFixture{rooms: rooms, tokens: tokens, srv: srv}
}

type client struct {
	t    *testing.T
	conn *websocket.Conn
}

func (f *liveFixture) dial(t *testing.T, query string, header http.Header) *client {
	t.Helper()
	u := "ws" + strings.TrimPrefix(f.srv.URL, "http") + "/socket.io/?EIO=3&transport=websocket" + query
	conn, resp, err := websocket.DefaultDialer.Dial(u, header)
	if resp != nil {
		require.Equal(t, http.StatusSwitchingProtocols, resp.StatusCode)
	}
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return &client{t: t, conn: conn}
}

// next returns the next socket.io packet, skipping engine.io control frames.
func (c *client) next() (string, error) {
	for {
		_ = c.conn.SetReadDeadline(time.Now().Add(5 * time.Second))
		_, msg, err := c.conn.ReadMessage()
		if err != nil {
			return "", err
		}
		if len(msg) > 0 && msg[0] == '4' {
			return string(msg[1:]), nil
		}
	}
}

func (c *client) waitConnected() {
	c.t.Helper()
	for {
		p, err := c.next()
		require.NoError(c.t, err)
		if p == "0" {
			return
		}
	}
}

// waitEvent reads until event arrives and returns its arguments.
func (c *client) waitEvent(event string) []json.RawMessage {
	c.t.Helper()
	for {
		p, err := c.next()
		require.NoError(c.t, err)
		if !strings.HasPrefix(p, "2") {
			continue
		}
		var frame []json.RawMessage
		require.NoError(c.t, json.Unmarshal([]byte(p[1:]), &frame))
		require.NotEmpty(c.t, frame)
		var name string
		require.NoError(c.t, json.Unmarshal(frame[0], &name))
		if name == event {
			return frame[1:]
		}
	}
}

func (c *client) emit(event, arg string) {
	c.t.Helper()
	frame, err := json.Marshal([]string{event, arg})
	require.NoError(c.t, err)
	require.NoError(c.t, c.conn.WriteMessage(websocket.TextMessage, append([]byte("42"), frame...)))
}

func TestServer_AnonymousViewerWatchesBookRoom(t *testing.T) {
	f := newLive(t)
	c := f.dial(t, "", nil)
	c.waitConnected()

	c.emit("joinBook", "b1")
	require.Eventually(t, func() bool { return f.rooms.RoomSize("b1") == 1 }, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, f.rooms.Broadcast("b1", "newComment", map[string]string{"text": "great book"}))
	args := c.waitEvent("newComment")
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"text":"great book"}`, string(args[0]))

	c.emit("leaveBook", "b1")
	require.Eventually(t, func() bool { return f.rooms.RoomSize("b1") == 0 }, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.rooms.RoomCount())
}

func TestServer_TokenJoinsPersonalRoom(t *testing.T) {
	f := newLive(t)
	token, err := f.tokens.GenerateToken("alice")
	require.NoError(t, err)

	c := f.dial(t, "&token="+token, nil)
	c.waitConnected()

	require.Eventually(t, func() bool { return f.rooms.RoomCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.rooms.EmitToUser("alice", "newNotification", map[string]string{"type": "new_comment"}))
	args := c.waitEvent("newNotification")
	require.Len(t, args, 1)
	assert.JSONEq(t, `{"type":"new_comment"}`, string(args[0]))
	assert.False(t, f.rooms.EmitToUser("bob", "newNotification", nil))
}

func TestServer_BearerHeaderAuthenticates(t *testing.T) {
	f := newLive(t)
	token, err := f.tokens.GenerateToken("carol")
	require.NoError(t, err)

	c := f.dial(t, "", http.Header{"Authorization": {"Bearer " + token}})
	c.waitConnected()

	require.Eventually(t, func() bool { return f.rooms.RoomCount() == 1 }, 2*time.Second, 10*time.Millisecond)
	assert.True(t, f.rooms.EmitToUser("carol", "newNotification", "ping"))
	c.waitEvent("newNotification")
}

func TestServer_InvalidTokenIsRejected(t *testing.T) {
	f := newLive(t)
	c := f.dial(t, "&token=not-a-jwt", nil)

	var err error
	for err == nil {
		_, err = c.next()
	}
	var ne net.Error
	assert.False(t, errors.As(err, &ne) && ne.Timeout(), "connection was not closed: %v", err)
	assert.Equal(t, 0, f.rooms.RoomCount())
}

func TestServer_DisconnectLeavesAllRooms(t *testing.T) {
	f := newLive(t)
	token, err := f.tokens.GenerateToken("dave")
	require.NoError(t, err)

	c := f.dial(t, "&token="+token, nil)
	c.waitConnected()
	c.emit("joinBook", "b1")
	c.emit("joinBook", "b2")
	require.Eventually(t, func() bool { return f.rooms.RoomCount() == 3 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.conn.Close())
	require.Eventually(t, func() bool { return f.rooms.RoomCount() == 0 }, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, f.rooms.Broadcast("b1", "newComment", nil))
	assert.False(t, f.rooms.EmitToUser("dave", "newNotification", nil))
}
