package notify

import (
	"context"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, ctx context.Context, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.Dial(ctx, wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func waitClients(t *testing.T, h *Hub, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for h.ClientCount() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d clients, got %d", n, h.ClientCount())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func readMessage(t *testing.T, ctx context.Context, conn *websocket.Conn) Message {
	t.Helper()
	typ, data, err := conn.Read(ctx)
	require.NoError(t, err)
	assert.Equal(t, websocket.MessageText, typ)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	a := dial(t, ctx, srv)
	b := dial(t, ctx, srv)
	waitClients(t, hub, 2)

	hub.Broadcast(ctx, Message{Type: TypeInfo, Text: "hello"})

	for _, conn := range []*websocket.Conn{a, b} {
		msg := readMessage(t, ctx, conn)
		assert.Equal(t, TypeInfo, msg.Type)
		assert.Equal(t, "Server", msg.Sender)
		assert.Equal(t, "hello", msg.Text)
		assert.False(t, msg.Timestamp.IsZero())
	}
}

func TestHub_Progress(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, ctx, srv)
	waitClients(t, hub, 1)

	hub.Progress(ctx, "1 of 4", 1, 4)

	msg := readMessage(t, ctx, conn)
	assert.Equal(t, TypeProgress, msg.Type)
	assert.Equal(t, 1, msg.Done)
	assert.Equal(t, 4, msg.Total)
	assert.Equal(t, 25, msg.Percent)
}

func TestHub_ClientLeaving(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, ctx, srv)
	waitClients(t, hub, 1)

	conn.Close(websocket.StatusNormalClosure, "bye")
	waitClients(t, hub, 0)

	// Nobody listening is not an error.
	hub.Broadcast(ctx, Message{Type: TypeInfo, Text: "anyone?"})
}

func TestHub_Close(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	hub := NewHub(zerolog.Nop())
	srv := httptest.NewServer(hub)
	defer srv.Close()

	conn := dial(t, ctx, srv)
	waitClients(t, hub, 1)

	errc := make(chan error, 1)
	go func() {
		_, _, err := conn.Read(ctx)
		errc <- err
	}()

	hub.Close()
	assert.Equal(t, 0, hub.ClientCount())
	assert.Equal(t, websocket.StatusGoingAway, websocket.CloseStatus(<-errc))
}
