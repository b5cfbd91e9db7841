package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/model"
)

func startHubServer(t *testing.T) (*Hub, string) {
	t.Helper()
	hub := NewHub(logging.Discard(), nil, "test")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return hub, "ws" + strings.TrimPrefix(srv.URL, "http")
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) string {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	return string(data)
}

func TestHub_BroadcastReachesEveryClient(t *testing.T) {
	hub, url := startHubServer(t)
	a := dial(t, url)
	b := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 2 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), model.NewFieldEvent("a", model.FieldSold, true))

	want := `{"event":"updateSold","data":{"showId":"a","sold":true}}`
	assert.JSONEq(t, want, readFrame(t, a))
	assert.JSONEq(t, want, readFrame(t, b))
}

func TestHub_ClearEventHasNoData(t *testing.T) {
	hub, url := startHubServer(t)
	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), model.NewClearEvent())
	assert.JSONEq(t, `{"event":"clearShows"}`, readFrame(t, c))
}

func TestHub_DisconnectUnregisters(t *testing.T) {
	hub, url := startHubServer(t)
	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.Close())
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 10*time.Millisecond)

	// broadcasting with nobody connected is a no-op
	hub.Broadcast(context.Background(), Message{Event: model.EventClearShows})
}

func TestHub_LateJoinerGetsNoReplay(t *testing.T) {
	hub, url := startHubServer(t)
	hub.Broadcast(context.Background(), Message{Event: model.EventClearShows})

	c := dial(t, url)
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, c.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := c.ReadMessage()
	assert.Error(t, err, "no event may be replayed to a late joiner")
}

func TestHub_FullQueueDropsWithoutBlocking(t *testing.T) {
	hub := NewHub(logging.Discard(), nil, "test")
	c := &Client{id: "slow", hub: hub, send: make(chan []byte, 1)}
	hub.register(c)

	done := make(chan struct{})
	go func() {
		hub.deliver([]byte("1"))
		hub.deliver([]byte("2"))
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("deliver blocked on a full client queue")
	}
	assert.Equal(t, "1", string(<-c.send))

	hub.unregister(c)
	hub.unregister(c)
	assert.Equal(t, 0, hub.Count())
}
