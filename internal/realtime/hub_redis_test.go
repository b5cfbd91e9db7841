package realtime

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/model"
)

func newRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return rdb
}

func serveHub(t *testing.T, hub *Hub) string {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = hub.ServeWS(w, r)
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func runHub(t *testing.T, hub *Hub) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	require.Eventually(t, hub.relaying.Load, 2*time.Second, 10*time.Millisecond)
}

func TestHub_RedisFansOutAcrossInstances(t *testing.T) {
	rdb := newRedis(t)
	a := NewHub(logging.Discard(), rdb, "shows:events")
	b := NewHub(logging.Discard(), rdb, "shows:events")
	runHub(t, a)
	runHub(t, b)

	onA := dial(t, serveHub(t, a))
	onB := dial(t, serveHub(t, b))
	require.Eventually(t, func() bool { return a.Count() == 1 && b.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	a.Notify(context.Background(), model.NewFieldEvent("a", model.FieldReady, true))

	want := `{"event":"updateReady","data":{"showId":"a","ready":true}}`
	assert.JSONEq(t, want, readFrame(t, onA))
	assert.JSONEq(t, want, readFrame(t, onB))

	// exactly one copy per client
	require.NoError(t, onA.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	_, _, err := onA.ReadMessage()
	assert.Error(t, err)
}

func TestHub_DeliversLocallyBeforeRelayIsUp(t *testing.T) {
	hub := NewHub(logging.Discard(), newRedis(t), "shows:events")
	c := dial(t, serveHub(t, hub))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	hub.Notify(context.Background(), model.NewFieldEvent("a", model.FieldSold, true))
	assert.JSONEq(t, `{"event":"updateSold","data":{"showId":"a","sold":true}}`, readFrame(t, c))
}

func TestHub_DeliversLocallyWhenRedisIsDown(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr(), MaxRetries: -1})
	t.Cleanup(func() { rdb.Close() })
	hub := NewHub(logging.Discard(), rdb, "shows:events")
	c := dial(t, serveHub(t, hub))
	require.Eventually(t, func() bool { return hub.Count() == 1 }, 2*time.Second, 10*time.Millisecond)

	mr.Close()
	hub.Notify(context.Background(), model.NewClearEvent())
	assert.JSONEq(t, `{"event":"clearShows"}`, readFrame(t, c))
}
