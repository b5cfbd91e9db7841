package queue

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/model"
)

func TestFromShowEvent(t *testing.T) {
	at := time.Date(2024, 3, 1, 20, 30, 0, 0, time.UTC)

	ev := model.NewFieldEvent("a", model.FieldSold, false)
	ev.OccurredAt = at
	out := FromShowEvent(ev)
	assert.Equal(t, "updateSold", out.Event)
	assert.Equal(t, "a", out.ShowID)
	assert.Equal(t, "sold", out.Field)
	require.NotNil(t, out.Value)
	assert.False(t, *out.Value)
	assert.Equal(t, "2024-03-01T20:30:00Z", out.OccurredAt)

	clear := model.NewClearEvent()
	clear.OccurredAt = at
	out = FromShowEvent(clear)
	assert.Equal(t, "clearShows", out.Event)
	assert.Empty(t, out.ShowID)
	assert.Nil(t, out.Value)
}

func TestFormatAuditLine(t *testing.T) {
	v := true
	assert.Equal(t,
		"[2024-03-01T20:30:00Z] updateReady | show_id=\"a\" | ready=true\n",
		FormatAuditLine(ShowChangedEvent{Event: "updateReady", ShowID: "a", Field: "ready", Value: &v, OccurredAt: "2024-03-01T20:30:00Z"}))
	assert.Equal(t,
		"[2024-03-01T20:30:00Z] clearShows\n",
		FormatAuditLine(ShowChangedEvent{Event: "clearShows", OccurredAt: "2024-03-01T20:30:00Z"}))
}

func TestAuditConsumer_HandleMessageAppends(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	a := &AuditConsumer{Dir: dir, Log: logging.Discard()}

	require.NoError(t, a.HandleMessage([]byte(`{"event":"updateSold","show_id":"a","field":"sold","value":true,"occurred_at":"t1"}`)))
	require.NoError(t, a.HandleMessage([]byte(`{"event":"clearShows","occurred_at":"t2"}`)))

	data, err := os.ReadFile(filepath.Join(dir, "shows.log"))
	require.NoError(t, err)
	assert.Equal(t, "[t1] updateSold | show_id=\"a\" | sold=true\n[t2] clearShows\n", string(data))
}

func TestAuditConsumer_HandleMessageRejectsGarbage(t *testing.T) {
	a := &AuditConsumer{Dir: t.TempDir(), Log: logging.Discard()}
	assert.Error(t, a.HandleMessage([]byte("nope")))
	assert.Error(t, a.HandleMessage([]byte(`{"show_id":"a"}`)))

	_, err := os.Stat(filepath.Join(a.Dir, "shows.log"))
	assert.True(t, os.IsNotExist(err))
}
