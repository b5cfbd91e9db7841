package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/model"
	"github.com/iliyamo/showdesk/internal/repository"
	"github.com/iliyamo/showdesk/internal/service"
)

type eventLog struct {
	mu     sync.Mutex
	events []model.ShowEvent
}

func (l *eventLog) Notify(_ context.Context, ev model.ShowEvent) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *eventLog) named(name model.EventName) []model.ShowEvent {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []model.ShowEvent
	for _, ev := range l.events {
		if ev.Name == name {
			out = append(out, ev)
		}
	}
	return out
}

func setupShows(t *testing.T) (*echo.Echo, *eventLog, afero.Fs) {
	t.Helper()
	fs := afero.NewMemMapFs()
	repo := repository.NewFileShowRepo(fs, "shows.json")
	require.NoError(t, repo.EnsureFile())
	events := &eventLog{}
	h := NewShowsHandler(service.NewShowService(repo, logging.Discard(), events), logging.Discard())

	e := echo.New()
	e.GET("/api/shows", h.List)
	e.POST("/api/shows", h.Append)
	e.DELETE("/api/shows", h.Clear)
	e.PUT("/api/shows/:id/interval", h.UpdateField(model.FieldIntervalDone))
	e.PUT("/api/shows/:id/sold", h.UpdateField(model.FieldSold))
	e.PUT("/api/shows/:id/ready", h.UpdateField(model.FieldReady))
	return e, events, fs
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func listShows(t *testing.T, e *echo.Echo) []map[string]any {
	t.Helper()
	rec := doJSON(e, http.MethodGet, "/api/shows", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var shows []map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &shows))
	return shows
}

func TestShows_AppendThenList(t *testing.T) {
	e, _, _ := setupShows(t)

	rec := doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a","title":"X"}]`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "message")

	shows := listShows(t, e)
	require.Len(t, shows, 1)
	assert.Equal(t, "a", shows[0]["id"])
	assert.Equal(t, "X", shows[0]["title"])
}

func TestShows_AppendRejectsNonArray(t *testing.T) {
	e, _, _ := setupShows(t)
	for _, body := range []string{`{"id":"a"}`, `[1]`, `not json`, ``} {
		rec := doJSON(e, http.MethodPost, "/api/shows", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, listShows(t, e))
}

func TestShows_UpdateSoldBroadcasts(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a","title":"X"}]`)

	rec := doJSON(e, http.MethodPut, "/api/shows/a/sold", `{"sold":true}`)
	require.Equal(t, http.StatusOK, rec.Code)

	sold := events.named(model.EventUpdateSold)
	require.Len(t, sold, 1)
	assert.Equal(t, map[string]any{"showId": "a", "sold": true}, sold[0].Payload())

	shows := listShows(t, e)
	assert.Equal(t, true, shows[0]["sold"])
	assert.Equal(t, "X", shows[0]["title"])
}

func TestShows_UpdateUnknownIDIs404WithoutEvent(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a"}]`)

	rec := doJSON(e, http.MethodPut, "/api/shows/zzz/sold", `{"sold":true}`)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Empty(t, events.named(model.EventUpdateSold))
}

func TestShows_UpdateEachFieldEmitsItsEvent(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a"}]`)

	tests := []struct {
		path  string
		body  string
		event model.EventName
		field string
	}{
		{"/api/shows/a/interval", `{"intervalDone":true}`, model.EventUpdateInterval, "intervalDone"},
		{"/api/shows/a/sold", `{"sold":false}`, model.EventUpdateSold, "sold"},
		{"/api/shows/a/ready", `{"ready":true}`, model.EventUpdateReady, "ready"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			rec := doJSON(e, http.MethodPut, tt.path, tt.body)
			require.Equal(t, http.StatusOK, rec.Code)
			require.Len(t, events.named(tt.event), 1)
		})
	}
	shows := listShows(t, e)
	assert.Equal(t, true, shows[0]["intervalDone"])
	assert.Equal(t, false, shows[0]["sold"])
	assert.Equal(t, true, shows[0]["ready"])
}

func TestShows_UpdateRequiresBoolean(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a"}]`)

	for _, body := range []string{`{}`, `{"sold":"true"}`, `{"ready":true}`, `[]`} {
		rec := doJSON(e, http.MethodPut, "/api/shows/a/sold", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "body %q", body)
	}
	assert.Empty(t, events.named(model.EventUpdateSold))
}

func TestShows_ClearThenListIsEmpty(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a"},{"id":"b"}]`)

	rec := doJSON(e, http.MethodDelete, "/api/shows", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Empty(t, listShows(t, e))
	assert.Len(t, events.named(model.EventClearShows), 1)
}

func TestShows_ListFailsOnCorruptStore(t *testing.T) {
	e, _, fs := setupShows(t)
	require.NoError(t, afero.WriteFile(fs, "shows.json", []byte("{broken"), 0o644))

	rec := doJSON(e, http.MethodGet, "/api/shows", "")
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = doJSON(e, http.MethodPut, "/api/shows/a/sold", `{"sold":true}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestShows_ConcurrentUpdatesOfDifferentFields(t *testing.T) {
	e, _, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a"}]`)

	var wg sync.WaitGroup
	for _, req := range [][2]string{
		{"/api/shows/a/interval", `{"intervalDone":true}`},
		{"/api/shows/a/sold", `{"sold":true}`},
		{"/api/shows/a/ready", `{"ready":true}`},
	} {
		wg.Add(1)
		go func(path, body string) {
			defer wg.Done()
			rec := doJSON(e, http.MethodPut, path, body)
			assert.Equal(t, http.StatusOK, rec.Code)
		}(req[0], req[1])
	}
	wg.Wait()

	shows := listShows(t, e)
	assert.Equal(t, true, shows[0]["intervalDone"])
	assert.Equal(t, true, shows[0]["sold"])
	assert.Equal(t, true, shows[0]["ready"])
}

func TestShows_UpdateDecodesEscapedID(t *testing.T) {
	e, events, _ := setupShows(t)
	doJSON(e, http.MethodPost, "/api/shows", `[{"id":"a/b"},{"id":"a b"},{"id":"100%"}]`)

	for _, target := range []string{"/api/shows/a%2Fb/sold", "/api/shows/a%20b/sold", "/api/shows/100%25/sold"} {
		rec := doJSON(e, http.MethodPut, target, `{"sold":true}`)
		require.Equal(t, http.StatusOK, rec.Code, target)
	}

	sold := events.named(model.EventUpdateSold)
	require.Len(t, sold, 3)
	assert.Equal(t, "a/b", sold[0].ShowID)
	assert.Equal(t, "a b", sold[1].ShowID)
	assert.Equal(t, "100%", sold[2].ShowID)

	for _, s := range listShows(t, e) {
		assert.Equal(t, true, s["sold"], s["id"])
	}
}
