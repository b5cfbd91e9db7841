package handler

import (
	"errors"   // errors.Is for sentinel comparisons
	"net/http" // HTTP status codes
	"net/url"  // path parameter decoding

	"github.com/labstack/echo/v4" // echo provides the web context and JSON helpers
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/model"
	"github.com/iliyamo/showdesk/internal/repository"
	"github.com/iliyamo/showdesk/internal/service"
)

// ShowsHandler serves /api/shows.
type ShowsHandler struct {
	Shows *service.ShowService
	Log   *logrus.Logger
}

// NewShowsHandler constructs a ShowsHandler and panics if the service is nil.
func NewShowsHandler(shows *service.ShowService, log *logrus.Logger) *ShowsHandler {
	if shows == nil {
		panic("nil service passed to NewShowsHandler")
	}
	return &ShowsHandler{Shows: shows, Log: log}
}

// List handles GET /api/shows and returns the full array.
func (h *ShowsHandler) List(c echo.Context) error {
	shows, err := h.Shows.ListAll(c.Request().Context())
	if err != nil {
		h.Log.WithError(err).Error("shows: list failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to read shows"})
	}
	return c.JSON(http.StatusOK, shows)
}

// Append handles POST /api/shows. The body must be a JSON array of show
// objects; they are appended in order without any id check.
func (h *ShowsHandler) Append(c echo.Context) error {
	var shows []model.Show
	if err := (&echo.DefaultBinder{}).BindBody(c, &shows); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON array of shows"})
	}
	if shows == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "body must be a JSON array of shows"})
	}
	if err := h.Shows.AppendMany(c.Request().Context(), shows); err != nil {
		h.Log.WithError(err).WithField("count", len(shows)).Error("shows: append failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to save shows"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Shows added successfully", "count": len(shows)})
}

// UpdateField returns the handler for PUT /api/shows/:id/<flag>. The body
// must carry the flag as a JSON boolean, e.g. {"sold": true}.
func (h *ShowsHandler) UpdateField(field model.Field) echo.HandlerFunc {
	return func(c echo.Context) error {
		id, err := showID(c)
		if err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid show id"})
		}
		var body map[string]any
		if err := (&echo.DefaultBinder{}).BindBody(c, &body); err != nil {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
		}
		value, ok := body[string(field)].(bool)
		if !ok {
			return c.JSON(http.StatusBadRequest, echo.Map{"error": string(field) + " must be a boolean"})
		}
		show, err := h.Shows.UpdateField(c.Request().Context(), id, field, value)
		if err != nil {
			if errors.Is(err, repository.ErrShowNotFound) {
				return c.JSON(http.StatusNotFound, echo.Map{"error": "show not found"})
			}
			h.Log.WithError(err).WithFields(logrus.Fields{"show_id": id, "field": field}).Error("shows: update failed")
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to update show"})
		}
		return c.JSON(http.StatusOK, echo.Map{"message": "Show updated successfully", "show": show})
	}
}

// showID returns the decoded :id parameter. echo routes on the raw path
// when the URL carries escapes such as %2F and then leaves the parameter
// encoded; otherwise it is already decoded and must not be unescaped again.
func showID(c echo.Context) (string, error) {
	id := c.Param("id")
	if c.Request().URL.RawPath == "" {
		return id, nil
	}
	return url.PathUnescape(id)
}

// Clear handles DELETE /api/shows and empties the store.
func (h *ShowsHandler) Clear(c echo.Context) error {
	if err := h.Shows.ClearAll(c.Request().Context()); err != nil {
		h.Log.WithError(err).Error("shows: clear failed")
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "failed to clear shows"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All shows deleted successfully"})
}
