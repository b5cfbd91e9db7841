package handler

import (
	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/showdesk/internal/realtime"
)

// Realtime upgrades GET /ws to a WebSocket registered with hub. The
// upgrader has already answered the client when it fails, so the error is
// only logged.
func Realtime(hub *realtime.Hub, log *logrus.Logger) echo.HandlerFunc {
	return func(c echo.Context) error {
		if err := hub.ServeWS(c.Response(), c.Request()); err != nil {
			log.WithError(err).WithField("ip", c.RealIP()).Warn("realtime: upgrade failed")
		}
		return nil
	}
}
