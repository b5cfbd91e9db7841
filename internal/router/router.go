package router // package router defines how HTTP routes are registered for both services

import (
	"net/http"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/iliyamo/showdesk/internal/config"
	"github.com/iliyamo/showdesk/internal/handler"    // import the handlers that implement the endpoints
	"github.com/iliyamo/showdesk/internal/middleware" // import middleware for auth, caching and rate limiting
	"github.com/iliyamo/showdesk/internal/model"
	"github.com/iliyamo/showdesk/internal/utils"
)

// Guards bundles the optional cross-cutting middleware. A zero Guards (no
// auth, no Redis) leaves every route public and uncached.
type Guards struct {
	Auth  config.AuthConfig
	Cache config.CacheConfig
	Redis *redis.Client
}

// mutating returns the middleware chain for routes that change state:
// operator auth when enabled, then cache invalidation.
func (g Guards) mutating() []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{
		middleware.Optional(g.Auth.Enabled, middleware.JWTAuth(g.Auth.JWTSecret)),
		middleware.Optional(g.Auth.Enabled, middleware.RequireRole(utils.RoleOperator)),
		middleware.InvalidateCache(g.Cache, g.Redis),
	}
}

func (g Guards) cached() echo.MiddlewareFunc {
	return middleware.NewRedisCache(g.Cache, g.Redis)
}

// RegisterRoutes registers the routes shared by both services.
func RegisterRoutes(e *echo.Echo, service string) {
	e.GET("/healthz", handler.Health(service))
}

// RegisterAuth registers the operator login. It is only called when auth is
// enabled.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/api/auth")
	g.POST("/login", a.Login)
	g.GET("/me", a.Me, middleware.JWTAuth(jwtSecret))
}

// RegisterUpload registers the upload service endpoints. Uploaded files are
// served from fs under cfg.PublicPrefix, and cfg.StaticDir is served at "/".
func RegisterUpload(e *echo.Echo, h *handler.UploadHandler, fs afero.Fs, cfg config.UploadConfig, g Guards) {
	mut := g.mutating()
	e.POST("/upload", h.Upload, mut...)
	e.GET("/get-pdf-list", h.List, g.cached())
	e.POST("/delete-pdf", h.Delete, mut...)

	prefix := "/" + strings.Trim(cfg.PublicPrefix, "/")
	files := http.StripPrefix(prefix, http.FileServer(afero.NewHttpFs(fs).Dir(cfg.Dir)))
	e.GET(prefix+"/*", echo.WrapHandler(files))
	e.Static("/", cfg.StaticDir)
}

// RegisterShows registers the shows API, the realtime endpoint and the web
// client bundle.
func RegisterShows(e *echo.Echo, h *handler.ShowsHandler, ws echo.HandlerFunc, webDir string, g Guards) {
	mut := g.mutating()
	api := e.Group("/api/shows")
	api.GET("", h.List, g.cached())
	api.POST("", h.Append, mut...)
	api.DELETE("", h.Clear, mut...)
	api.PUT("/:id/interval", h.UpdateField(model.FieldIntervalDone), mut...)
	api.PUT("/:id/sold", h.UpdateField(model.FieldSold), mut...)
	api.PUT("/:id/ready", h.UpdateField(model.FieldReady), mut...)

	e.GET("/ws", ws)

	e.File("/", filepath.Join(webDir, "index.html"))
	e.Static("/", webDir)
}
