package main // Entry point of the PDF upload service

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/iliyamo/showdesk/internal/config"
	"github.com/iliyamo/showdesk/internal/handler"
	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/middleware"
	"github.com/iliyamo/showdesk/internal/repository"
	"github.com/iliyamo/showdesk/internal/router"
)

const serviceName = "uploadserver"

func main() {
	config.LoadDotEnv()
	cfg := config.LoadUpload()
	log := logging.New(cfg.Common, serviceName)

	fs := afero.NewOsFs()
	uploads := repository.NewUploadRepo(fs, cfg.Dir, cfg.PublicPrefix)
	if err := uploads.EnsureDir(); err != nil {
		log.WithError(err).Fatal("prepare upload dir")
	}

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(echomw.BodyLimit(bodyLimit(cfg.MaxUploadBytes)))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(serviceName), rdb))

	guards := router.Guards{Auth: cfg.Auth, Cache: config.LoadCacheConfig(serviceName), Redis: rdb}
	router.RegisterRoutes(e, serviceName)
	if cfg.Auth.Enabled {
		router.RegisterAuth(e, handler.NewAuthHandler(cfg.Auth, log), cfg.Auth.JWTSecret)
	}
	router.RegisterUpload(e, handler.NewUploadHandler(uploads, log), fs, cfg, guards)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "dir": cfg.Dir}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("shutdown")
	}
}

// bodyLimit renders n bytes in the unit syntax echo's BodyLimit expects.
func bodyLimit(n int64) string {
	if n <= 0 {
		n = 50 << 20
	}
	return strconv.FormatInt(max(n/1024, 1), 10) + "K"
}
