package main // Entry point of the shows API with realtime broadcast

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"

	"github.com/iliyamo/showdesk/internal/config"
	"github.com/iliyamo/showdesk/internal/database"
	"github.com/iliyamo/showdesk/internal/handler"
	"github.com/iliyamo/showdesk/internal/logging"
	"github.com/iliyamo/showdesk/internal/middleware"
	"github.com/iliyamo/showdesk/internal/queue"
	"github.com/iliyamo/showdesk/internal/realtime"
	"github.com/iliyamo/showdesk/internal/repository"
	"github.com/iliyamo/showdesk/internal/router"
	"github.com/iliyamo/showdesk/internal/service"
)

const serviceName = "showserver"

func main() {
	config.LoadDotEnv()
	cfg := config.LoadShows()
	log := logging.New(cfg.Common, serviceName)

	repo, err := openShowRepository(cfg)
	if err != nil {
		log.WithError(err).WithField("store", cfg.Store).Fatal("open show store")
	}
	defer repo.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rdb := config.NewRedisClient(log)
	if rdb != nil {
		defer rdb.Close()
	}

	hub := realtime.NewHub(log, rdb, cfg.RealtimeChannel)
	go hub.Run(ctx)

	notifiers := []service.Notifier{hub}
	if cfg.AMQPEnabled {
		pub := queue.NewPublisher(cfg.AMQPURL, log)
		go pub.Run(ctx)
		notifiers = append(notifiers, pub)
	}
	shows := service.NewShowService(repo, log, notifiers...)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(serviceName), rdb))

	guards := router.Guards{Auth: cfg.Auth, Cache: config.LoadCacheConfig(serviceName), Redis: rdb}
	router.RegisterRoutes(e, serviceName)
	if cfg.Auth.Enabled {
		router.RegisterAuth(e, handler.NewAuthHandler(cfg.Auth, log), cfg.Auth.JWTSecret)
	}
	router.RegisterShows(e, handler.NewShowsHandler(shows, log), handler.Realtime(hub, log), cfg.WebDir, guards)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{
			"addr":  addr,
			"env":   cfg.Env,
			"store": cfg.Store,
			"redis": rdb != nil,
			"amqp":  cfg.AMQPEnabled,
			"auth":  cfg.Auth.Enabled,
		}).Info("listening")
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

// openShowRepository builds the backend named by cfg.Store.
func openShowRepository(cfg config.ShowsConfig) (repository.ShowRepository, error) {
	switch cfg.Store {
	case "file", "":
		r := repository.NewFileShowRepo(afero.NewOsFs(), cfg.DataFile)
		if err := r.EnsureFile(); err != nil {
			return nil, err
		}
		return r, nil
	case "bolt":
		db, err := database.OpenBolt(cfg.BoltPath)
		if err != nil {
			return nil, fmt.Errorf("open bolt %s: %w", cfg.BoltPath, err)
		}
		r, err := repository.NewBoltShowRepo(db)
		if err != nil {
			db.Close()
			return nil, err
		}
		return r, nil
	case "mysql":
		db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
		if err != nil {
			return nil, fmt.Errorf("open mysql: %w", err)
		}
		r := repository.NewMySQLShowRepo(db)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := r.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		return r, nil
	}
	return nil, fmt.Errorf("unknown SHOWS_STORE %q (want file, bolt or mysql)", cfg.Store)
}
