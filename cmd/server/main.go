// Command server runs the CineHub catalog and booking API. The catalog
// store behind it is selected by CATALOG_MODE: "local" owns its data and
// persists to key-value storage, "remote" mirrors the configured upstream
// booking API.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/sirupsen/logrus"

	"github.com/davitm/cinehub/internal/catalog"
	"github.com/davitm/cinehub/internal/catalog/local"
	"github.com/davitm/cinehub/internal/catalog/remote"
	"github.com/davitm/cinehub/internal/config"
	"github.com/davitm/cinehub/internal/handler"
	"github.com/davitm/cinehub/internal/kv"
	"github.com/davitm/cinehub/internal/queue"
	"github.com/davitm/cinehub/internal/router"
	queue_publisher "github.com/davitm/cinehub/internal/service"
	"github.com/davitm/cinehub/internal/upstream"
)

func main() {
	log := logrus.New()
	log.SetFormatter(new(logrus.JSONFormatter))

	cfg := config.Load()

	store, identity := buildCatalog(cfg, log)
	defer func() { _ = store.Close() }()

	pub := queue_publisher.New(cfg.AMQPURL, log)
	if cfg.AMQPURL != "" {
		go queue.StartReservationConsumer(cfg.AMQPURL, log)
	}

	e := echo.New()
	e.HideBanner = true
	router.Register(e, router.Handlers{
		Auth:      handler.NewAuthHandler(cfg, identity),
		Movies:    handler.NewMovieHandler(store, log),
		Showtimes: handler.NewShowtimeHandler(store, log),
		Bookings:  handler.NewBookingHandler(store, pub, log),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "mode": cfg.CatalogMode}).Info("listening")
		if err := e.Start(addr); err != nil {
			log.WithError(err).Info("server stopped")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(ctx); err != nil {
		log.WithError(err).Error("shutdown failed")
	}
}

// buildCatalog constructs the catalog store and identity source for the
// configured mode.
func buildCatalog(cfg config.Config, log *logrus.Logger) (catalog.Store, catalog.Identity) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	switch cfg.CatalogMode {
	case config.ModeRemote:
		api, err := upstream.New(cfg.UpstreamURL, time.Duration(cfg.UpstreamTimeoutSecs)*time.Second, log)
		if err != nil {
			log.WithError(err).Fatal("upstream client init failed")
		}
		store := remote.New(api, log)
		// warm the mirror; a cold start against a down upstream is not fatal
		if err := store.RefreshMovies(ctx); err != nil {
			log.WithError(err).Warn("initial movie refresh failed")
		}
		if err := store.RefreshReservations(ctx); err != nil {
			log.WithError(err).Warn("initial reservation refresh failed")
		}
		return store, store

	default: // config.ModeLocal
		var backing kv.Store
		if cfg.RedisAddr != "" {
			redisStore, err := kv.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
			if err != nil {
				log.WithError(err).Fatal("redis init failed")
			}
			backing = redisStore
		} else {
			log.Warn("REDIS_ADDR not set; local catalog is volatile")
			backing = kv.NewMemory()
		}
		store, err := local.New(ctx, backing, local.Options{
			AdminEmail: cfg.AdminEmail,
			BcryptCost: cfg.BcryptCost,
			Logger:     log,
		})
		if err != nil {
			log.WithError(err).Fatal("local catalog init failed")
		}
		return store, store
	}
}
