// Package app wires configuration into the two runnable services: the
// record store and the diary app.
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/jitsdiary/jitsdiary/internal/api"
	"github.com/jitsdiary/jitsdiary/internal/auth"
	"github.com/jitsdiary/jitsdiary/internal/config"
	"github.com/jitsdiary/jitsdiary/internal/db"
	"github.com/jitsdiary/jitsdiary/internal/ratelimit"
	"github.com/jitsdiary/jitsdiary/internal/recordstore"
	"github.com/jitsdiary/jitsdiary/internal/storeclient"
)

// shutdownTimeout is the drain window after SIGINT/SIGTERM.
const shutdownTimeout = 10 * time.Second

// Migrate opens the database and applies the schema.
func Migrate(cfg config.Config) error {
	conn, errOpen := db.Open(cfg.Database)
	if errOpen != nil {
		return errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return errMigrate
	}
	log.Info("migration complete")
	return nil
}

// buildStore opens the database, migrates, seeds reference data and
// builds the record store router.
func buildStore(cfg config.Config) (*gin.Engine, error) {
	conn, errOpen := db.Open(cfg.Database)
	if errOpen != nil {
		return nil, errOpen
	}
	if errMigrate := db.Migrate(conn); errMigrate != nil {
		return nil, errMigrate
	}
	if errSeed := seedReferenceData(conn); errSeed != nil {
		return nil, errSeed
	}

	expiry, errExpiry := cfg.ParseTokenExpiry()
	if errExpiry != nil {
		return nil, errExpiry
	}

	router := newRouter(cfg)
	recordstore.RegisterRoutes(router, recordstore.NewService(conn, cfg.TokenSecret, expiry))
	return router, nil
}

// buildApp builds the diary app router against the configured store URL.
func buildApp(cfg config.Config) (*gin.Engine, error) {
	store := storeclient.New(cfg.StoreURL)
	cookies := auth.NewCookies(cfg.IsProduction())
	resolver := auth.NewResolver(store, cookies)
	flows := auth.NewOAuth2Flows(cfg.OAuth2, store, cookies)

	var limiter *ratelimit.FixedWindowLimiter
	if cfg.RedisAddr != "" {
		var errLimiter error
		limiter, errLimiter = ratelimit.NewRedisFixedWindowLimiter(
			cfg.RedisAddr, cfg.RedisPassword, "jitsdiary:auth",
			cfg.AuthRateLimitPerMinute, time.Minute,
		)
		if errLimiter != nil {
			return nil, fmt.Errorf("rate limiter: %w", errLimiter)
		}
		log.WithField("limit", cfg.AuthRateLimitPerMinute).Info("auth rate limiting enabled")
	}

	router := newRouter(cfg)
	api.RegisterRoutes(router, api.NewHandlers(resolver, flows, store, limiter))
	return router, nil
}

func newRouter(cfg config.Config) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	return router
}

// RunStore runs the record store until ctx is cancelled.
func RunStore(ctx context.Context, cfg config.Config) error {
	router, errBuild := buildStore(cfg)
	if errBuild != nil {
		return errBuild
	}
	return serve(ctx, "record store", cfg.StoreListen, router)
}

// RunApp runs the diary app until ctx is cancelled.
func RunApp(ctx context.Context, cfg config.Config) error {
	router, errBuild := buildApp(cfg)
	if errBuild != nil {
		return errBuild
	}
	return serve(ctx, "app", cfg.Listen, router)
}

// RunAll runs both services in one process. The first failure brings
// both down.
func RunAll(ctx context.Context, cfg config.Config) error {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	errCh := make(chan error, 2)
	go func() { errCh <- RunStore(runCtx, cfg) }()
	go func() { errCh <- RunApp(runCtx, cfg) }()

	errFirst := <-errCh
	cancel()
	errSecond := <-errCh
	if errFirst != nil {
		return errFirst
	}
	return errSecond
}

// serve runs an HTTP server and drains it when ctx is cancelled.
func serve(ctx context.Context, name, addr string, handler http.Handler) error {
	server := &http.Server{Addr: addr, Handler: handler}

	errCh := make(chan error, 1)
	go func() {
		log.WithFields(log.Fields{"service": name, "addr": addr}).Info("listening")
		errCh <- server.ListenAndServe()
	}()

	select {
	case errServe := <-errCh:
		if errServe != nil && !errors.Is(errServe, http.ErrServerClosed) {
			return fmt.Errorf("%s: %w", name, errServe)
		}
		return nil
	case <-ctx.Done():
		drainCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if errShutdown := server.Shutdown(drainCtx); errShutdown != nil {
			return fmt.Errorf("%s shutdown: %w", name, errShutdown)
		}
		log.WithField("service", name).Info("stopped")
		return nil
	}
}
