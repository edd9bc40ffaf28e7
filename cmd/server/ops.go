package main

import (
	"log/slog"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/event-management-system/internal/config"
	"github.com/iliyamo/event-management-system/internal/handler"
	"github.com/iliyamo/event-management-system/internal/middleware"
	"github.com/iliyamo/event-management-system/internal/repository"
	"github.com/iliyamo/event-management-system/internal/router"
	"github.com/iliyamo/event-management-system/internal/server"
)

// newOpsServer builds the ops HTTP server. rdb may be nil, which turns the
// rate limiter and response cache into pass-throughs and leaves the
// session directory endpoints unavailable.
func newOpsServer(cfg config.Config, srv *server.Server, rdb *redis.Client, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	h := &handler.OpsHandler{
		Events:   srv.Store(),
		Sessions: srv.Pool(),
		Dumper:   srv.Listener(),
		Stats:    srv,
	}
	if rdb != nil {
		h.Directory = repository.NewSessionRepo(rdb, "")
	}

	router.RegisterRoutes(e)
	router.RegisterOps(e, h,
		middleware.NewRedisCache(cfg.Cache, rdb, logger),
		middleware.NewTokenBucket(cfg.RateLimit, rdb, logger),
	)
	return e
}
