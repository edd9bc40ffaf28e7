// Package router registers the ops server's routes.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-management-system/internal/handler"
)

// RegisterRoutes registers the health check, which stays outside the rate
// limiter and cache.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterOps registers the read-only views under /v1. The middlewares
// wrap every /v1 route; reads is applied to the cached GET endpoints only.
func RegisterOps(e *echo.Echo, h *handler.OpsHandler, reads echo.MiddlewareFunc, mw ...echo.MiddlewareFunc) {
	g := e.Group("/v1", mw...)
	g.GET("/events", h.ListEvents, reads)
	g.GET("/events/:id", h.GetEvent, reads)
	g.GET("/sessions", h.ListSessions)
	g.GET("/directory/sessions", h.ListBoundSessions)
	g.GET("/directory/sessions/:id", h.GetBoundSession)
	g.GET("/status", h.Status)
	g.POST("/debug/dump", h.RequestDump)
}
