package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-management-system/internal/model"
	"github.com/iliyamo/event-management-system/internal/repository"
	"github.com/iliyamo/event-management-system/internal/store"
)

// EventReader is the read side of the event store.
type EventReader interface {
	List() ([]uint32, error)
	Show(id uint32) (store.Grid, error)
	Snapshots() ([]store.Grid, error)
}

// SessionLister snapshots the session pool.
type SessionLister interface {
	Sessions() []model.Session
}

// SessionDirectory is the Redis mirror of bound sessions. Unlike the pool
// snapshot it only holds sessions with a client attached.
type SessionDirectory interface {
	Get(ctx context.Context, id int32) (model.Session, error)
	List(ctx context.Context) ([]model.Session, error)
}

// StatsSource reports server-wide counters.
type StatsSource interface {
	Stats() model.ServerStats
}

// DumpRequester flags a diagnostic dump on the host listener.
type DumpRequester interface {
	RequestDump()
}

// OpsHandler serves operators a view of the running server. It never
// mutates the store; clients do that over their pipes.
type OpsHandler struct {
	Events   EventReader
	Sessions SessionLister
	Dumper   DumpRequester
	Stats    StatsSource

	// Directory is nil when Redis is not configured.
	Directory SessionDirectory
}

// ListEvents returns every event id in creation order, or every grid
// with ?expand=grids.
func (h *OpsHandler) ListEvents(c echo.Context) error {
	if c.QueryParam("expand") == "grids" {
		grids, err := h.Events.Snapshots()
		if err != nil {
			return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
		}
		return c.JSON(http.StatusOK, echo.Map{"items": grids, "count": len(grids)})
	}
	ids, err := h.Events.List()
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	if ids == nil {
		ids = []uint32{}
	}
	return c.JSON(http.StatusOK, echo.Map{"items": ids, "count": len(ids)})
}

// GetEvent returns an event's seat grid. Seats holds row-major
// reservation ids, 0 for a free seat.
func (h *OpsHandler) GetEvent(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid event id"})
	}
	grid, err := h.Events.Show(uint32(id))
	switch {
	case errors.Is(err, store.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "event not found"})
	case err != nil:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, grid)
}

// ListSessions returns every session slot, idle ones included.
func (h *OpsHandler) ListSessions(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"items": h.Sessions.Sessions()})
}

// ListBoundSessions returns the sessions mirrored in the directory.
func (h *OpsHandler) ListBoundSessions(c echo.Context) error {
	if h.Directory == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session directory not configured"})
	}
	items, err := h.Directory.List(c.Request().Context())
	if err != nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items, "count": len(items)})
}

// GetBoundSession returns one directory entry. A session without a
// client attached is not in the directory and yields 404.
func (h *OpsHandler) GetBoundSession(c echo.Context) error {
	if h.Directory == nil {
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": "session directory not configured"})
	}
	id, err := strconv.ParseInt(c.Param("id"), 10, 32)
	if err != nil || id < 0 {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid session id"})
	}
	s, err := h.Directory.Get(c.Request().Context(), int32(id))
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "session not bound"})
	case err != nil:
		return c.JSON(http.StatusServiceUnavailable, echo.Map{"error": err.Error()})
	}
	return c.JSON(http.StatusOK, s)
}

// Status returns pool and handshake counters.
func (h *OpsHandler) Status(c echo.Context) error {
	return c.JSON(http.StatusOK, h.Stats.Stats())
}

// RequestDump asks the listener to print the store. The dump goes to the
// server's standard output, not the HTTP response.
func (h *OpsHandler) RequestDump(c echo.Context) error {
	h.Dumper.RequestDump()
	return c.JSON(http.StatusAccepted, echo.Map{"status": "dump requested"})
}
