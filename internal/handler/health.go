// Package handler exposes the read-only HTTP handlers of the ops server.
package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Health is used by process supervisors to verify that the server is
// running. It returns a plain "ok" with a 200 status.
func Health(c echo.Context) error {
	return c.String(http.StatusOK, "ok")
}
