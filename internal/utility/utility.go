// Package utility holds small echo helpers shared by the HTTP handlers.
package utility

import (
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Logger returns the request-scoped logger set by the logging middleware,
// falling back to the global logger.
func Logger(c echo.Context) *zerolog.Logger {
	if l, ok := c.Get("logger").(*zerolog.Logger); ok && l != nil {
		return l
	}
	return &log.Logger
}

// RequestID returns the id assigned by the logging middleware, if any.
func RequestID(c echo.Context) string {
	id, _ := c.Get("request_id").(string)
	return id
}
