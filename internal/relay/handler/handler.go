// Package handler exposes the session driver over a stateless
// request/response boundary. Every request carries its own session via
// x-cookie-* headers; the handler reconstructs a driver, performs one
// operation, and tears the driver down before responding. Nothing is
// held between requests, which trades per-request identifier
// re-extraction latency for freedom from session-affinity and
// expiry-tracking bugs.
package handler

import (
	"errors"
	"net/http"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/logger"
	"github.com/jkairys/bellbird/internal/middleware"
	"github.com/jkairys/bellbird/internal/session"

	"github.com/gin-gonic/gin"
)

type Handler struct {
	browsers compass.BrowserFactory
	timeout  time.Duration
}

func New(browsers compass.BrowserFactory, timeout time.Duration) *Handler {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Handler{
		browsers: browsers,
		timeout:  timeout,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.POST("/login", h.Login)

	relay := r.Group("/")
	relay.Use(middleware.RequireRelaySession())
	relay.GET("/user-details", h.UserDetails)
	relay.GET("/calendar-events", h.CalendarEvents)
}

// writeError maps the driver error taxonomy onto the HTTP surface.
// Driver errors propagate unchanged as {"error": message}; the relay
// never partially responds.
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError

	var authErr *compass.AuthError
	var timeoutErr *compass.TimeoutError
	switch {
	case errors.As(err, &authErr):
		status = http.StatusUnauthorized
	case errors.As(err, &timeoutErr):
		status = http.StatusGatewayTimeout
	case errors.Is(err, session.ErrNoSession),
		errors.Is(err, compass.ErrMissingBaseURL):
		status = http.StatusBadRequest
	case errors.Is(err, compass.ErrIncompleteSession):
		status = http.StatusConflict
	}

	if status == http.StatusInternalServerError {
		logger.Error("relay request failed", map[string]any{
			"path":  c.Request.URL.Path,
			"error": err.Error(),
		})
	}

	c.JSON(status, gin.H{"error": err.Error()})
}
