package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/middleware"

	"github.com/gin-gonic/gin"
)

const dateLayout = "2006-01-02"

// UserDetails returns the profile of the session owner. The session
// arrives entirely in request headers; no credentials are needed.
func (h *Handler) UserDetails(c *gin.Context) {
	h.withDriver(c, func(ctx context.Context, driver *compass.Driver) (any, error) {
		return driver.GetUserDetails(ctx)
	})
}

// CalendarEvents returns raw events for the requested date range.
// startDate defaults to today, endDate to startDate.
func (h *Handler) CalendarEvents(c *gin.Context) {
	start, end, err := dateRange(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	h.withDriver(c, func(ctx context.Context, driver *compass.Driver) (any, error) {
		return driver.GetCalendarEvents(ctx, start, end)
	})
}

// withDriver runs one operation against a request-scoped driver:
// construct, adopt the request's session token, operate, and always
// close before responding. The deferred close also covers the
// cancellation path.
func (h *Handler) withDriver(c *gin.Context, op func(context.Context, *compass.Driver) (any, error)) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	driver, err := compass.NewDriver(ctx, h.browsers, middleware.BaseURL(c))
	if err != nil {
		writeError(c, err)
		return
	}
	defer func() { _ = driver.Close() }()

	if err := driver.LoadFromToken(ctx, middleware.Session(c)); err != nil {
		writeError(c, err)
		return
	}

	result, err := op(ctx, driver)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func dateRange(c *gin.Context) (time.Time, time.Time, error) {
	start := time.Now()
	if raw := c.Query("startDate"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid startDate %q, want YYYY-MM-DD", raw)
		}
		start = parsed
	}

	var end time.Time
	if raw := c.Query("endDate"); raw != "" {
		parsed, err := time.Parse(dateLayout, raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid endDate %q, want YYYY-MM-DD", raw)
		}
		end = parsed
	}

	return start, end, nil
}
