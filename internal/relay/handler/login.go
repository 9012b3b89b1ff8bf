package handler

import (
	"context"
	"net/http"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/logger"
	"github.com/jkairys/bellbird/internal/session"

	"github.com/gin-gonic/gin"
)

type loginRequest struct {
	BaseURL  string `json:"baseUrl" binding:"required"`
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// Login authenticates against the upstream and returns the resulting
// session as x-cookie-* response headers. The body echoes the base URL
// the upstream actually settled on after redirects; callers must use
// that, not the one they supplied, on subsequent requests.
func (h *Handler) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	driver, err := compass.NewDriver(ctx, h.browsers, req.BaseURL)
	if err != nil {
		writeError(c, err)
		return
	}
	defer func() { _ = driver.Close() }()

	creds := compass.Credentials{Username: req.Username, Password: req.Password}
	if err := driver.Login(ctx, creds); err != nil {
		writeError(c, err)
		return
	}

	sess := driver.Session()
	session.Apply(c.Writer.Header(), sess)

	logger.Info("upstream login succeeded", map[string]any{
		"base_url": driver.BaseURL(),
		"user_id":  sess.UserID,
	})

	c.JSON(http.StatusOK, gin.H{
		"baseUrl":         driver.BaseURL(),
		"userId":          sess.UserID,
		"schoolConfigKey": sess.ConfigKey,
	})
}
