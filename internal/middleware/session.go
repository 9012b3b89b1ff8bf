package middleware

import (
	"net/http"

	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/session"

	"github.com/gin-gonic/gin"
)

const (
	baseURLKey = "relayBaseURL"
	sessionKey = "relaySession"
)

// RequireRelaySession validates the self-contained inputs of a
// stateless relay request: an upstream base URL and a non-empty
// session token. Both checks run before any upstream resource is
// allocated, so a defective request costs nothing downstream.
func RequireRelaySession() gin.HandlerFunc {
	return func(c *gin.Context) {
		baseURL := c.GetHeader(session.BaseURLHeader)
		if baseURL == "" {
			baseURL = c.Query("baseUrl")
		}
		if baseURL == "" {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": compass.ErrMissingBaseURL.Error(),
			})
			return
		}

		sess, err := session.Decode(c.Request.Header)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{
				"error": err.Error(),
			})
			return
		}

		c.Set(baseURLKey, baseURL)
		c.Set(sessionKey, sess)
		c.Next()
	}
}

// BaseURL returns the upstream base URL validated by RequireRelaySession.
func BaseURL(c *gin.Context) string {
	return c.GetString(baseURLKey)
}

// Session returns the session token decoded by RequireRelaySession.
func Session(c *gin.Context) session.Session {
	s, _ := c.Get(sessionKey)
	sess, _ := s.(session.Session)
	return sess
}
