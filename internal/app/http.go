package app

import (
	"github.com/jkairys/bellbird/internal/compass"
	"github.com/jkairys/bellbird/internal/config"
	"github.com/jkairys/bellbird/internal/relay/handler"

	"github.com/gin-gonic/gin"
)

func setupHTTP(cfg config.Config) (*gin.Engine, error) {

	// ----------------------------
	// Dependencies
	// ----------------------------

	browsers := compass.NewHTTPFactory(cfg.UpstreamTimeout)

	relayHandler := handler.New(browsers, cfg.RequestTimeout)

	// ----------------------------
	// Router
	// ----------------------------

	router := gin.New()
	router.Use(gin.Recovery())

	relayHandler.RegisterRoutes(router)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	return router, nil
}
