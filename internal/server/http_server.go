package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	authgin "github.com/pilab-dev/shadow-auth/api/gin"
)

// RouteRegistrar adds a group of routes to the engine.
type RouteRegistrar interface {
	RegisterRoutes(e *gin.Engine)
}

// Options configures the HTTP server.
type Options struct {
	Addr    string
	Release bool
	// Metrics, when set, is served at /metrics.
	Metrics http.Handler
	Routes  []RouteRegistrar
}

// NewRouter builds the gin engine with the shared middleware chain and every route group.
func NewRouter(opts Options) *gin.Engine {
	if opts.Release {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(
		gin.Recovery(),
		authgin.RequestLogger(),
		authgin.SecurityHeadersMiddleware(),
		authgin.CORSMiddleware(),
	)

	for _, r := range opts.Routes {
		r.RegisterRoutes(router)
	}

	if opts.Metrics != nil {
		router.GET("/metrics", gin.WrapH(opts.Metrics))
	}

	return router
}

// NewHTTPServer wraps NewRouter in an http.Server with conservative timeouts.
func NewHTTPServer(opts Options) *http.Server {
	return &http.Server{
		Addr:              opts.Addr,
		Handler:           NewRouter(opts),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
}
