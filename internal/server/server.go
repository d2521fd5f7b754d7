// Package server exposes the ingestion and admin JSON APIs over HTTP.
package server

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/errsight/errsight/internal/ingest"
	"github.com/errsight/errsight/internal/store"
)

// StartOpts holds configuration for the API server.
type StartOpts struct {
	Service  *ingest.Service
	Projects *store.Projects
	Logs     *store.Logs

	// AdminToken guards the admin surface. Empty means open, for
	// first-run bootstrapping.
	AdminToken string

	Addr string
	Out  io.Writer
}

// Start launches the HTTP server. It blocks until ctx is cancelled,
// then shuts down gracefully.
func Start(ctx context.Context, opts StartOpts) error {
	if opts.Service == nil || opts.Projects == nil || opts.Logs == nil {
		return fmt.Errorf("server: service and stores are required")
	}
	if opts.Addr == "" {
		opts.Addr = ":8080"
	}

	gin.SetMode(gin.ReleaseMode)
	router := newRouter(opts)

	srv := &http.Server{
		Addr:    opts.Addr,
		Handler: router,
	}

	// Graceful shutdown on context cancellation.
	go func() {
		<-ctx.Done()
		srv.Shutdown(context.Background())
	}()

	if opts.Out != nil {
		fmt.Fprintf(opts.Out, "Errsight API listening on %s\n", opts.Addr)
	}

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: %w", err)
	}
	return nil
}

// newRouter builds the gin engine with all routes registered. Split out
// so tests can drive it with httptest.
func newRouter(opts StartOpts) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	registerRoutes(router, opts)
	return router
}
