// Package rest is the HTTP boundary: it turns requests into (ref, spec) pairs
// for the pipeline and maps pipeline errors to status codes. It owns no
// transform or storage logic.
package rest

import (
	"context"
	"errors"
	"imagio/internal/core/port"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Server wires the gin router around the core services.
type Server struct {
	renderer port.Renderer
	ingestor port.Ingestor
	catalog  port.Catalog
	timeout  time.Duration
	srv      *http.Server
}

func NewServer(renderer port.Renderer, ingestor port.Ingestor, catalog port.Catalog,
	addr string, timeout time.Duration) *Server {
	s := &Server{
		renderer: renderer,
		ingestor: ingestor,
		catalog:  catalog,
		timeout:  timeout,
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(requestLogger(), gin.CustomRecovery(handlePanics()))

	router.GET("/:uuid/:variant", s.handleVariant)
	router.GET("/t/:uuid", s.handleTransform)

	api := router.Group("/api")
	{
		api.GET("/image/:uuid", s.handleGetImage)
		api.GET("/images/:category/:limit/:skip", s.handleListImages)
		api.PUT("/images/:category", s.handleUpload)
		api.DELETE("/image/:uuid", s.handleDelete)
	}

	s.srv = &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Run serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		log.Info().Str("addr", s.srv.Addr).Msg("http server listening")
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("shutting down http server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return s.srv.Shutdown(shutdownCtx)
	}
}
