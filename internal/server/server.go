// Package server exposes a running monitor over HTTP: health, the latest
// player snapshot and Prometheus metrics.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/danmuck/mpdctl/internal/monitor"
	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// SnapshotSource is what the status route reads from; *monitor.Service
// satisfies it.
type SnapshotSource interface {
	Snapshot() monitor.Snapshot
}

type Config struct {
	Addr         string
	AllowOrigins []string
	Version      string
	// Token, when set, is required as a bearer token on every route except
	// /health.
	Token string
}

// Server is the HTTP surface of "mpdctl watch".
type Server struct {
	cfg     Config
	source  SnapshotSource
	router  *gin.Engine
	started time.Time
}

func New(cfg Config, source SnapshotSource) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		cfg:     cfg,
		source:  source,
		router:  gin.New(),
		started: time.Now(),
	}
	s.router.Use(gin.Recovery())
	s.router.Use(observability.RequestLogger())
	s.router.Use(observability.RequestMetricsMiddleware())
	if len(cfg.AllowOrigins) > 0 {
		headers := []string{"Origin", "Content-Type"}
		if cfg.Token != "" {
			headers = append(headers, "Authorization")
		}
		s.router.Use(cors.New(cors.Config{
			AllowOrigins: cfg.AllowOrigins,
			AllowMethods: []string{"GET"},
			AllowHeaders: headers,
			MaxAge:       12 * time.Hour,
		}))
	}
	s.registerRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              strings.TrimSpace(s.cfg.Addr),
		Handler:           s.router,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", srv.Addr).Msg("server.Server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
