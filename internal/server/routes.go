package server

import (
	"net/http"
	"time"

	"github.com/danmuck/mpdctl/internal/auth"
	"github.com/danmuck/mpdctl/internal/observability"
	"github.com/gin-gonic/gin"
)

func (s *Server) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.started).Truncate(time.Second).String(),
			"service": "mpdctl",
			"version": s.cfg.Version,
		})
	})

	guarded := s.router.Group("/")
	if s.cfg.Token != "" {
		guarded.Use(auth.Middleware(auth.StaticToken{Token: s.cfg.Token}))
	}

	guarded.GET("/status", func(c *gin.Context) {
		snap := s.source.Snapshot()
		if snap.UpdatedAt.IsZero() {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no player state yet"})
			return
		}
		c.JSON(http.StatusOK, snap)
	})

	guarded.GET("/metrics", gin.WrapH(observability.Handler()))
}
