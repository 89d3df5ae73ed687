package web

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthTimeout = 3 * time.Second

// Pinger reports whether the upstream API answers.
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthChecker reports whether preference storage is usable.
type HealthChecker interface {
	IsHealthy(ctx context.Context) bool
}

type healthResponse struct {
	Status       string `json:"status"`
	Upstream     string `json:"upstream"`
	Storage      string `json:"storage"`
	CacheEntries int    `json:"cache_entries"`
}

// health always answers 200 while the process is serving; the body reports
// which dependency is degraded.
func (s *Server) health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	resp := healthResponse{Status: "ok", Upstream: "ok", Storage: "ok", CacheEntries: s.market.Cache().Len()}

	if s.upstream != nil {
		if err := s.upstream.Ping(ctx); err != nil {
			resp.Upstream = "unreachable"
			resp.Status = "degraded"
		}
	}
	if s.storage != nil && !s.storage.IsHealthy(ctx) {
		resp.Storage = "unhealthy"
		resp.Status = "degraded"
	}

	c.JSON(http.StatusOK, resp)
}
