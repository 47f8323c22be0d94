package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pastebin/pastebin/internal/snippet/repository"
)

// RegisterHealth registers liveness and readiness probes.
// /ready pings every named dependency and answers 503 if any of them fails.
func RegisterHealth(r gin.IRoutes, started time.Time, deps map[string]repository.Pinger) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		status := map[string]bool{}
		for name, p := range deps {
			ok := p != nil && p.Ping(ctx) == nil
			status[name] = ok
			ready = ready && ok
		}

		body := gin.H{"deps": status, "uptime": time.Since(started).Round(time.Second).String()}
		if !ready {
			body["status"] = "not_ready"
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
	})
}
