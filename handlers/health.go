package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

var startTime = time.Now()

// ReadinessCheck reports whether one dependency can serve requests.
// A nil Check means the dependency is not configured and counts as ready.
type ReadinessCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// RegisterHealth mounts /health and /ready.
func RegisterHealth(r gin.IRouter, checks ...ReadinessCheck) {
	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "healthy")
	})

	r.GET("/ready", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		ready := true
		deps := map[string]bool{}
		for _, chk := range checks {
			ok := chk.Check == nil || chk.Check(ctx) == nil
			deps[chk.Name] = ok
			if !ok {
				ready = false
			}
		}

		status, code := "ready", http.StatusOK
		if !ready {
			status, code = "not_ready", http.StatusServiceUnavailable
		}
		c.JSON(code, gin.H{"status": status, "deps": deps, "uptime": time.Since(startTime).String()})
	})
}
