package middleware

import (
	"context"
	"strings"

	"github.com/erp/reception/internal/infrastructure/telemetry"
	"github.com/gin-gonic/gin"
)

// ProfilingLabels tags the CPU samples of each request with its route
// pattern and method. Paths under skipPrefixes, such as /health, are left
// unlabelled. With enabled false it is a no-op.
func ProfilingLabels(enabled bool, skipPrefixes ...string) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		path := c.Request.URL.Path
		for _, p := range skipPrefixes {
			if strings.HasPrefix(path, p) {
				c.Next()
				return
			}
		}
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		telemetry.WithProfilingLabels(c.Request.Context(), func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		}, "route", route, "method", c.Request.Method)
	}
}
