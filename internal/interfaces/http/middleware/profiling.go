package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/infinity-9427/invoicing/internal/infrastructure/telemetry"
)

// Profiling label keys
const (
	ProfilingLabelMethod   = "method"
	ProfilingLabelRoute    = "route"
	ProfilingLabelResource = "resource"
)

// Profiling attaches pyroscope labels (method, route, resource) to the
// request so CPU samples can be split per endpoint
func Profiling(enabled bool) gin.HandlerFunc {
	if !enabled {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" || route == "/health" {
			c.Next()
			return
		}
		labels := map[string]string{
			ProfilingLabelMethod:   c.Request.Method,
			ProfilingLabelRoute:    route,
			ProfilingLabelResource: resourceFromRoute(route),
		}
		telemetry.WithProfilingLabels(c.Request.Context(), labels, func(ctx context.Context) {
			c.Request = c.Request.WithContext(ctx)
			c.Next()
		})
	}
}

// resourceFromRoute returns the first segment after the api prefix:
// "/api/invoices/:id/pdf/download" -> "invoices"
func resourceFromRoute(route string) string {
	for _, part := range strings.Split(strings.Trim(route, "/"), "/") {
		if part == "" || part == "api" || strings.HasPrefix(part, ":") {
			continue
		}
		if len(part) == 2 && part[0] == 'v' && part[1] >= '0' && part[1] <= '9' {
			continue
		}
		return part
	}
	return ""
}
