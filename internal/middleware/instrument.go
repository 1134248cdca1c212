// Package middleware provides HTTP middleware for the queryhawk server.
package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
)

// Instrument records HTTP request duration and count into the registry.
func Instrument(reg *metrics.Registry, log *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		duration := time.Since(start).Seconds()

		path := c.FullPath() // route pattern, not actual path (avoids cardinality explosion)
		if path == "" {
			path = "unknown"
		}

		labels := map[string]string{
			"method": c.Request.Method,
			"path":   path,
			"status": strconv.Itoa(c.Writer.Status()),
		}

		if err := reg.Observe(metrics.HTTPRequestDuration, labels, duration); err != nil {
			log.WithError(err).Error("recording request duration failed")
		}

		if err := reg.Inc(metrics.HTTPRequestsTotal, labels); err != nil {
			log.WithError(err).Error("recording request count failed")
		}
	}
}
