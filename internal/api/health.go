// Package api provides HTTP handlers for the queryhawk server.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthHandler serves the liveness endpoint.
type HealthHandler struct {
	exporters ExporterManager
	log       *logrus.Logger
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler with the given dependencies.
func NewHealthHandler(exporters ExporterManager, log *logrus.Logger, version string) *HealthHandler {
	return &HealthHandler{
		exporters: exporters,
		log:       log,
		version:   version,
		startTime: time.Now(),
	}
}

// healthResponse is the JSON payload returned by the health endpoint.
type healthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	ActiveExporters int     `json:"active_exporters"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// Liveness handles GET /api/v1/health.
func (h *HealthHandler) Liveness(c *gin.Context) {
	resp := healthResponse{
		Status:        "ok",
		Version:       h.version,
		UptimeSeconds: time.Since(h.startTime).Seconds(),
	}

	if h.exporters != nil {
		resp.ActiveExporters = h.exporters.ActiveCount()
	}

	c.JSON(http.StatusOK, resp)
}
