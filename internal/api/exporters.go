package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/exporter"
	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// ExporterHandler serves the per-user exporter lifecycle endpoints.
type ExporterHandler struct {
	exporters ExporterManager
	pollers   PollerSupervisor
	log       *logrus.Logger
}

// NewExporterHandler creates an ExporterHandler with the given dependencies.
func NewExporterHandler(exporters ExporterManager, pollers PollerSupervisor, log *logrus.Logger) *ExporterHandler {
	return &ExporterHandler{exporters: exporters, pollers: pollers, log: log}
}

// Start handles POST /api/v1/exporters/start. Provisioning an exporter also
// restarts the user's sampling loop against the new database, so the loop's
// labels never drift from the exporter's target.
func (h *ExporterHandler) Start(c *gin.Context) {
	var req models.StartExporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	target, err := h.exporters.Provision(c.Request.Context(), req.UserID, req.URIString, req.Port)
	if err != nil {
		h.respondProvisionError(c, req.UserID, err)

		return
	}

	h.pollers.Stop(req.UserID)

	if err := h.pollers.Start(c.Request.Context(), req.UserID, req.URIString); err != nil {
		// The exporter is up and scraping; direct polling is a bonus layer.
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  req.UserID,
			"database": pgurl.Mask(req.URIString),
		}).Warn("poller restart after provisioning failed")
	}

	c.JSON(http.StatusCreated, target)
}

// Stop handles POST /api/v1/exporters/stop. Stopping a user that was never
// started is success.
func (h *ExporterHandler) Stop(c *gin.Context) {
	var req models.StopExporterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	h.pollers.Stop(req.UserID)

	if err := h.exporters.Cleanup(c.Request.Context(), req.UserID); err != nil {
		if errors.Is(err, exporter.ErrInvalidUserID) {
			respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

			return
		}

		h.log.WithError(err).WithField("user_id", req.UserID).Error("exporter cleanup failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "cleaning up exporter failed")

		return
	}

	c.JSON(http.StatusOK, gin.H{"stopped": true, "userId": req.UserID})
}

// respondProvisionError maps provisioning failures onto the error taxonomy:
// bad input is 400, a broken environment is 503 with a specific diagnostic,
// a failed engine interaction is 502.
func (h *ExporterHandler) respondProvisionError(c *gin.Context, userID string, err error) {
	log := h.log.WithError(err).WithField("user_id", userID)

	var (
		exhausted *exporter.PortExhaustionError
		perm      *exporter.PermissionError
		prov      *exporter.ProvisionError
	)

	switch {
	case errors.Is(err, exporter.ErrInvalidUserID):
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())
	case errors.Is(err, exporter.ErrPortInUse):
		respondError(c, http.StatusConflict, ErrCodeValidationError, err.Error())
	case errors.Is(err, exporter.ErrEnvironmentNotReady):
		log.Error("monitoring environment not ready")
		respondError(c, http.StatusServiceUnavailable, ErrCodeEnvironmentError, err.Error())
	case errors.As(err, &exhausted):
		log.Error("exporter port range exhausted")
		respondError(c, http.StatusServiceUnavailable, ErrCodeEnvironmentError, err.Error())
	case errors.As(err, &perm):
		log.Error("discovery directory not writable")
		respondError(c, http.StatusServiceUnavailable, ErrCodeEnvironmentError, err.Error())
	case errors.As(err, &prov):
		log.Error("exporter provisioning failed")
		respondError(c, http.StatusBadGateway, ErrCodeProvisionFailed, err.Error())
	default:
		log.Error("exporter provisioning failed")
		respondError(c, http.StatusInternalServerError, ErrCodeInternalError, "provisioning exporter failed")
	}
}
