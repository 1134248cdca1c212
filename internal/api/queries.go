package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/pgurl"
	"github.com/queryhawk/queryhawk/internal/queryplan"
)

// QueryHandler serves the ad-hoc query analysis endpoint.
type QueryHandler struct {
	runner PlanRunner
	store  QueryMetricsStore
	log    *logrus.Logger
}

// NewQueryHandler creates a QueryHandler with the given dependencies.
func NewQueryHandler(runner PlanRunner, store QueryMetricsStore, log *logrus.Logger) *QueryHandler {
	return &QueryHandler{runner: runner, store: store, log: log}
}

// Analyze handles POST /api/v1/queries/metrics. The query runs on the
// user-supplied database; the extracted record is handed to the metrics
// store only after extraction succeeds, and a store failure never fails the
// request.
func (h *QueryHandler) Analyze(c *gin.Context) {
	var req models.QueryMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if err := req.Validate(); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	rec, err := h.runner.Run(c.Request.Context(), req.URIString, req.Query)
	if err != nil {
		if errors.Is(err, queryplan.ErrNoPlanData) {
			respondError(c, http.StatusUnprocessableEntity, ErrCodeValidationError, err.Error())

			return
		}

		h.log.WithError(err).WithField("database", pgurl.Mask(req.URIString)).Error("query analysis failed")
		respondError(c, http.StatusBadGateway, ErrCodeEnvironmentError, friendlyConnectError(err))

		return
	}

	if err := h.store.SaveQueryMetrics(c.Request.Context(), rec); err != nil {
		h.log.WithError(err).Warn("persisting query metrics failed")
	}

	c.JSON(http.StatusOK, rec)
}
