package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// MonitoringHandler serves the connect/disconnect endpoints that drive the
// direct-polling monitoring session.
type MonitoringHandler struct {
	pollers PollerSupervisor
	reg     *metrics.Registry
	log     *logrus.Logger
}

// NewMonitoringHandler creates a MonitoringHandler with the given
// dependencies.
func NewMonitoringHandler(pollers PollerSupervisor, reg *metrics.Registry, log *logrus.Logger) *MonitoringHandler {
	return &MonitoringHandler{pollers: pollers, reg: reg, log: log}
}

// connectResponse is the JSON payload returned on a successful connect.
type connectResponse struct {
	Connected bool   `json:"connected"`
	UserID    string `json:"userId"`
	Database  string `json:"database"` // credential-masked
}

// Connect handles POST /api/v1/monitoring/connect. Validation happens before
// any resource allocation; a malformed URL never reaches the database.
func (h *MonitoringHandler) Connect(c *gin.Context) {
	var req models.ConnectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, "invalid request body")

		return
	}

	if req.DatabaseURL == "" {
		h.countAttempt(metrics.AttemptMissingURL)
		respondError(c, http.StatusBadRequest, ErrCodeInvalidRequest, models.ErrMissingDatabase.Error())

		return
	}

	if err := pgurl.Validate(req.DatabaseURL); err != nil {
		h.countAttempt(metrics.AttemptInvalidURL)
		respondError(c, http.StatusBadRequest, ErrCodeValidationError, err.Error())

		return
	}

	userID := req.UserID
	if userID == "" {
		userID = models.DefaultUserID
	}

	// Reconnecting replaces any existing session for this user.
	h.pollers.Stop(userID)

	// Start performs a bounded connection test before scheduling the loop, so
	// an unreachable database fails here rather than silently in background.
	if err := h.pollers.Start(c.Request.Context(), userID, req.DatabaseURL); err != nil {
		h.countAttempt(metrics.AttemptFailed)
		h.log.WithError(err).WithFields(logrus.Fields{
			"user_id":  userID,
			"database": pgurl.Mask(req.DatabaseURL),
		}).Error("database connection failed")
		respondError(c, http.StatusBadGateway, ErrCodeEnvironmentError, friendlyConnectError(err))

		return
	}

	h.countAttempt(metrics.AttemptSuccess)
	h.log.WithFields(logrus.Fields{
		"user_id":  userID,
		"database": pgurl.Mask(req.DatabaseURL),
	}).Info("monitoring connected")

	c.JSON(http.StatusOK, connectResponse{
		Connected: true,
		UserID:    userID,
		Database:  pgurl.Mask(req.DatabaseURL),
	})
}

// Disconnect handles POST /api/v1/monitoring/disconnect. Disconnecting a
// session that was never connected is success.
func (h *MonitoringHandler) Disconnect(c *gin.Context) {
	var req models.DisconnectRequest
	// An empty body means the default session.
	_ = c.ShouldBindJSON(&req)

	userID := req.UserID
	if userID == "" {
		userID = models.DefaultUserID
	}

	h.pollers.Stop(userID)

	c.JSON(http.StatusOK, gin.H{"disconnected": true, "userId": userID})
}

func (h *MonitoringHandler) countAttempt(status string) {
	if err := h.reg.Inc(metrics.ConnectionAttempts, map[string]string{"status": status}); err != nil {
		h.log.WithError(err).Error("recording connection attempt failed")
	}
}

// friendlyConnectError translates common connection failures into messages a
// dashboard user can act on. The raw error may embed the connection string,
// so it is never echoed back.
func friendlyConnectError(err error) string {
	if err == nil {
		return ""
	}

	msg := strings.ToLower(err.Error())

	switch {
	case strings.Contains(msg, "password authentication failed"):
		return "authentication failed: check the username and password in your connection URL"
	case strings.Contains(msg, "certificate") || strings.Contains(msg, "ssl") || strings.Contains(msg, "tls"):
		return "TLS negotiation failed: check the sslmode parameter of your connection URL"
	case strings.Contains(msg, "connection refused"):
		return "connection refused: check that the database is running and the host and port are correct"
	case strings.Contains(msg, "no such host"):
		return "host not found: check the hostname in your connection URL"
	case errors.Is(err, context.DeadlineExceeded) || strings.Contains(msg, "timeout"):
		return "connection timed out: the database did not respond"
	case strings.Contains(msg, "does not exist"):
		return "database does not exist: check the database name in your connection URL"
	default:
		return "could not connect to the database"
	}
}
