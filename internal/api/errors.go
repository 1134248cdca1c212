package api

import (
	"github.com/gin-gonic/gin"

	"github.com/queryhawk/queryhawk/internal/httputil"
)

// Error code constants for standardized API responses. The codes partition
// failures into "fix your input" (invalid_request, validation_error),
// "retry later or call the operator" (environment_error, provision_failed),
// and "defect" (internal_error).
const (
	ErrCodeInvalidRequest   = "invalid_request"
	ErrCodeValidationError  = "validation_error"
	ErrCodeEnvironmentError = "environment_error"
	ErrCodeProvisionFailed  = "provision_failed"
	ErrCodeNotFound         = "not_found"
	ErrCodeInternalError    = "internal_error"
)

// respondError writes a standardized JSON error response, pulling the request
// ID from the Gin context (set by the request ID middleware).
func respondError(c *gin.Context, status int, code, message string) {
	httputil.RespondError(c, status, code, message)
}
