package client

import (
	"encoding/json"
	"fmt"
)

// APIError represents a structured error response from the QueryHawk API.
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"request_id,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.RequestID != "" {
		return fmt.Sprintf("queryhawk: %d %s: %s (request_id=%s)", e.StatusCode, e.Code, e.Message, e.RequestID)
	}
	return fmt.Sprintf("queryhawk: %d %s: %s", e.StatusCode, e.Code, e.Message)
}

// IsValidation returns true if the server rejected the request's input.
func IsValidation(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.Code == "invalid_request" || e.Code == "validation_error"
	}
	return false
}

// IsEnvironment returns true if the monitoring environment is not ready
// (missing network, exhausted ports, unreachable database). Retrying without
// operator intervention will not help.
func IsEnvironment(err error) bool {
	if e, ok := err.(*APIError); ok {
		return e.Code == "environment_error" || e.Code == "provision_failed"
	}
	return false
}

// parseAPIError attempts to decode a JSON error body; falls back to raw text.
func parseAPIError(statusCode int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: statusCode}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = "unknown"
		apiErr.Message = string(body)
	}
	return apiErr
}
