package models

import (
	"fmt"

	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// DefaultUserID names the monitoring session used by the single-user connect
// flow, which predates explicit user IDs.
const DefaultUserID = "default"

// ConnectRequest starts monitoring the database at DatabaseURL. UserID is
// optional and defaults to DefaultUserID.
type ConnectRequest struct {
	DatabaseURL string `json:"databaseUrl"`
	UserID      string `json:"userId"`
}

// Validate checks the request, distinguishing a missing URL from a malformed
// one so the two can be counted separately.
func (r *ConnectRequest) Validate() error {
	if r.DatabaseURL == "" {
		return ErrMissingDatabase
	}

	return pgurl.Validate(r.DatabaseURL)
}

// DisconnectRequest stops the monitoring session for UserID (optional,
// defaults to DefaultUserID).
type DisconnectRequest struct {
	UserID string `json:"userId"`
}

// StartExporterRequest provisions a metrics exporter for one user's database.
// Port of 0 lets the server pick.
type StartExporterRequest struct {
	UserID    string `json:"userId"`
	URIString string `json:"uri_string"`
	Port      int    `json:"port"`
}

// Validate checks required fields and ranges.
func (r *StartExporterRequest) Validate() error {
	if r.UserID == "" {
		return ErrMissingUserID
	}

	if r.URIString == "" {
		return ErrMissingURI
	}

	if err := pgurl.Validate(r.URIString); err != nil {
		return err
	}

	if r.Port != 0 && (r.Port < 1 || r.Port > 65535) {
		return fmt.Errorf("port %d out of range", r.Port)
	}

	return nil
}

// StopExporterRequest tears down the exporter for UserID.
type StopExporterRequest struct {
	UserID string `json:"userId"`
}

// Validate checks required fields.
func (r *StopExporterRequest) Validate() error {
	if r.UserID == "" {
		return ErrMissingUserID
	}

	return nil
}

// QueryMetricsRequest analyzes one query against the database at URIString.
type QueryMetricsRequest struct {
	URIString string `json:"uri_string"`
	Query     string `json:"query"`
}

// Validate checks required fields.
func (r *QueryMetricsRequest) Validate() error {
	if r.URIString == "" {
		return ErrMissingURI
	}

	if err := pgurl.Validate(r.URIString); err != nil {
		return err
	}

	if r.Query == "" {
		return ErrMissingQuery
	}

	return nil
}
