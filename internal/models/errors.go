package models

import "errors"

// Sentinel errors for request validation.
var (
	ErrMissingUserID   = errors.New("userId is required")
	ErrMissingURI      = errors.New("uri string is required")
	ErrMissingQuery    = errors.New("query is required")
	ErrMissingDatabase = errors.New("databaseUrl is required")
)
