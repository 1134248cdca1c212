// Package pgurl validates and masks PostgreSQL connection strings.
//
// Connection strings carry credentials, so every log line or response that
// includes one must go through Mask first.
package pgurl

import (
	"errors"
	"fmt"
	"net/url"
	"regexp"
)

// Sentinel errors for connection-string validation.
var (
	ErrEmptyURL      = errors.New("connection string is required")
	ErrInvalidURL    = errors.New("invalid connection string")
	ErrInvalidScheme = errors.New("connection string scheme must be postgres:// or postgresql://")
	ErrMissingHost   = errors.New("connection string must include a host")
)

// maskPattern matches the password portion of a userinfo block for strings
// that do not survive url.Parse.
var maskPattern = regexp.MustCompile(`:[^:@/]+@`)

// Validate checks that raw is a syntactically valid PostgreSQL URL.
// It never dials the database.
func Validate(raw string) error {
	if raw == "" {
		return ErrEmptyURL
	}

	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "postgres" && u.Scheme != "postgresql" {
		return ErrInvalidScheme
	}

	if u.Hostname() == "" {
		return ErrMissingHost
	}

	return nil
}

// Mask returns raw with any password replaced by a fixed placeholder.
// Safe to call on malformed input; it falls back to a regexp rewrite.
func Mask(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return maskPattern.ReplaceAllString(raw, ":****@")
	}

	if _, hasPassword := u.User.Password(); hasPassword {
		u.User = url.UserPassword(u.User.Username(), "****")

		return u.String()
	}

	return raw
}
