package exporter

import (
	"errors"
	"fmt"
)

// Environment errors are fatal for the triggering call and never retried.
var (
	// ErrEnvironmentNotReady indicates the shared docker network the
	// exporters attach to does not exist.
	ErrEnvironmentNotReady = errors.New("exporter environment not ready")

	// ErrPortInUse indicates an explicitly requested host port is already
	// allocated to another exporter.
	ErrPortInUse = errors.New("requested port already in use")

	// ErrInvalidUserID indicates a user ID that cannot be used to derive
	// container and discovery-file names.
	ErrInvalidUserID = errors.New("user id must contain only letters, digits, '-' and '_'")
)

// PortExhaustionError indicates the configured host port range is fully
// occupied.
type PortExhaustionError struct {
	Start, End int
}

func (e *PortExhaustionError) Error() string {
	return fmt.Sprintf("no free port in range %d-%d", e.Start, e.End)
}

// PermissionError indicates the discovery target directory is not writable.
type PermissionError struct {
	Dir string
	Err error
}

func (e *PermissionError) Error() string {
	return fmt.Sprintf("discovery directory %q is not writable: %v", e.Dir, e.Err)
}

func (e *PermissionError) Unwrap() error { return e.Err }

// ProvisionError wraps a fatal failure while creating or starting the
// exporter container.
type ProvisionError struct {
	Stage string
	Err   error
}

func (e *ProvisionError) Error() string {
	return fmt.Sprintf("provisioning exporter (%s): %v", e.Stage, e.Err)
}

func (e *ProvisionError) Unwrap() error { return e.Err }
