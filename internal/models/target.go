// Package models defines the domain types shared across queryhawk packages.
package models

// MonitoredTarget describes one user's active monitoring session: the
// database being watched, the exporter container serving its metrics, and
// the host port the collector scrapes.
type MonitoredTarget struct {
	UserID        string `json:"userId"`
	ConnectionURI string `json:"-"` // sensitive; never serialized or logged unmasked
	ExporterPort  int    `json:"port"`
	ContainerRef  string `json:"containerRef"`
	ContainerName string `json:"name"`
}
