package exporter

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DiscoveryRecord declares where the collector can scrape one exporter, in
// the Prometheus file_sd structure.
type DiscoveryRecord struct {
	Targets []string          `json:"targets"`
	Labels  map[string]string `json:"labels"`
}

func discoveryPath(dir, userID string) string {
	return filepath.Join(dir, userID+".json")
}

// writeDiscoveryFile atomically publishes the discovery record for userID.
// The directory is probed for writability first so a misconfigured volume
// mount fails with a descriptive PermissionError instead of a generic I/O
// error halfway through.
func writeDiscoveryFile(dir, userID string, rec DiscoveryRecord) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return &PermissionError{Dir: dir, Err: err}
	}

	probe, err := os.CreateTemp(dir, ".probe-*")
	if err != nil {
		return &PermissionError{Dir: dir, Err: err}
	}
	probe.Close()
	os.Remove(probe.Name())

	// file_sd expects a list of records.
	data, err := json.MarshalIndent([]DiscoveryRecord{rec}, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding discovery record: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".target-*")
	if err != nil {
		return &PermissionError{Dir: dir, Err: err}
	}

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())

		return fmt.Errorf("writing discovery record: %w", err)
	}

	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("writing discovery record: %w", err)
	}

	if err := os.Rename(tmp.Name(), discoveryPath(dir, userID)); err != nil {
		os.Remove(tmp.Name())

		return fmt.Errorf("publishing discovery record: %w", err)
	}

	return nil
}

// removeDiscoveryFile deletes the record for userID. Already absent is
// success.
func removeDiscoveryFile(dir, userID string) error {
	err := os.Remove(discoveryPath(dir, userID))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("removing discovery record: %w", err)
	}

	return nil
}
