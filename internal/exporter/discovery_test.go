package exporter

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestWriteDiscoveryFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	rec := DiscoveryRecord{
		Targets: []string{"localhost:9188"},
		Labels:  map[string]string{"user_id": "u1", "instance": "postgres-exporter-u1"},
	}

	if err := writeDiscoveryFile(dir, "u1", rec); err != nil {
		t.Fatalf("write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "u1.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var recs []DiscoveryRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if len(recs) != 1 || recs[0].Targets[0] != "localhost:9188" {
		t.Fatalf("unexpected content: %+v", recs)
	}
}

func TestWriteDiscoveryFile_OverwriteIsAtomic(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	first := DiscoveryRecord{Targets: []string{"localhost:9188"}}
	second := DiscoveryRecord{Targets: []string{"localhost:9189"}}

	if err := writeDiscoveryFile(dir, "u1", first); err != nil {
		t.Fatalf("first write: %v", err)
	}

	if err := writeDiscoveryFile(dir, "u1", second); err != nil {
		t.Fatalf("second write: %v", err)
	}

	data, err := os.ReadFile(filepath.Join(dir, "u1.json"))
	if err != nil {
		t.Fatalf("read back: %v", err)
	}

	var recs []DiscoveryRecord
	if err := json.Unmarshal(data, &recs); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if recs[0].Targets[0] != "localhost:9189" {
		t.Errorf("got %q, want the replacing record", recs[0].Targets[0])
	}

	// No temp files may survive the rename.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}

	if len(entries) != 1 {
		t.Errorf("expected exactly one file in %s, found %d", dir, len(entries))
	}
}

func TestWriteDiscoveryFile_CreatesDirectory(t *testing.T) {
	t.Parallel()

	dir := filepath.Join(t.TempDir(), "nested", "targets")

	if err := writeDiscoveryFile(dir, "u1", DiscoveryRecord{Targets: []string{"localhost:9188"}}); err != nil {
		t.Fatalf("write into missing directory: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "u1.json")); err != nil {
		t.Fatalf("record not created: %v", err)
	}
}

func TestRemoveDiscoveryFile_AbsentIsSuccess(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := removeDiscoveryFile(dir, "never-written"); err != nil {
		t.Fatalf("remove of absent record should succeed, got %v", err)
	}
}

func TestRemoveDiscoveryFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()

	if err := writeDiscoveryFile(dir, "u1", DiscoveryRecord{Targets: []string{"localhost:9188"}}); err != nil {
		t.Fatalf("write: %v", err)
	}

	if err := removeDiscoveryFile(dir, "u1"); err != nil {
		t.Fatalf("remove: %v", err)
	}

	if _, err := os.Stat(filepath.Join(dir, "u1.json")); !os.IsNotExist(err) {
		t.Error("record still present after removal")
	}
}
