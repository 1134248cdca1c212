package exporter_test

import (
	"context"
	"errors"
	"testing"

	"github.com/queryhawk/queryhawk/internal/exporter"
)

func TestPortAllocator_PreferredPort(t *testing.T) {
	t.Parallel()

	alloc := exporter.NewPortAllocator(9187, 9999)

	port, err := alloc.Allocate(9300)
	if err != nil {
		t.Fatalf("allocate preferred: %v", err)
	}

	if port != 9300 {
		t.Fatalf("got port %d, want 9300", port)
	}

	if _, err := alloc.Allocate(9300); !errors.Is(err, exporter.ErrPortInUse) {
		t.Fatalf("expected ErrPortInUse on double allocation, got %v", err)
	}
}

func TestPortAllocator_FirstFreeScan(t *testing.T) {
	t.Parallel()

	alloc := exporter.NewPortAllocator(9187, 9189)

	if _, err := alloc.Allocate(9187); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	port, err := alloc.Allocate(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if port != 9188 {
		t.Errorf("got port %d, want 9188", port)
	}
}

func TestPortAllocator_Exhaustion(t *testing.T) {
	t.Parallel()

	alloc := exporter.NewPortAllocator(9187, 9188)

	for i := 0; i < 2; i++ {
		if _, err := alloc.Allocate(0); err != nil {
			t.Fatalf("allocate %d: %v", i, err)
		}
	}

	_, err := alloc.Allocate(0)

	var exhausted *exporter.PortExhaustionError
	if !errors.As(err, &exhausted) {
		t.Fatalf("expected PortExhaustionError, got %v", err)
	}

	if exhausted.Start != 9187 || exhausted.End != 9188 {
		t.Errorf("error carries wrong range: %+v", exhausted)
	}
}

func TestPortAllocator_ReleaseMakesPortReusable(t *testing.T) {
	t.Parallel()

	alloc := exporter.NewPortAllocator(9187, 9187)

	if _, err := alloc.Allocate(9187); err != nil {
		t.Fatalf("allocate: %v", err)
	}

	alloc.Release(9187)

	if alloc.Used(9187) {
		t.Fatal("port still marked used after release")
	}

	if _, err := alloc.Allocate(9187); err != nil {
		t.Fatalf("re-allocate after release: %v", err)
	}
}

func TestPortAllocator_ReleaseUnknownPortIsNoop(t *testing.T) {
	t.Parallel()

	alloc := exporter.NewPortAllocator(9187, 9999)
	alloc.Release(12345)
}

func TestPortAllocator_Reconcile(t *testing.T) {
	t.Parallel()

	docker := newFakeDocker()
	mgr, _ := newManager(t, docker)

	if _, err := mgr.Provision(context.Background(), "u1", testURI, 9188); err != nil {
		t.Fatalf("provision: %v", err)
	}

	// A fresh allocator simulates a restarted server sharing the engine with
	// the surviving exporter.
	alloc := exporter.NewPortAllocator(9187, 9999)
	if err := alloc.Reconcile(context.Background(), docker); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if !alloc.Used(9188) {
		t.Fatal("surviving exporter's port not reserved after reconcile")
	}

	port, err := alloc.Allocate(0)
	if err != nil {
		t.Fatalf("allocate: %v", err)
	}

	if port == 9188 {
		t.Error("reconciled port handed out again")
	}
}

func TestPortAllocator_ReconcileIgnoresOutOfRangePorts(t *testing.T) {
	t.Parallel()

	docker := newFakeDocker()
	docker.containers["other"] = &fakeContainer{id: "ctr-x", name: "other", hostPort: 8080}

	alloc := exporter.NewPortAllocator(9187, 9999)
	if err := alloc.Reconcile(context.Background(), docker); err != nil {
		t.Fatalf("reconcile: %v", err)
	}

	if alloc.Used(8080) {
		t.Error("out-of-range port reserved")
	}
}
