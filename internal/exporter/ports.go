package exporter

import (
	"context"
	"fmt"
	"sync"

	"github.com/docker/docker/api/types"
)

// PortAllocator owns the set of host ports handed to exporter containers.
// It is reconciled against the live container list once at startup; after
// that, allocation is a pure in-memory operation.
type PortAllocator struct {
	start, end int

	mu   sync.Mutex
	used map[int]bool
}

// NewPortAllocator creates an allocator for the inclusive range [start, end].
func NewPortAllocator(start, end int) *PortAllocator {
	return &PortAllocator{
		start: start,
		end:   end,
		used:  make(map[int]bool),
	}
}

// Reconcile marks every publicly bound port of a live container as used.
// Called once at startup so exporters surviving a server restart keep their
// ports reserved.
func (a *PortAllocator) Reconcile(ctx context.Context, docker DockerAPI) error {
	containers, err := docker.ContainerList(ctx, types.ContainerListOptions{All: true})
	if err != nil {
		return fmt.Errorf("listing containers: %w", err)
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	for _, c := range containers {
		for _, p := range c.Ports {
			if p.PublicPort == 0 {
				continue
			}

			port := int(p.PublicPort)
			if port >= a.start && port <= a.end {
				a.used[port] = true
			}
		}
	}

	return nil
}

// Allocate reserves preferred if it is non-zero and free, or the first free
// port in the range otherwise.
func (a *PortAllocator) Allocate(preferred int) (int, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if preferred != 0 {
		if a.used[preferred] {
			return 0, fmt.Errorf("%w: %d", ErrPortInUse, preferred)
		}

		a.used[preferred] = true

		return preferred, nil
	}

	for port := a.start; port <= a.end; port++ {
		if !a.used[port] {
			a.used[port] = true

			return port, nil
		}
	}

	return 0, &PortExhaustionError{Start: a.start, End: a.end}
}

// Release frees a previously allocated port. Unknown ports are ignored.
func (a *PortAllocator) Release(port int) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.used, port)
}

// Used reports whether port is currently allocated.
func (a *PortAllocator) Used(port int) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	return a.used[port]
}
