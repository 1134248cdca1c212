package api_test

import (
	"context"

	"github.com/queryhawk/queryhawk/internal/models"
)

// mockExporterManager implements api.ExporterManager for testing.
type mockExporterManager struct {
	provisionFn func(ctx context.Context, userID, connectionURI string, preferredPort int) (*models.MonitoredTarget, error)
	cleanupFn   func(ctx context.Context, userID string) error
	activeFn    func() int
}

func (m *mockExporterManager) Provision(ctx context.Context, userID, connectionURI string, preferredPort int) (*models.MonitoredTarget, error) {
	return m.provisionFn(ctx, userID, connectionURI, preferredPort)
}

func (m *mockExporterManager) Cleanup(ctx context.Context, userID string) error {
	return m.cleanupFn(ctx, userID)
}

func (m *mockExporterManager) ActiveCount() int {
	if m.activeFn == nil {
		return 0
	}

	return m.activeFn()
}

// mockPollerSupervisor implements api.PollerSupervisor for testing.
type mockPollerSupervisor struct {
	startFn func(ctx context.Context, userID, connectionURI string) error
	stopped []string
	started []string
}

func (m *mockPollerSupervisor) Start(ctx context.Context, userID, connectionURI string) error {
	m.started = append(m.started, userID)

	if m.startFn == nil {
		return nil
	}

	return m.startFn(ctx, userID, connectionURI)
}

func (m *mockPollerSupervisor) Stop(userID string) {
	m.stopped = append(m.stopped, userID)
}

func (m *mockPollerSupervisor) Running(userID string) bool {
	return false
}

// mockPlanRunner implements api.PlanRunner for testing.
type mockPlanRunner struct {
	runFn func(ctx context.Context, connectionURI, query string) (*models.QueryPlanMetrics, error)
}

func (m *mockPlanRunner) Run(ctx context.Context, connectionURI, query string) (*models.QueryPlanMetrics, error) {
	return m.runFn(ctx, connectionURI, query)
}

// mockQueryStore implements api.QueryMetricsStore for testing.
type mockQueryStore struct {
	saveFn func(ctx context.Context, rec *models.QueryPlanMetrics) error
	saved  []*models.QueryPlanMetrics
}

func (m *mockQueryStore) SaveQueryMetrics(ctx context.Context, rec *models.QueryPlanMetrics) error {
	m.saved = append(m.saved, rec)

	if m.saveFn == nil {
		return nil
	}

	return m.saveFn(ctx, rec)
}
