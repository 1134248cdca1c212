package api

import (
	"context"

	"github.com/queryhawk/queryhawk/internal/models"
)

// ExporterManager defines the exporter lifecycle operations used by
// ExporterHandler.
type ExporterManager interface {
	Provision(ctx context.Context, userID, connectionURI string, preferredPort int) (*models.MonitoredTarget, error)
	Cleanup(ctx context.Context, userID string) error
	ActiveCount() int
}

// PollerSupervisor defines the sampling-loop operations used by the
// monitoring and exporter handlers.
type PollerSupervisor interface {
	Start(ctx context.Context, userID, connectionURI string) error
	Stop(userID string)
	Running(userID string) bool
}

// PlanRunner defines the query-plan analysis operation used by QueryHandler.
type PlanRunner interface {
	Run(ctx context.Context, connectionURI, query string) (*models.QueryPlanMetrics, error)
}

// QueryMetricsStore persists analyzed plan records. Persistence lives outside
// this service; implementations forward to wherever the dashboard keeps its
// history.
type QueryMetricsStore interface {
	SaveQueryMetrics(ctx context.Context, rec *models.QueryPlanMetrics) error
}
