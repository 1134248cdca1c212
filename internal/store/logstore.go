// Package store holds implementations of the query-metrics persistence
// boundary. The dashboard's history database is a separate system; this
// package only defines how records leave the process.
package store

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/models"
)

// LogStore records analyzed plans to the structured log. It stands in for a
// real history backend in deployments that have none configured.
type LogStore struct {
	log *logrus.Logger
}

// NewLogStore creates a LogStore.
func NewLogStore(log *logrus.Logger) *LogStore {
	return &LogStore{log: log}
}

// SaveQueryMetrics logs the record. It never fails.
func (s *LogStore) SaveQueryMetrics(_ context.Context, rec *models.QueryPlanMetrics) error {
	s.log.WithFields(logrus.Fields{
		"execution_ms":    rec.ExecutionTimeMs,
		"planning_ms":     rec.PlanningTimeMs,
		"rows":            rec.RowsReturned,
		"total_cost":      rec.TotalCost,
		"cache_hit_ratio": rec.CacheHitRatioPct,
	}).Info("query metrics recorded")

	return nil
}
