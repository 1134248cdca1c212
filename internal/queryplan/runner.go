package queryplan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/sirupsen/logrus"

	"github.com/queryhawk/queryhawk/internal/metrics"
	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/pgurl"
)

// explainPrefix requests the full instrumented JSON plan for one execution.
const explainPrefix = "EXPLAIN (ANALYZE true, COSTS true, SETTINGS true, BUFFERS true, WAL true, SUMMARY true, FORMAT JSON) "

// Runner executes EXPLAIN ANALYZE against user-supplied databases and feeds
// the outcome into the metrics registry.
type Runner struct {
	log            *logrus.Logger
	reg            *metrics.Registry
	connectTimeout time.Duration
}

// NewRunner creates a Runner.
func NewRunner(log *logrus.Logger, reg *metrics.Registry, connectTimeout time.Duration) *Runner {
	return &Runner{log: log, reg: reg, connectTimeout: connectTimeout}
}

// Run analyzes one query on the database at connectionURI and returns the
// normalized plan metrics. The query actually executes on the user's
// database; that is the point of the tool.
func (r *Runner) Run(ctx context.Context, connectionURI, query string) (*models.QueryPlanMetrics, error) {
	dialCtx, cancel := context.WithTimeout(ctx, r.connectTimeout)
	defer cancel()

	conn, err := pgx.Connect(dialCtx, connectionURI)
	if err != nil {
		r.countError(metrics.PlanErrorConnect)

		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	defer func() {
		closeCtx, closeCancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer closeCancel()
		_ = conn.Close(closeCtx)
	}()

	var raw []byte
	if err := conn.QueryRow(ctx, explainPrefix+query).Scan(&raw); err != nil {
		r.countError(metrics.PlanErrorExecute)

		return nil, fmt.Errorf("running explain: %w", err)
	}

	return r.record(connectionURI, raw)
}

// record normalizes the raw plan document and accounts for the outcome in
// the registry. A document without a top-level plan node counts exactly one
// no_plan_data error.
func (r *Runner) record(connectionURI string, raw []byte) (*models.QueryPlanMetrics, error) {
	rec, err := Extract(raw)
	if err != nil {
		if errors.Is(err, ErrNoPlanData) {
			r.countError(metrics.PlanErrorNoPlanData)
		} else {
			r.countError(metrics.PlanErrorExecute)
		}

		return nil, err
	}

	if obsErr := r.reg.Observe(metrics.QueryPlanExecutionMs, nil, rec.ExecutionTimeMs); obsErr != nil {
		r.log.WithError(obsErr).Error("recording plan execution time failed")
	}

	r.log.WithFields(logrus.Fields{
		"database":     pgurl.Mask(connectionURI),
		"execution_ms": rec.ExecutionTimeMs,
		"total_cost":   rec.TotalCost,
	}).Info("query plan analyzed")

	return rec, nil
}

func (r *Runner) countError(reason string) {
	if err := r.reg.Inc(metrics.QueryPlanErrors, map[string]string{"reason": reason}); err != nil {
		r.log.WithError(err).Error("recording plan error failed")
	}
}
