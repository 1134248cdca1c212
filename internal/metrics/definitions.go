package metrics

import "github.com/prometheus/client_golang/prometheus"

// Metric names used across the application. Names involving pg_stat mirror
// the postgres_exporter naming so dashboards can treat directly-polled and
// exporter-scraped series uniformly.
const (
	ConnectionStatus   = "database_connection_status"
	ConnectionAttempts = "database_connection_attempts_total"
	TransactionTotal   = "pg_stat_database_xact_commit"
	BlocksHit          = "pg_stat_database_blks_hit"
	BlocksRead         = "pg_stat_database_blks_read"
	ActiveConnections  = "database_active_connections"

	QueryPlanExecutionMs = "query_plan_execution_time_ms"
	QueryPlanErrors      = "query_plan_errors_total"

	HTTPRequestDuration = "http_request_duration_seconds"
	HTTPRequestsTotal   = "http_requests_total"
)

// Connection-attempt outcome label values.
const (
	AttemptSuccess    = "success"
	AttemptFailed     = "failed"
	AttemptMissingURL = "failed_missing_url"
	AttemptInvalidURL = "failed_invalid_url"
)

// Query-plan error reason label values.
const (
	PlanErrorNoPlanData = "no_plan_data"
	PlanErrorConnect    = "connect_failed"
	PlanErrorExecute    = "execute_failed"
)

// BaseDefinitions returns every metric the server registers at startup.
func BaseDefinitions() []Definition {
	return []Definition{
		{
			Name:   ConnectionStatus,
			Help:   "Current database connection status (1 for connected, 0 for disconnected)",
			Kind:   KindGauge,
			Labels: []string{"datname"},
		},
		{
			Name:   ConnectionAttempts,
			Help:   "Total number of database connection attempts",
			Kind:   KindCounter,
			Labels: []string{"status"},
		},
		{
			Name:   TransactionTotal,
			Help:   "Committed plus rolled-back transactions for the monitored database",
			Kind:   KindGauge,
			Labels: []string{"datname"},
		},
		{
			Name:   BlocksHit,
			Help:   "Number of heap blocks found in the buffer cache",
			Kind:   KindGauge,
			Labels: []string{"datname"},
		},
		{
			Name:   BlocksRead,
			Help:   "Number of heap blocks read from disk",
			Kind:   KindGauge,
			Labels: []string{"datname"},
		},
		{
			Name:   ActiveConnections,
			Help:   "Number of active sessions on the monitored database",
			Kind:   KindGauge,
			Labels: []string{"datname"},
		},
		{
			Name:    QueryPlanExecutionMs,
			Help:    "Execution time of analyzed query plans in milliseconds",
			Kind:    KindHistogram,
			Labels:  nil,
			Buckets: []float64{1, 5, 10, 50, 100, 500, 1000, 5000, 10000, 30000},
		},
		{
			Name:   QueryPlanErrors,
			Help:   "Total query plan extraction failures by reason",
			Kind:   KindCounter,
			Labels: []string{"reason"},
		},
		{
			Name:    HTTPRequestDuration,
			Help:    "HTTP request duration in seconds",
			Kind:    KindHistogram,
			Labels:  []string{"method", "path", "status"},
			Buckets: prometheus.DefBuckets,
		},
		{
			Name:   HTTPRequestsTotal,
			Help:   "Total HTTP requests",
			Kind:   KindCounter,
			Labels: []string{"method", "path", "status"},
		},
	}
}
