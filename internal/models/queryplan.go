package models

// QueryPlanMetrics is the normalized record derived from one EXPLAIN ANALYZE
// plan document. Immutable once produced; persistence is a collaborator's
// concern, not this package's.
type QueryPlanMetrics struct {
	ExecutionTimeMs  float64 `json:"executionTimeMs"`
	PlanningTimeMs   float64 `json:"planningTimeMs"`
	RowsReturned     int64   `json:"rowsReturned"`
	ActualLoops      int64   `json:"actualLoops"`
	SharedHitBlocks  int64   `json:"sharedHitBlocks"`
	SharedReadBlocks int64   `json:"sharedReadBlocks"`
	WorkMem          string  `json:"workMem"`
	CacheHitRatioPct float64 `json:"cacheHitRatioPct"`
	StartupCost      float64 `json:"startupCost"`
	TotalCost        float64 `json:"totalCost"`
}
