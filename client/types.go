package client

// HealthResponse is the liveness payload.
type HealthResponse struct {
	Status          string  `json:"status"`
	Version         string  `json:"version"`
	ActiveExporters int     `json:"active_exporters"`
	UptimeSeconds   float64 `json:"uptime_seconds"`
}

// ConnectResponse is returned by Monitoring.Connect. Database carries the
// credential-masked connection URL.
type ConnectResponse struct {
	Connected bool   `json:"connected"`
	UserID    string `json:"userId"`
	Database  string `json:"database"`
}

// ExporterTarget describes a provisioned exporter.
type ExporterTarget struct {
	UserID        string `json:"userId"`
	Port          int    `json:"port"`
	ContainerRef  string `json:"containerRef"`
	ContainerName string `json:"name"`
}

// QueryPlanMetrics is the normalized record of one analyzed query.
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
