// Package queryplan turns EXPLAIN ANALYZE plan documents into normalized
// metrics records.
package queryplan

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/queryhawk/queryhawk/internal/models"
)

// ErrNoPlanData is returned when the explain output carries no top-level
// plan node.
var ErrNoPlanData = errors.New("no plan data in explain output")

// planEnvelope mirrors the top-level object of one entry in the EXPLAIN
// (FORMAT JSON) output array.
type planEnvelope struct {
	Plan          *planNode         `json:"Plan"`
	Planning      *planningStats    `json:"Planning"`
	Settings      map[string]string `json:"Settings"`
	PlanningTime  float64           `json:"Planning Time"`
	ExecutionTime float64           `json:"Execution Time"`
}

type planNode struct {
	ActualRows  float64 `json:"Actual Rows"`
	ActualLoops float64 `json:"Actual Loops"`
	StartupCost float64 `json:"Startup Cost"`
	TotalCost   float64 `json:"Total Cost"`
}

type planningStats struct {
	SharedHitBlocks  float64 `json:"Shared Hit Blocks"`
	SharedReadBlocks float64 `json:"Shared Read Blocks"`
}

// Extract normalizes a raw EXPLAIN (FORMAT JSON) document into a
// QueryPlanMetrics record. Missing fields default to zero; the cache hit
// ratio is defined as 0 when no blocks were touched. It fails with
// ErrNoPlanData if the document has no top-level plan node.
func Extract(raw []byte) (*models.QueryPlanMetrics, error) {
	var envelopes []planEnvelope
	if err := json.Unmarshal(raw, &envelopes); err != nil {
		return nil, fmt.Errorf("decoding plan document: %w", err)
	}

	if len(envelopes) == 0 || envelopes[0].Plan == nil {
		return nil, ErrNoPlanData
	}

	env := envelopes[0]

	var hit, read float64
	if env.Planning != nil {
		hit = env.Planning.SharedHitBlocks
		read = env.Planning.SharedReadBlocks
	}

	ratio := 0.0
	if hit+read > 0 {
		ratio = hit / (hit + read) * 100
	}

	return &models.QueryPlanMetrics{
		ExecutionTimeMs:  env.ExecutionTime,
		PlanningTimeMs:   env.PlanningTime,
		RowsReturned:     int64(env.Plan.ActualRows),
		ActualLoops:      int64(env.Plan.ActualLoops),
		SharedHitBlocks:  int64(hit),
		SharedReadBlocks: int64(read),
		WorkMem:          env.Settings["work_mem"],
		CacheHitRatioPct: ratio,
		StartupCost:      env.Plan.StartupCost,
		TotalCost:        env.Plan.TotalCost,
	}, nil
}
