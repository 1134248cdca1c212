package queryplan_test

import (
	"errors"
	"math"
	"testing"

	"github.com/queryhawk/queryhawk/internal/queryplan"
)

const fullPlanDoc = `[
  {
    "Plan": {
      "Node Type": "Seq Scan",
      "Startup Cost": 0.00,
      "Total Cost": 155.00,
      "Actual Rows": 9000,
      "Actual Loops": 1
    },
    "Planning": {
      "Shared Hit Blocks": 60,
      "Shared Read Blocks": 20
    },
    "Settings": {
      "work_mem": "4MB"
    },
    "Planning Time": 0.21,
    "Execution Time": 12.55
  }
]`

func TestExtract_FullDocument(t *testing.T) {
	t.Parallel()

	rec, err := queryplan.Extract([]byte(fullPlanDoc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ExecutionTimeMs != 12.55 {
		t.Errorf("execution time: got %v", rec.ExecutionTimeMs)
	}

	if rec.PlanningTimeMs != 0.21 {
		t.Errorf("planning time: got %v", rec.PlanningTimeMs)
	}

	if rec.RowsReturned != 9000 {
		t.Errorf("rows returned: got %d", rec.RowsReturned)
	}

	if rec.ActualLoops != 1 {
		t.Errorf("actual loops: got %d", rec.ActualLoops)
	}

	if rec.SharedHitBlocks != 60 || rec.SharedReadBlocks != 20 {
		t.Errorf("shared blocks: got %d/%d", rec.SharedHitBlocks, rec.SharedReadBlocks)
	}

	if rec.WorkMem != "4MB" {
		t.Errorf("work_mem: got %q", rec.WorkMem)
	}

	if rec.CacheHitRatioPct != 75 {
		t.Errorf("cache hit ratio: got %v", rec.CacheHitRatioPct)
	}

	if rec.StartupCost != 0 || rec.TotalCost != 155 {
		t.Errorf("costs: got %v/%v", rec.StartupCost, rec.TotalCost)
	}
}

func TestExtract_ZeroBlocksYieldsZeroRatio(t *testing.T) {
	t.Parallel()

	doc := `[{"Plan": {"Actual Rows": 1}, "Planning": {"Shared Hit Blocks": 0, "Shared Read Blocks": 0}, "Execution Time": 1.0}]`

	rec, err := queryplan.Extract([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.CacheHitRatioPct != 0 {
		t.Errorf("expected ratio 0, got %v", rec.CacheHitRatioPct)
	}

	if math.IsNaN(rec.CacheHitRatioPct) {
		t.Error("ratio must never be NaN")
	}
}

func TestExtract_MissingFieldsDefaultToZero(t *testing.T) {
	t.Parallel()

	doc := `[{"Plan": {}}]`

	rec, err := queryplan.Extract([]byte(doc))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if rec.ExecutionTimeMs != 0 || rec.PlanningTimeMs != 0 || rec.TotalCost != 0 {
		t.Errorf("expected zero defaults, got %+v", rec)
	}

	if rec.WorkMem != "" {
		t.Errorf("expected empty work_mem, got %q", rec.WorkMem)
	}
}

func TestExtract_MissingPlanNode(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"empty array", `[]`},
		{"no Plan key", `[{"Execution Time": 5.0}]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := queryplan.Extract([]byte(tt.doc))
			if !errors.Is(err, queryplan.ErrNoPlanData) {
				t.Fatalf("expected ErrNoPlanData, got %v", err)
			}
		})
	}
}

func TestExtract_MalformedJSON(t *testing.T) {
	t.Parallel()

	_, err := queryplan.Extract([]byte(`{not json`))
	if err == nil {
		t.Fatal("expected decode error")
	}

	if errors.Is(err, queryplan.ErrNoPlanData) {
		t.Error("decode failure must not masquerade as missing plan data")
	}
}
