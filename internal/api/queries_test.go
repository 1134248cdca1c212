package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/queryhawk/queryhawk/internal/api"
	"github.com/queryhawk/queryhawk/internal/models"
	"github.com/queryhawk/queryhawk/internal/queryplan"
)

func newQueryRouter(runner *mockPlanRunner, store *mockQueryStore) *gin.Engine {
	r := gin.New()
	h := api.NewQueryHandler(runner, store, testLogger())
	r.POST("/api/v1/queries/metrics", h.Analyze)

	return r
}

func sampleRecord() *models.QueryPlanMetrics {
	return &models.QueryPlanMetrics{
		ExecutionTimeMs:  12.5,
		PlanningTimeMs:   0.3,
		RowsReturned:     42,
		SharedHitBlocks:  30,
		SharedReadBlocks: 10,
		CacheHitRatioPct: 75,
		TotalCost:        155,
	}
}

func TestQueryAnalyze(t *testing.T) {
	t.Parallel()

	runner := &mockPlanRunner{
		runFn: func(_ context.Context, uri, query string) (*models.QueryPlanMetrics, error) {
			if query != "SELECT * FROM users" {
				t.Errorf("unexpected query %q", query)
			}

			return sampleRecord(), nil
		},
	}
	store := &mockQueryStore{}
	r := newQueryRouter(runner, store)

	w := doRequest(r, http.MethodPost, "/api/v1/queries/metrics",
		`{"uri_string":"postgres://db.example.com/app","query":"SELECT * FROM users"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", w.Code, w.Body.String())
	}

	var resp models.QueryPlanMetrics
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.ExecutionTimeMs != 12.5 || resp.CacheHitRatioPct != 75 {
		t.Errorf("unexpected record: %+v", resp)
	}

	// Persistence happens after successful extraction.
	if len(store.saved) != 1 {
		t.Errorf("record not persisted: %d saves", len(store.saved))
	}
}

func TestQueryAnalyze_StoreFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	runner := &mockPlanRunner{
		runFn: func(context.Context, string, string) (*models.QueryPlanMetrics, error) {
			return sampleRecord(), nil
		},
	}
	store := &mockQueryStore{
		saveFn: func(context.Context, *models.QueryPlanMetrics) error {
			return errors.New("history backend down")
		},
	}
	r := newQueryRouter(runner, store)

	w := doRequest(r, http.MethodPost, "/api/v1/queries/metrics",
		`{"uri_string":"postgres://db.example.com/app","query":"SELECT 1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
}

func TestQueryAnalyze_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing query", `{"uri_string":"postgres://db.example.com/app"}`},
		{"missing uri", `{"query":"SELECT 1"}`},
		{"invalid uri", `{"uri_string":"not-a-url","query":"SELECT 1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			runner := &mockPlanRunner{
				runFn: func(context.Context, string, string) (*models.QueryPlanMetrics, error) {
					t.Error("runner called for invalid request")

					return nil, nil
				},
			}
			r := newQueryRouter(runner, &mockQueryStore{})

			w := doRequest(r, http.MethodPost, "/api/v1/queries/metrics", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestQueryAnalyze_NoPlanData(t *testing.T) {
	t.Parallel()

	runner := &mockPlanRunner{
		runFn: func(context.Context, string, string) (*models.QueryPlanMetrics, error) {
			return nil, queryplan.ErrNoPlanData
		},
	}
	store := &mockQueryStore{}
	r := newQueryRouter(runner, store)

	w := doRequest(r, http.MethodPost, "/api/v1/queries/metrics",
		`{"uri_string":"postgres://db.example.com/app","query":"SET search_path TO public"}`)

	if w.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", w.Code)
	}

	if len(store.saved) != 0 {
		t.Error("record persisted despite extraction failure")
	}
}

func TestQueryAnalyze_ConnectionFailure(t *testing.T) {
	t.Parallel()

	runner := &mockPlanRunner{
		runFn: func(context.Context, string, string) (*models.QueryPlanMetrics, error) {
			return nil, errors.New("dial tcp: connection refused")
		},
	}
	r := newQueryRouter(runner, &mockQueryStore{})

	w := doRequest(r, http.MethodPost, "/api/v1/queries/metrics",
		`{"uri_string":"postgres://db.example.com/app","query":"SELECT 1"}`)

	if w.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", w.Code)
	}

	var resp map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp["code"] != "environment_error" {
		t.Errorf("code = %q, want environment_error", resp["code"])
	}
}
