package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/queryhawk/queryhawk/internal/api"
	"github.com/queryhawk/queryhawk/internal/exporter"
	"github.com/queryhawk/queryhawk/internal/models"
)

func newExporterRouter(exporters *mockExporterManager, pollers *mockPollerSupervisor) *gin.Engine {
	r := gin.New()
	h := api.NewExporterHandler(exporters, pollers, testLogger())
	r.POST("/api/v1/exporters/start", h.Start)
	r.POST("/api/v1/exporters/stop", h.Stop)

	return r
}

func TestExporterStart(t *testing.T) {
	t.Parallel()

	exporters := &mockExporterManager{
		provisionFn: func(_ context.Context, userID, uri string, preferredPort int) (*models.MonitoredTarget, error) {
			if userID != "u1" || preferredPort != 9188 {
				t.Errorf("unexpected provision args: %s %d", userID, preferredPort)
			}

			return &models.MonitoredTarget{
				UserID:        userID,
				ConnectionURI: uri,
				ExporterPort:  9188,
				ContainerRef:  "ctr-1",
				ContainerName: "postgres-exporter-u1",
			}, nil
		},
	}
	pollers := &mockPollerSupervisor{}
	r := newExporterRouter(exporters, pollers)

	w := doRequest(r, http.MethodPost, "/api/v1/exporters/start",
		`{"userId":"u1","uri_string":"postgres://u:p@db.example.com/app","port":9188}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", w.Code, w.Body.String())
	}

	var resp struct {
		Port         int    `json:"port"`
		ContainerRef string `json:"containerRef"`
		Name         string `json:"name"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}

	if resp.Port != 9188 || resp.ContainerRef != "ctr-1" || resp.Name != "postgres-exporter-u1" {
		t.Errorf("unexpected response: %+v", resp)
	}

	// The connection string must not appear in the response.
	if strings.Contains(w.Body.String(), "u:p@") {
		t.Error("response leaks the connection string")
	}

	// Provisioning restarts the user's sampling loop.
	if len(pollers.stopped) != 1 || len(pollers.started) != 1 || pollers.started[0] != "u1" {
		t.Errorf("poller not restarted: stopped=%v started=%v", pollers.stopped, pollers.started)
	}
}

func TestExporterStart_ValidationFailures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body string
	}{
		{"missing userId", `{"uri_string":"postgres://db.example.com/app"}`},
		{"missing uri", `{"userId":"u1"}`},
		{"invalid uri", `{"userId":"u1","uri_string":"mysql://db.example.com/app"}`},
		{"port out of range", `{"userId":"u1","uri_string":"postgres://db.example.com/app","port":70000}`},
		{"malformed body", `{not json`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporters := &mockExporterManager{
				provisionFn: func(context.Context, string, string, int) (*models.MonitoredTarget, error) {
					t.Error("provision called for invalid request")

					return nil, nil
				},
			}
			r := newExporterRouter(exporters, &mockPollerSupervisor{})

			w := doRequest(r, http.MethodPost, "/api/v1/exporters/start", tt.body)

			if w.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", w.Code)
			}
		})
	}
}

func TestExporterStart_ErrorMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"environment not ready", exporter.ErrEnvironmentNotReady, http.StatusServiceUnavailable, "environment_error"},
		{"port exhaustion", &exporter.PortExhaustionError{Start: 9187, End: 9999}, http.StatusServiceUnavailable, "environment_error"},
		{"permission", &exporter.PermissionError{Dir: "/etc/prometheus/targets", Err: errors.New("read-only")}, http.StatusServiceUnavailable, "environment_error"},
		{"provision failed", &exporter.ProvisionError{Stage: "start", Err: errors.New("engine down")}, http.StatusBadGateway, "provision_failed"},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, "internal_error"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			exporters := &mockExporterManager{
				provisionFn: func(context.Context, string, string, int) (*models.MonitoredTarget, error) {
					return nil, tt.err
				},
			}
			pollers := &mockPollerSupervisor{}
			r := newExporterRouter(exporters, pollers)

			w := doRequest(r, http.MethodPost, "/api/v1/exporters/start",
				`{"userId":"u1","uri_string":"postgres://db.example.com/app"}`)

			if w.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", w.Code, tt.wantStatus)
			}

			var resp map[string]string
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}

			if resp["code"] != tt.wantCode {
				t.Errorf("code = %q, want %q", resp["code"], tt.wantCode)
			}

			if len(pollers.started) != 0 {
				t.Error("poller started despite provisioning failure")
			}
		})
	}
}

func TestExporterStart_PollerFailureIsNotFatal(t *testing.T) {
	t.Parallel()

	exporters := &mockExporterManager{
		provisionFn: func(_ context.Context, userID, uri string, _ int) (*models.MonitoredTarget, error) {
			return &models.MonitoredTarget{UserID: userID, ExporterPort: 9187, ContainerName: "postgres-exporter-u1"}, nil
		},
	}
	pollers := &mockPollerSupervisor{
		startFn: func(context.Context, string, string) error {
			return errors.New("connection refused")
		},
	}
	r := newExporterRouter(exporters, pollers)

	w := doRequest(r, http.MethodPost, "/api/v1/exporters/start",
		`{"userId":"u1","uri_string":"postgres://db.example.com/app"}`)

	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", w.Code)
	}
}

func TestExporterStop(t *testing.T) {
	t.Parallel()

	var cleaned []string
	exporters := &mockExporterManager{
		cleanupFn: func(_ context.Context, userID string) error {
			cleaned = append(cleaned, userID)

			return nil
		},
	}
	pollers := &mockPollerSupervisor{}
	r := newExporterRouter(exporters, pollers)

	w := doRequest(r, http.MethodPost, "/api/v1/exporters/stop", `{"userId":"u1"}`)

	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}

	if len(cleaned) != 1 || cleaned[0] != "u1" {
		t.Errorf("cleanup not called: %v", cleaned)
	}

	if len(pollers.stopped) != 1 || pollers.stopped[0] != "u1" {
		t.Errorf("poller not stopped: %v", pollers.stopped)
	}
}

func TestExporterStop_MissingUserID(t *testing.T) {
	t.Parallel()

	exporters := &mockExporterManager{
		cleanupFn: func(context.Context, string) error {
			t.Error("cleanup called for invalid request")

			return nil
		},
	}
	r := newExporterRouter(exporters, &mockPollerSupervisor{})

	w := doRequest(r, http.MethodPost, "/api/v1/exporters/stop", `{}`)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestExporterStop_CleanupFailure(t *testing.T) {
	t.Parallel()

	exporters := &mockExporterManager{
		cleanupFn: func(context.Context, string) error {
			return errors.New("engine unreachable")
		},
	}
	r := newExporterRouter(exporters, &mockPollerSupervisor{})

	w := doRequest(r, http.MethodPost, "/api/v1/exporters/stop", `{"userId":"u1"}`)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", w.Code)
	}
}
