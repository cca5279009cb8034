package endpoints

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/jackzampolin/pageindex/internal/jobs"
	"github.com/jackzampolin/pageindex/internal/svcctx"
)

func TestHealthEndpoint(t *testing.T) {
	rec := serve(&HealthEndpoint{}, nil, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var resp HealthResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatal(err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestReadyEndpoint(t *testing.T) {
	tests := []struct {
		name       string
		svcs       func(t *testing.T) *svcctx.Services
		wantCode   int
		wantStatus string
	}{
		{
			name:       "no services",
			svcs:       func(t *testing.T) *svcctx.Services { return nil },
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "not_initialized",
		},
		{
			name: "pool not started",
			svcs: func(t *testing.T) *svcctx.Services {
				return &svcctx.Services{Pool: jobs.NewCPUWorkerPool(jobs.CPUWorkerPoolConfig{WorkerCount: 1})}
			},
			wantCode:   http.StatusServiceUnavailable,
			wantStatus: "degraded",
		},
		{
			name:       "pool running",
			svcs:       func(t *testing.T) *svcctx.Services { return &svcctx.Services{Pool: startPool(t, 3)} },
			wantCode:   http.StatusOK,
			wantStatus: "ok",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := serve(&ReadyEndpoint{}, tt.svcs(t), httptest.NewRequest(http.MethodGet, "/ready", nil))

			if rec.Code != tt.wantCode {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantCode)
			}
			var resp HealthResponse
			if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
				t.Fatal(err)
			}
			if resp.Status != tt.wantStatus {
				t.Errorf("Status = %q, want %q", resp.Status, tt.wantStatus)
			}
			if tt.wantCode == http.StatusOK && (resp.Pool == nil || resp.Pool.Workers != 3) {
				t.Errorf("Pool = %+v, want 3 workers", resp.Pool)
			}
		})
	}
}

func TestSwaggerEndpoint(t *testing.T) {
	rec := serve(&SwaggerEndpoint{}, nil, httptest.NewRequest(http.MethodGet, "/swagger.json", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var doc struct {
		Info struct {
			Title string `json:"title"`
		} `json:"info"`
		Paths map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&doc); err != nil {
		t.Fatalf("swagger.json is not valid JSON: %v", err)
	}
	if doc.Info.Title != "PageIndex API" {
		t.Errorf("title = %q", doc.Info.Title)
	}
	if _, ok := doc.Paths["/run"]; !ok {
		t.Error("swagger.json missing /run")
	}
}

func TestSwaggerUIEndpoint(t *testing.T) {
	rec := serve(&SwaggerUIEndpoint{}, nil, httptest.NewRequest(http.MethodGet, "/swagger", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "/swagger.json") {
		t.Error("UI page does not reference /swagger.json")
	}
}

func TestAll(t *testing.T) {
	eps := All(Config{Run: RunEndpoint{MaxUploadBytes: 10}})

	routes := make(map[string]bool)
	for _, ep := range eps {
		method, path, _ := ep.Route()
		routes[method+" "+path] = ep.RequiresInit()
	}

	want := map[string]bool{
		"GET /health":       false,
		"GET /ready":        false,
		"POST /run":         true,
		"GET /swagger.json": false,
		"GET /swagger":      false,
	}
	for route, requiresInit := range want {
		got, ok := routes[route]
		if !ok {
			t.Errorf("route %s not registered", route)
			continue
		}
		if got != requiresInit {
			t.Errorf("%s RequiresInit = %v, want %v", route, got, requiresInit)
		}
	}
}
