package server

import (
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/jackzampolin/pageindex/internal/config"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/internal/server/endpoints"
)

func TestNew_Defaults(t *testing.T) {
	srv, err := New(Config{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}

	if srv.Addr() != "0.0.0.0:8000" {
		t.Errorf("Addr() = %q, want 0.0.0.0:8000", srv.Addr())
	}
	if srv.Options().Mode != pageindex.ModeAuto {
		t.Errorf("Options().Mode = %q", srv.Options().Mode)
	}
	if srv.IsRunning() {
		t.Error("IsRunning() = true before Start")
	}
	if srv.Pool().Running() {
		t.Error("pool running before Start")
	}
	if srv.httpServer.WriteTimeout != 0 {
		t.Errorf("WriteTimeout = %s, want 0 without a request timeout", srv.httpServer.WriteTimeout)
	}
}

func TestNew_WriteTimeoutCoversExtraction(t *testing.T) {
	srv, err := New(Config{Run: endpoints.RunEndpoint{Timeout: 10 * time.Minute}})
	if err != nil {
		t.Fatal(err)
	}
	if got := srv.httpServer.WriteTimeout; got <= 10*time.Minute {
		t.Errorf("WriteTimeout = %s, want more than the extraction timeout", got)
	}
}

func TestNew_InvalidOptions(t *testing.T) {
	_, err := New(Config{Options: &pageindex.Options{Mode: "guess", TOCCheckPageNum: 1}})
	if err == nil {
		t.Fatal("expected error for unknown mode")
	}
}

func TestHandler_RequiresInit(t *testing.T) {
	srv, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/run", strings.NewReader(""))
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("status = %d, want 503", rec.Code)
	}
	if got := strings.TrimSpace(rec.Body.String()); got != `{"detail":"server not fully initialized"}` {
		t.Errorf("body = %s", got)
	}

	// Health does not need the pool.
	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("/health status = %d, want 200", rec.Code)
	}
}

func TestHandler_RequestID(t *testing.T) {
	srv, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	supplied := uuid.NewString()

	tests := []struct {
		name   string
		header string
		check  func(t *testing.T, got string)
	}{
		{"generated", "", func(t *testing.T, got string) {
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID = %q is not a UUID", got)
			}
		}},
		{"echoed", supplied, func(t *testing.T, got string) {
			if got != supplied {
				t.Errorf("X-Request-ID = %q, want %q", got, supplied)
			}
		}},
		{"replaced", "not-a-uuid", func(t *testing.T, got string) {
			if _, err := uuid.Parse(got); err != nil {
				t.Errorf("X-Request-ID = %q is not a UUID", got)
			}
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/health", nil)
			if tt.header != "" {
				req.Header.Set(RequestIDHeader, tt.header)
			}
			rec := httptest.NewRecorder()
			srv.Handler().ServeHTTP(rec, req)
			tt.check(t, rec.Header().Get(RequestIDHeader))
		})
	}
}

func TestServer_Reload(t *testing.T) {
	var level slog.LevelVar
	srv, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}

	cfg := config.DefaultConfig()
	cfg.PageIndex.Mode = "outline"
	cfg.PageIndex.MaxDepth = 2
	cfg.Log.Level = "debug"
	srv.reload(cfg, &level)

	if srv.Options().Mode != pageindex.ModeOutline || srv.Options().MaxDepth != 2 {
		t.Errorf("Options() = %+v after reload", srv.Options())
	}
	if level.Level() != slog.LevelDebug {
		t.Errorf("level = %s, want DEBUG", level.Level())
	}

	// An invalid edit keeps the previous options.
	bad := config.DefaultConfig()
	bad.PageIndex.Mode = "guess"
	srv.reload(bad, nil)
	if srv.Options().Mode != pageindex.ModeOutline {
		t.Errorf("Options().Mode = %q, want outline kept", srv.Options().Mode)
	}
}
