package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestClient_Get(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	}))
	defer server.Close()

	var resp struct {
		Status string `json:"status"`
	}
	if err := NewClient(server.URL).Get(context.Background(), "/health", &resp); err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("Status = %q", resp.Status)
	}
}

func TestClient_PostFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(path, []byte("%PDF-1.4 body"), 0o644); err != nil {
		t.Fatal(err)
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/run" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("FormFile() error = %v", err)
			http.Error(w, "bad form", http.StatusBadRequest)
			return
		}
		defer file.Close()
		data, _ := io.ReadAll(file)
		if header.Filename != "report.pdf" || string(data) != "%PDF-1.4 body" {
			t.Errorf("got file %q with %q", header.Filename, data)
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode([]map[string]any{{"title": "Intro", "page": 1}})
	}))
	defer server.Close()

	var nodes []map[string]any
	if err := NewClient(server.URL).PostFile(context.Background(), "/run", "file", path, &nodes); err != nil {
		t.Fatalf("PostFile() error = %v", err)
	}
	if len(nodes) != 1 || nodes[0]["title"] != "Intro" {
		t.Errorf("nodes = %v", nodes)
	}
}

func TestClient_ErrorResponse(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantDetail string
	}{
		{"detail body", `{"detail": "File must have a .pdf extension"}`, "File must have a .pdf extension"},
		{"plain body", "upstream down\n", "upstream down"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(tt.body))
			}))
			defer server.Close()

			err := NewClient(server.URL).Get(context.Background(), "/run", nil)
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("error = %v, want *Error", err)
			}
			if apiErr.StatusCode != http.StatusBadRequest || apiErr.Detail != tt.wantDetail {
				t.Errorf("apiErr = %+v", apiErr)
			}
		})
	}
}

func TestOutputTo(t *testing.T) {
	data := map[string]any{"title": "Résumé <draft>"}

	var buf bytes.Buffer
	if err := OutputTo(&buf, OutputFormatJSON, data); err != nil {
		t.Fatal(err)
	}
	if buf.String() != "{\n  \"title\": \"Résumé <draft>\"\n}\n" {
		t.Errorf("json output = %q", buf.String())
	}

	buf.Reset()
	if err := OutputTo(&buf, OutputFormatYAML, data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(buf.String(), "title: ") {
		t.Errorf("yaml output = %q", buf.String())
	}

	if err := OutputTo(&buf, "xml", data); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestSetOutputFormat(t *testing.T) {
	t.Cleanup(func() { SetOutputFormat(string(DefaultOutput)) })

	tests := []struct {
		in   string
		want OutputFormat
	}{
		{"yaml", OutputFormatYAML},
		{"json", OutputFormatJSON},
		{"xml", DefaultOutput},
		{"", DefaultOutput},
	}
	for _, tt := range tests {
		SetOutputFormat(tt.in)
		if got := GetOutputFormat(); got != tt.want {
			t.Errorf("SetOutputFormat(%q): GetOutputFormat() = %q, want %q", tt.in, got, tt.want)
		}
	}
}
