package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/jackzampolin/pageindex/internal/jobs"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/internal/svcctx"
)

// extractorFunc adapts a function to pageindex.Extractor.
type extractorFunc func(ctx context.Context, path string, opts *pageindex.Options) ([]*pageindex.Node, error)

func (f extractorFunc) Extract(ctx context.Context, path string, opts *pageindex.Options) ([]*pageindex.Node, error) {
	return f(ctx, path, opts)
}

func startPool(t *testing.T, workers int) *jobs.CPUWorkerPool {
	t.Helper()
	pool := jobs.NewCPUWorkerPool(jobs.CPUWorkerPoolConfig{Name: "test", WorkerCount: workers})
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		pool.Start(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	deadline := time.Now().Add(2 * time.Second)
	for !pool.Running() {
		if time.Now().After(deadline) {
			t.Fatal("pool did not start")
		}
		time.Sleep(time.Millisecond)
	}
	return pool
}

func newServices(t *testing.T, ex pageindex.Extractor) *svcctx.Services {
	t.Helper()
	return &svcctx.Services{
		Extractor: ex,
		Options:   pageindex.DefaultOptions(),
		Pool:      startPool(t, 2),
		Logger:    slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// serve sends r to the endpoint's handler with services in the request context.
func serve(ep interface {
	Route() (string, string, http.HandlerFunc)
}, svcs *svcctx.Services, r *http.Request) *httptest.ResponseRecorder {
	_, _, h := ep.Route()
	if svcs != nil {
		r = r.WithContext(svcctx.WithServices(r.Context(), svcs))
	}
	rec := httptest.NewRecorder()
	h(rec, r)
	return rec
}

// uploadRequest builds a multipart POST /run request with one file part.
func uploadRequest(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	fw, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := fw.Write(content); err != nil {
		t.Fatal(err)
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest(http.MethodPost, "/run", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeDetail(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ErrorResponse
	if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	return resp.Detail
}

func assertEmptyDir(t *testing.T, dir string) {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("staging dir %s has %d leftover entries", dir, len(entries))
	}
}
