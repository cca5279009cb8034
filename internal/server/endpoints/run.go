package endpoints

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/pageindex/internal/api"
	"github.com/jackzampolin/pageindex/internal/jobs"
	"github.com/jackzampolin/pageindex/internal/pageindex"
	"github.com/jackzampolin/pageindex/internal/staging"
	"github.com/jackzampolin/pageindex/internal/svcctx"
)

// FileField is the multipart field carrying the PDF.
const FileField = "file"

// RunEndpoint handles POST /run: extract the table of contents of an uploaded PDF.
type RunEndpoint struct {
	// MaxUploadBytes bounds the request body. Zero means unbounded.
	MaxUploadBytes int64
	// Timeout bounds the extraction. Zero means no timeout.
	Timeout time.Duration
	// StagingDir is the parent of per-request temp dirs. Empty means the home
	// staging dir when services carry a home, otherwise os.TempDir().
	StagingDir string

	// cleanup removes a staged file. Nil means (*staging.File).Cleanup.
	cleanup func(*staging.File) error
}

var _ api.Endpoint = (*RunEndpoint)(nil)

func (e *RunEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/run", e.handler
}

func (e *RunEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract a PDF table of contents
//	@Description	Upload a PDF and receive its hierarchical table of contents
//	@Tags			pageindex
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"PDF document"
//	@Success		200		{array}		pageindex.Node
//	@Failure		400		{object}	ErrorResponse
//	@Failure		500		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/run [post]
func (e *RunEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	logger := svcctx.LoggerFrom(ctx)
	if logger == nil {
		logger = slog.Default()
	}

	extractor := svcctx.ExtractorFrom(ctx)
	pool := svcctx.PoolFrom(ctx)
	if extractor == nil || pool == nil {
		writeError(w, http.StatusServiceUnavailable, "extraction service not initialized")
		return
	}
	opts := svcctx.OptionsFrom(ctx)

	if e.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, e.MaxUploadBytes)
	}

	part, filename, err := filePart(r)
	if err != nil {
		logger.Warn("rejected upload", "error", err)
		writeError(w, http.StatusBadRequest, e.uploadErrorMessage(err))
		return
	}
	defer part.Close()

	// Reject before anything touches the disk.
	if err := staging.ValidateName(filename); err != nil {
		logger.Warn("rejected upload", "filename", filename, "error", err)
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	logger.Info("request received", "filename", filename)

	staged, err := staging.Stage(e.stagingRoot(ctx), filename, part)
	if err != nil {
		if errors.Is(err, staging.ErrStaging) {
			logger.Error("request failed", "filename", filename, "error", err)
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		logger.Warn("rejected upload", "filename", filename, "error", err)
		writeError(w, http.StatusBadRequest, e.uploadErrorMessage(err))
		return
	}
	defer func() {
		if err := e.removeStaged(staged); err != nil {
			logger.Warn("failed to clean up staged file", "dir", staged.Dir(), "error", err)
		}
	}()

	nodes, err := e.extract(ctx, logger, pool, extractor, staged, opts)
	if err != nil {
		logger.Error("request failed", "filename", filename, "error", err)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if err := writeIndentedJSON(w, http.StatusOK, nodes); err != nil {
		logger.Warn("failed to write response", "error", err)
		return
	}
	logger.Info("request finished", "filename", filename, "nodes", len(pageindex.Flatten(nodes)))
}

// extract runs the extractor on the worker pool, bounded by e.Timeout.
func (e *RunEndpoint) extract(ctx context.Context, logger *slog.Logger, pool *jobs.CPUWorkerPool,
	extractor pageindex.Extractor, staged *staging.File, opts *pageindex.Options) ([]*pageindex.Node, error) {
	runCtx := ctx
	if e.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, e.Timeout)
		defer cancel()
	}

	logger.Info("processing started", "file", staged.Name(), "bytes", staged.Size())
	start := time.Now()

	nodes, err := jobs.Do(runCtx, pool, "pageindex", func(ctx context.Context) ([]*pageindex.Node, error) {
		return extractor.Extract(ctx, staged.Path(), opts)
	})

	logger.Info("pageindex finished", "elapsed_seconds", time.Since(start).Seconds(), "success", err == nil)

	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) && ctx.Err() == nil {
			return nil, fmt.Errorf("extraction timed out after %s", e.Timeout)
		}
		return nil, err
	}
	if nodes == nil {
		nodes = []*pageindex.Node{}
	}
	return nodes, nil
}

// stagingRoot returns the parent directory for this request's temp dir.
func (e *RunEndpoint) stagingRoot(ctx context.Context) string {
	if e.StagingDir != "" {
		return e.StagingDir
	}
	if h := svcctx.HomeFrom(ctx); h != nil {
		return h.StagingPath()
	}
	return ""
}

func (e *RunEndpoint) removeStaged(f *staging.File) error {
	if e.cleanup != nil {
		return e.cleanup(f)
	}
	return f.Cleanup()
}

func (e *RunEndpoint) uploadErrorMessage(err error) string {
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return fmt.Sprintf("file exceeds maximum upload size of %d bytes", maxErr.Limit)
	}
	return err.Error()
}

var errFileRequired = errors.New("file is required")

// filePart returns the first multipart part named FileField and the filename
// exactly as the client sent it. The body is streamed, not buffered.
func filePart(r *http.Request) (*multipart.Part, string, error) {
	mr, err := r.MultipartReader()
	if err != nil {
		return nil, "", fmt.Errorf("request must be multipart/form-data: %w", err)
	}

	for {
		part, err := mr.NextPart()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil, "", errFileRequired
			}
			return nil, "", fmt.Errorf("failed to read upload: %w", err)
		}
		if part.FormName() == FileField {
			return part, rawFileName(part), nil
		}
		part.Close()
	}
}

// rawFileName reads the filename parameter without the path stripping
// done by multipart.Part.FileName, so sanitisation sees the client's value.
func rawFileName(part *multipart.Part) string {
	_, params, err := mime.ParseMediaType(part.Header.Get("Content-Disposition"))
	if err != nil {
		return part.FileName()
	}
	return params["filename"]
}

// writeIndentedJSON writes v as two-space indented JSON with HTML and
// non-ASCII characters left as-is.
func writeIndentedJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func (e *RunEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "run <file.pdf>",
		Short: "Extract the table of contents of a PDF on the server",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client := api.NewClient(getServerURL())

			var nodes []*pageindex.Node
			if err := client.PostFile(ctx, "/run", FileField, args[0], &nodes); err != nil {
				return err
			}
			return api.Output(nodes)
		},
	}
}
