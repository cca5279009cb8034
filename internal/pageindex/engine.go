package pageindex

import (
	"context"
	"log/slog"
	"path/filepath"
	"strings"
)

// Extractor builds the table-of-contents tree for the PDF at path.
// Implementations must be safe for concurrent use; opts is shared and must not be modified.
type Extractor interface {
	Extract(ctx context.Context, path string, opts *Options) ([]*Node, error)
}

// EngineConfig configures an Engine.
type EngineConfig struct {
	// LLM is optional. Without it, auto mode never consults a model.
	LLM    LLMClient
	Logger *slog.Logger
}

// Engine is the default Extractor.
type Engine struct {
	llm    LLMClient
	logger *slog.Logger
}

var _ Extractor = (*Engine)(nil)

// NewEngine creates a new extraction engine.
func NewEngine(cfg EngineConfig) *Engine {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		llm:    cfg.LLM,
		logger: logger.With("component", "pageindex"),
	}
}

// HasLLM reports whether an LLM client is configured.
func (e *Engine) HasLLM() bool {
	return e.llm != nil
}

// Extract implements Extractor.
func (e *Engine) Extract(ctx context.Context, path string, opts *Options) ([]*Node, error) {
	if opts == nil {
		opts = DefaultOptions()
	}

	pageCount, err := PageCount(path)
	if err != nil {
		return nil, err
	}
	if pageCount == 0 {
		return nil, ErrNoPages
	}
	logger := e.logger.With("file", filepath.Base(path), "pages", pageCount, "mode", opts.Mode)

	var nodes []*Node
	source := "outline"

	switch opts.Mode {
	case ModeLLM:
		if e.llm == nil {
			return nil, ErrLLMNotConfigured
		}
		source = "llm"
		nodes, err = e.fromLLM(ctx, path, pageCount, opts)
		if err != nil {
			return nil, err
		}

	case ModeOutline:
		nodes = e.fromOutline(path, pageCount, logger)

	default:
		nodes = e.fromOutline(path, pageCount, logger)
		if len(nodes) == 0 && e.llm != nil {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			source = "llm"
			nodes, err = e.fromLLM(ctx, path, pageCount, opts)
			if err != nil {
				return nil, err
			}
		}
	}

	if len(nodes) == 0 {
		source = "document"
		nodes = []*Node{{
			Title: documentTitle(path),
			Page:  1,
		}}
	}

	Renumber(nodes)
	AssignEndPages(nodes, pageCount)
	TruncateDepth(nodes, opts.MaxDepth)
	if !opts.AddEndPage {
		clearEndPages(nodes)
	}
	if opts.AddNodeID {
		WriteNodeIDs(nodes)
	}

	logger.Debug("structure extracted", "source", source, "nodes", len(Flatten(nodes)))
	return nodes, nil
}

// fromOutline returns the clamped outline, or nil when the PDF has none.
// The page count has already validated the file, so an outline error only
// means the outline itself is missing or unusable.
func (e *Engine) fromOutline(path string, pageCount int, logger *slog.Logger) []*Node {
	nodes, err := ReadOutline(path)
	if err != nil {
		logger.Debug("no usable outline", "error", err)
		return nil
	}
	return clampPages(nodes, pageCount)
}

func (e *Engine) fromLLM(ctx context.Context, path string, pageCount int, opts *Options) ([]*Node, error) {
	pages, err := ReadPages(path, opts.TOCCheckPageNum)
	if err != nil {
		return nil, err
	}
	items, err := GenerateTOC(ctx, e.llm, pages, pageCount)
	if err != nil {
		return nil, err
	}
	return ListToTree(items), nil
}

// clampPages drops nodes whose page is outside the document. Children of a
// dropped node are dropped with it.
func clampPages(nodes []*Node, pageCount int) []*Node {
	var kept []*Node
	for _, n := range nodes {
		if n.Page < 1 || n.Page > pageCount {
			continue
		}
		n.Children = clampPages(n.Children, pageCount)
		kept = append(kept, n)
	}
	return kept
}

func documentTitle(path string) string {
	base := filepath.Base(path)
	title := strings.TrimSpace(strings.TrimSuffix(base, filepath.Ext(base)))
	if title == "" {
		return "Document"
	}
	return title
}
