// Package svcctx provides service context for dependency injection via context.
// This package is separate from server to avoid import cycles with endpoints.
package svcctx

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/pageindex/internal/home"
	"github.com/jackzampolin/pageindex/internal/jobs"
	"github.com/jackzampolin/pageindex/internal/pageindex"
)

// Services holds all core services that flow through context.
// Components extract what they need via the individual extractors.
type Services struct {
	Extractor pageindex.Extractor
	Options   *pageindex.Options // shared read-only
	Pool      *jobs.CPUWorkerPool
	Logger    *slog.Logger
	Home      *home.Dir
}

type servicesKey struct{}

// WithServices returns a new context with services attached.
func WithServices(ctx context.Context, s *Services) context.Context {
	return context.WithValue(ctx, servicesKey{}, s)
}

// ServicesFrom extracts the full Services struct from context.
// Returns nil if not present.
func ServicesFrom(ctx context.Context) *Services {
	s, _ := ctx.Value(servicesKey{}).(*Services)
	return s
}

// ExtractorFrom extracts the extraction engine from context.
func ExtractorFrom(ctx context.Context) pageindex.Extractor {
	if s := ServicesFrom(ctx); s != nil {
		return s.Extractor
	}
	return nil
}

// OptionsFrom extracts the shared extraction options from context.
func OptionsFrom(ctx context.Context) *pageindex.Options {
	if s := ServicesFrom(ctx); s != nil {
		return s.Options
	}
	return nil
}

// PoolFrom extracts the worker pool from context.
func PoolFrom(ctx context.Context) *jobs.CPUWorkerPool {
	if s := ServicesFrom(ctx); s != nil {
		return s.Pool
	}
	return nil
}

// LoggerFrom extracts the logger from context.
func LoggerFrom(ctx context.Context) *slog.Logger {
	if s := ServicesFrom(ctx); s != nil {
		return s.Logger
	}
	return nil
}

// HomeFrom extracts the home directory from context.
func HomeFrom(ctx context.Context) *home.Dir {
	if s := ServicesFrom(ctx); s != nil {
		return s.Home
	}
	return nil
}
