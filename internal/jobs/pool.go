// Package jobs runs blocking work off the request goroutines.
package jobs

import (
	"context"
	"errors"
	"time"
)

// PoolType indicates what kind of work a pool handles.
type PoolType string

const (
	PoolTypeCPU PoolType = "cpu"
)

var (
	// ErrPoolStopped is returned for work submitted to, or still queued in, a stopped pool.
	ErrPoolStopped = errors.New("worker pool stopped")
)

// TaskFunc is a unit of blocking work. It should return promptly once ctx is done.
type TaskFunc func(ctx context.Context) (any, error)

// WorkUnit is a single queued task.
type WorkUnit struct {
	ID   string
	Task string

	ctx  context.Context
	fn   TaskFunc
	done chan WorkResult // buffered so workers never block on abandoned units
}

// WorkResult is the outcome of a work unit.
type WorkResult struct {
	WorkUnitID string
	Value      any
	Error      error
	Duration   time.Duration
}

// PoolStatus reports a pool's current state.
type PoolStatus struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Running    bool   `json:"running"`
	Workers    int    `json:"workers"`
	InFlight   int    `json:"in_flight"`
	QueueDepth int    `json:"queue_depth"`
	Completed  int64  `json:"completed"`
	Failed     int64  `json:"failed"`
}
