package pipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/wegman-software/osmpoi/internal/export"
	"github.com/wegman-software/osmpoi/internal/poi"
	"github.com/wegman-software/osmpoi/internal/stats"
)

// State is the lifecycle position of a Driver
type State int32

const (
	StateIdle State = iota
	StateStreaming
	StateFinalizing
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStreaming:
		return "streaming"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// ErrAlreadyRun is returned when Run is called on a driver that has left Idle
var ErrAlreadyRun = errors.New("pipeline: driver already ran")

// DecoderError reports an abnormal end of the entity stream
type DecoderError struct {
	Processed int64 // entities read before the failure
	Err       error
}

func (e *DecoderError) Error() string {
	return fmt.Sprintf("input stream failed after %d entities: %v", e.Processed, e.Err)
}

func (e *DecoderError) Unwrap() error {
	return e.Err
}

// Exporter persists the finished record collection
type Exporter interface {
	Write(ctx context.Context, records []*poi.Record, summary stats.Summary, basePath string) (export.Artifacts, error)
}

// Sink receives the record collection after the artifacts were written
type Sink interface {
	Load(ctx context.Context, records []*poi.Record) (int64, error)
}

// Options configures a Driver
type Options struct {
	Classifier *poi.Classifier      // nil classifies all subtypes
	Tracked    []stats.TrackedField // nil uses stats.DefaultTracked
	TopN       int                  // entries per frequency list, <= 0 is unlimited

	// Workers > 1 runs classification and extraction on a worker pool.
	// Output order is the input order either way.
	Workers int

	// Filters run in order before classification, on a single goroutine
	Filters []Filter

	Exporter Exporter
	BasePath string
	Sinks    []Sink

	// Report receives the human-readable summary, nil skips it
	Report io.Writer

	ProgressInterval time.Duration
}

// Result describes a finished run
type Result struct {
	Summary   stats.Summary
	Artifacts export.Artifacts
	Entities  int64 // entities read from the source
	Filtered  int64 // entities rejected by a filter
	Loaded    int64 // rows written by sinks
	Duration  time.Duration
}
