package audit

import (
	"context"
	"fmt"
	"time"
)

// Invocation status values persisted with each record.
const (
	StatusStarted = "started"
	StatusSuccess = "success"
	StatusError   = "error"
)

// Record is one invocation's audit row. A record is inserted with status
// "started" when the call begins and receives exactly one completion update
// when the call ends; it is never mutated afterwards.
type Record struct {
	ID            string     `json:"id"`
	CorrelationID string     `json:"correlation_id"`
	ToolName      string     `json:"tool_name"`
	StartedAt     time.Time  `json:"started_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	DurationMS    *int64     `json:"duration_ms,omitempty"`
	Status        string     `json:"status"`
	InputExcerpt  string     `json:"input_excerpt,omitempty"`
	OutputExcerpt string     `json:"output_excerpt,omitempty"`
	ErrorKind     string     `json:"error_kind,omitempty"`
	ErrorMessage  string     `json:"error_message,omitempty"`
}

// Completion carries the fields of the single completion update.
type Completion struct {
	CompletedAt   time.Time
	DurationMS    int64
	Status        string
	OutputExcerpt string
	ErrorKind     string
	ErrorMessage  string
}

// Recorder persists invocation records. The pipeline treats any failure
// from a Recorder as a side-channel problem: it is logged and counted but
// never surfaces in a call's result.
type Recorder interface {
	Begin(ctx context.Context, rec Record) error
	Complete(ctx context.Context, recordID string, c Completion) error
}

// ToolStats aggregates the persisted outcome counts for one tool.
type ToolStats struct {
	ToolName      string  `json:"tool_name"`
	Total         int64   `json:"total"`
	Succeeded     int64   `json:"succeeded"`
	Failed        int64   `json:"failed"`
	AvgDurationMS float64 `json:"avg_duration_ms"`
}

// BackendError wraps a persistence failure. It is caught inside the
// logging stage and never propagates to the caller of a tool.
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("audit backend %s failed: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}
