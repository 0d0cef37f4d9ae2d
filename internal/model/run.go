// Package model defines the domain types shared across the tax pipeline.
package model

import "time"

// RunType identifies which pipeline stage a run executed.
type RunType string

const (
	RunTypeSync      RunType = "sync"
	RunTypeCalculate RunType = "calculate"
)

// RunStatus represents the lifecycle state of a pipeline run.
// A run is terminal once it leaves in_progress and never changes again.
type RunStatus string

const (
	RunStatusInProgress RunStatus = "in_progress"
	RunStatusCompleted  RunStatus = "completed"
	RunStatusFailed     RunStatus = "failed"
)

// Terminal reports whether the status is a final state.
func (s RunStatus) Terminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// PipelineRun is the persisted state machine for one pipeline execution.
// Progress counters are updated throughout the run for polling UIs.
type PipelineRun struct {
	ID             string     `json:"id"`
	Type           RunType    `json:"type"`
	Status         RunStatus  `json:"status"`
	Message        string     `json:"message"`
	TotalItems     int        `json:"total_items"`
	ItemsProcessed int        `json:"items_processed"`
	Succeeded      int        `json:"succeeded"`
	Skipped        int        `json:"skipped"`
	Failed         int        `json:"failed"`
	CurrentBatch   int        `json:"current_batch"`
	TotalBatches   int        `json:"total_batches"`
	InitiatedBy    string     `json:"initiated_by,omitempty"`
	Error          string     `json:"error,omitempty"`
	ErrorStack     string     `json:"error_stack,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	CompletedAt    *time.Time `json:"completed_at,omitempty"`
}

// RunProgress carries a counter update for an in-flight run.
type RunProgress struct {
	Message        string
	TotalItems     int
	ItemsProcessed int
	Succeeded      int
	Skipped        int
	Failed         int
	CurrentBatch   int
	TotalBatches   int
}
