package models

import (
	"encoding/json"
	"time"
)

// ExecutionStatus is the outcome of a workflow run.
type ExecutionStatus string

const (
	ExecutionStatusSuccess ExecutionStatus = "success"
	ExecutionStatusFailed  ExecutionStatus = "failed"
	ExecutionStatusPending ExecutionStatus = "pending"
)

// ExecutionLog records one past run of a workflow. Logs are immutable once written.
type ExecutionLog struct {
	ID           int64             `json:"Id"`
	WorkflowID   int64             `json:"workflowId"`
	WorkflowName string            `json:"workflowName"`
	Timestamp    time.Time         `json:"timestamp"`
	Status       ExecutionStatus   `json:"status"`
	Duration     int               `json:"duration"` // milliseconds
	Error        *string           `json:"error"`
	TriggerData  json.RawMessage   `json:"triggerData"`
	StepResults  []json.RawMessage `json:"stepResults"`
}

// ExecutionStats counts logs per status.
type ExecutionStats struct {
	Total   int `json:"total"`
	Success int `json:"success"`
	Failed  int `json:"failed"`
	Pending int `json:"pending"`
}

// ComputeExecutionStats tallies logs by status.
func ComputeExecutionStats(logs []*ExecutionLog) ExecutionStats {
	stats := ExecutionStats{Total: len(logs)}

	for _, log := range logs {
		switch log.Status {
		case ExecutionStatusSuccess:
			stats.Success++
		case ExecutionStatusFailed:
			stats.Failed++
		case ExecutionStatusPending:
			stats.Pending++
		}
	}

	return stats
}
