package persistence

import (
	"cmp"
	"slices"
	"time"

	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/models"
)

// Clock returns the current time. Repositories take one so tests can pin it.
type Clock func() time.Time

// ValidateWorkflow fails with a ValidationError when a connection references a missing node.
func ValidateWorkflow(workflow *models.Workflow) error {
	violations := graph.Validate(workflow)
	if len(violations) > 0 {
		return &ValidationError{Violations: violations}
	}

	return nil
}

// NewWorkflow builds the workflow a create call stores: the draft with its
// defaults applied and both timestamps set to now. The id is left to the store.
func NewWorkflow(draft *models.WorkflowDraft, now time.Time) (*models.Workflow, error) {
	if draft == nil {
		draft = &models.WorkflowDraft{}
	}

	stamp := Stamp(now)

	workflow := &models.Workflow{
		Name:         draft.Name,
		Description:  draft.Description,
		IsActive:     false,
		CreatedAt:    stamp,
		LastModified: stamp,
		LastRun:      nil,
		RunCount:     0,
		Nodes:        draft.Nodes,
		Connections:  draft.Connections,
	}

	if workflow.Name == "" {
		workflow.Name = models.DefaultWorkflowName
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Connections == nil {
		workflow.Connections = []*models.Connection{}
	}

	err := ValidateWorkflow(workflow)
	if err != nil {
		return nil, err
	}

	return workflow, nil
}

// ApplyUpdate returns a copy of stored with the update merged in, validated
// and re-stamped. It fails with a ConflictError when the update expects a
// different lastModified than the stored one.
func ApplyUpdate(stored *models.Workflow, update models.WorkflowUpdate, now time.Time) (*models.Workflow, error) {
	if update.ExpectedLastModified != nil && !Stamp(*update.ExpectedLastModified).Equal(Stamp(stored.LastModified)) {
		return nil, &ConflictError{ID: stored.ID, Expected: *update.ExpectedLastModified, Actual: stored.LastModified}
	}

	updated := stored.Clone()
	update.Apply(updated)

	err := ValidateWorkflow(updated)
	if err != nil {
		return nil, err
	}

	updated.LastModified = NextModified(stored.LastModified, now)

	return updated, nil
}

// Stamp truncates t to the millisecond precision timestamps are stored with.
func Stamp(t time.Time) time.Time {
	return t.UTC().Truncate(time.Millisecond)
}

// NextModified returns the lastModified stamp for a write at now, strictly
// later than previous even when the clock has not advanced.
func NextModified(previous, now time.Time) time.Time {
	stamp := Stamp(now)
	if !stamp.After(previous) {
		stamp = Stamp(previous).Add(time.Millisecond)
	}

	return stamp
}

// SortWorkflows orders workflows newest first.
func SortWorkflows(workflows []*models.Workflow) {
	slices.SortStableFunc(workflows, func(a, b *models.Workflow) int {
		return cmp.Compare(b.ID, a.ID)
	})
}

// SortExecutionLogs orders logs by timestamp, most recent first.
func SortExecutionLogs(logs []*models.ExecutionLog) {
	slices.SortStableFunc(logs, func(a, b *models.ExecutionLog) int {
		if c := b.Timestamp.Compare(a.Timestamp); c != 0 {
			return c
		}

		return cmp.Compare(b.ID, a.ID)
	})
}

// Limit returns limit, or fallback when limit is not positive.
func Limit(limit, fallback int) int {
	if limit <= 0 {
		return fallback
	}

	return limit
}
