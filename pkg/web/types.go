// Package web provides HTTP request and response types for the workflow API.
package web

import (
	"time"

	"github.com/dukex/flowdeck/pkg/models"
)

// CreateWorkflowRequest represents the request body for creating a new workflow.
// Every field is optional; missing ones get their defaults.
type CreateWorkflowRequest struct {
	Name        string               `json:"name"        validate:"max=200"`
	Description string               `json:"description" validate:"max=2000"`
	Nodes       []*models.Node       `json:"nodes"       validate:"dive,required"`
	Connections []*models.Connection `json:"connections" validate:"dive,required"`
}

// Draft converts the request into a workflow draft.
func (r CreateWorkflowRequest) Draft() *models.WorkflowDraft {
	return &models.WorkflowDraft{
		Name:        r.Name,
		Description: r.Description,
		Nodes:       r.Nodes,
		Connections: r.Connections,
	}
}

// UpdateWorkflowRequest represents the request body for updating an existing workflow.
// All fields are optional to support partial updates.
type UpdateWorkflowRequest struct {
	Name                 *string              `json:"name,omitempty"                 validate:"omitempty,max=200"`
	Description          *string              `json:"description,omitempty"          validate:"omitempty,max=2000"`
	IsActive             *bool                `json:"isActive,omitempty"`
	LastRun              *time.Time           `json:"lastRun,omitempty"`
	RunCount             *int                 `json:"runCount,omitempty"             validate:"omitempty,min=0"`
	Nodes                []*models.Node       `json:"nodes,omitempty"                validate:"omitempty,dive,required"`
	Connections          []*models.Connection `json:"connections,omitempty"          validate:"omitempty,dive,required"`
	ExpectedLastModified *time.Time           `json:"expectedLastModified,omitempty"`
}

// Update converts the request into a partial workflow update.
func (r UpdateWorkflowRequest) Update() models.WorkflowUpdate {
	return models.WorkflowUpdate{
		Name:                 r.Name,
		Description:          r.Description,
		IsActive:             r.IsActive,
		LastRun:              r.LastRun,
		RunCount:             r.RunCount,
		Nodes:                r.Nodes,
		Connections:          r.Connections,
		ExpectedLastModified: r.ExpectedLastModified,
	}
}

// WorkflowListResponse is the body of GET /workflows.
type WorkflowListResponse struct {
	Workflows  []*models.Workflow `json:"workflows"`
	TotalCount int                `json:"total_count"`
}

// NodeListResponse carries nodes in a meaningful order: execution order or neighbors.
type NodeListResponse struct {
	Nodes []*models.Node `json:"nodes"`
}

// ExecutionLogListResponse is the body of the per-workflow execution history.
type ExecutionLogListResponse struct {
	Logs []*models.ExecutionLog `json:"logs"`
}
