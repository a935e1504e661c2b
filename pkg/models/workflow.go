// Package models defines the domain entities of the workflow automation catalog.
package models

import "time"

// DefaultWorkflowName is applied when a workflow is created without a name.
const DefaultWorkflowName = "Untitled Workflow"

// Workflow is a named automation made of nodes and the directed connections between them.
type Workflow struct {
	ID           int64         `json:"Id"`
	Name         string        `json:"name"`
	Description  string        `json:"description"`
	IsActive     bool          `json:"isActive"`
	CreatedAt    time.Time     `json:"createdAt"`
	LastModified time.Time     `json:"lastModified"`
	LastRun      *time.Time    `json:"lastRun"`
	RunCount     int           `json:"runCount"`
	Nodes        []*Node       `json:"nodes"`
	Connections  []*Connection `json:"connections"`
}

// Status reports the workflow state as shown in list filters.
func (w *Workflow) Status() string {
	if w.IsActive {
		return "active"
	}

	return "inactive"
}

// Clone returns a deep copy of the workflow.
func (w *Workflow) Clone() *Workflow {
	if w == nil {
		return nil
	}

	clone := *w

	if w.LastRun != nil {
		lastRun := *w.LastRun
		clone.LastRun = &lastRun
	}

	if w.Nodes != nil {
		clone.Nodes = make([]*Node, len(w.Nodes))
		for i, node := range w.Nodes {
			clone.Nodes[i] = node.Clone()
		}
	}

	if w.Connections != nil {
		clone.Connections = make([]*Connection, len(w.Connections))
		for i, connection := range w.Connections {
			clone.Connections[i] = connection.Clone()
		}
	}

	return &clone
}

// WorkflowDraft holds the caller supplied fields of a workflow that has not been persisted yet.
type WorkflowDraft struct {
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Nodes       []*Node       `json:"nodes"       validate:"dive,required"`
	Connections []*Connection `json:"connections" validate:"dive,required"`
}

// WorkflowUpdate is a partial update. Nil fields are left untouched.
type WorkflowUpdate struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	IsActive    *bool         `json:"isActive,omitempty"`
	LastRun     *time.Time    `json:"lastRun,omitempty"`
	RunCount    *int          `json:"runCount,omitempty"     validate:"omitempty,min=0"`
	Nodes       []*Node       `json:"nodes,omitempty"        validate:"omitempty,dive,required"`
	Connections []*Connection `json:"connections,omitempty"  validate:"omitempty,dive,required"`

	// ExpectedLastModified, when set, must equal the stored lastModified for the update to apply.
	ExpectedLastModified *time.Time `json:"expectedLastModified,omitempty"`
}

// IsEmpty reports whether the update carries no field changes.
func (u WorkflowUpdate) IsEmpty() bool {
	return u.Name == nil && u.Description == nil && u.IsActive == nil &&
		u.LastRun == nil && u.RunCount == nil && u.Nodes == nil && u.Connections == nil
}

// Apply merges the present fields of u into w.
func (u WorkflowUpdate) Apply(w *Workflow) {
	if u.Name != nil {
		w.Name = *u.Name
	}

	if u.Description != nil {
		w.Description = *u.Description
	}

	if u.IsActive != nil {
		w.IsActive = *u.IsActive
	}

	if u.LastRun != nil {
		lastRun := *u.LastRun
		w.LastRun = &lastRun
	}

	if u.RunCount != nil {
		w.RunCount = *u.RunCount
	}

	if u.Nodes != nil {
		w.Nodes = u.Nodes
	}

	if u.Connections != nil {
		w.Connections = u.Connections
	}
}
