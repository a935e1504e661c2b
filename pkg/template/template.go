// Package template turns catalog templates into workflow drafts.
package template

import (
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/google/uuid"
)

// Canvas layout of instantiated nodes: left to right on a single row.
const (
	OriginX  = 100
	OriginY  = 200
	SpacingX = 300
)

// PositionAt returns the canvas position of the node at the zero-based index.
func PositionAt(index int) *models.Position {
	return &models.Position{
		X: float64(OriginX + index*SpacingX),
		Y: OriginY,
	}
}

// Instantiate builds an unsaved workflow draft from a template. Templates carry
// no connections, so the draft starts with none. Nodes without an id receive a
// generated one so connections can reference them later.
func Instantiate(t *models.Template) *models.WorkflowDraft {
	draft := &models.WorkflowDraft{
		Nodes:       make([]*models.Node, 0),
		Connections: make([]*models.Connection, 0),
	}

	if t == nil {
		return draft
	}

	draft.Name = t.Name
	draft.Description = t.Description

	for _, node := range t.Nodes {
		if node == nil {
			continue
		}

		instance := node.Clone()
		instance.Position = PositionAt(len(draft.Nodes))

		if instance.ID == "" {
			instance.ID = models.NodeID(uuid.NewString())
		}

		draft.Nodes = append(draft.Nodes, instance)
	}

	return draft
}
