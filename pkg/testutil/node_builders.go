// Package testutil provides test data builders and utilities for testing.
package testutil

import (
	"fmt"

	"github.com/dukex/flowdeck/pkg/models"
)

// CreateTestNode creates an action node with default values that can be overridden.
func CreateTestNode(id models.NodeID, overrides ...func(*models.Node)) *models.Node {
	node := &models.Node{
		ID:        id,
		Type:      models.NodeTypeAction,
		AppName:   "Slack",
		EventType: "send_message",
		Position:  &models.Position{X: 100, Y: 200},
		Config:    map[string]any{"channel": "#general"},
	}

	for _, override := range overrides {
		override(node)
	}

	return node
}

// WithTriggerNode configures the node as a Gmail trigger.
func WithTriggerNode() func(*models.Node) {
	return func(n *models.Node) {
		n.Type = models.NodeTypeTrigger
		n.AppName = "Gmail"
		n.EventType = "new_email"
		n.Config = map[string]any{"label": "inbox"}
	}
}

// WithAppName sets the node app name.
func WithAppName(appName string) func(*models.Node) {
	return func(n *models.Node) {
		n.AppName = appName
	}
}

// WithConfig sets the node configuration.
func WithConfig(config map[string]any) func(*models.Node) {
	return func(n *models.Node) {
		n.Config = config
	}
}

// WithoutPosition removes the canvas position, as template nodes have none.
func WithoutPosition() func(*models.Node) {
	return func(n *models.Node) {
		n.Position = nil
	}
}

// CreateTestConnection creates a connection between two node ids.
func CreateTestConnection(id models.ConnectionID, source, target models.NodeID) *models.Connection {
	return &models.Connection{
		ID:           id,
		SourceNodeID: source,
		TargetNodeID: target,
	}
}

// ChainConnections links the given node ids in sequence.
func ChainConnections(ids ...models.NodeID) []*models.Connection {
	connections := make([]*models.Connection, 0, len(ids))

	for i := 1; i < len(ids); i++ {
		connections = append(connections, CreateTestConnection(
			models.ConnectionID(fmt.Sprintf("c%d", i)), ids[i-1], ids[i],
		))
	}

	return connections
}
