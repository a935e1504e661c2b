package testutil

import (
	"encoding/json"
	"time"

	"github.com/dukex/flowdeck/pkg/models"
)

// FixedTime is the reference timestamp used by the builders.
var FixedTime = time.Date(2024, time.January, 15, 10, 30, 0, 0, time.UTC)

// CreateTestWorkflow creates a workflow with default values that can be overridden.
func CreateTestWorkflow(overrides ...func(*models.Workflow)) *models.Workflow {
	workflow := &models.Workflow{
		ID:           1,
		Name:         "Email to Slack",
		Description:  "Post new emails to a Slack channel",
		IsActive:     false,
		CreatedAt:    FixedTime,
		LastModified: FixedTime,
		Nodes:        []*models.Node{},
		Connections:  []*models.Connection{},
	}

	for _, override := range overrides {
		override(workflow)
	}

	return workflow
}

// WithWorkflowID sets the workflow id.
func WithWorkflowID(id int64) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.ID = id
	}
}

// WithWorkflowName sets the workflow name.
func WithWorkflowName(name string) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Name = name
	}
}

// WithActive sets the active flag.
func WithActive(active bool) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.IsActive = active
	}
}

// WithNodes replaces the workflow nodes.
func WithNodes(nodes ...*models.Node) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Nodes = nodes
	}
}

// WithConnections replaces the workflow connections.
func WithConnections(connections ...*models.Connection) func(*models.Workflow) {
	return func(w *models.Workflow) {
		w.Connections = connections
	}
}

// WithLinearNodes adds a trigger followed by action nodes chained in order.
func WithLinearNodes(ids ...models.NodeID) func(*models.Workflow) {
	return func(w *models.Workflow) {
		nodes := make([]*models.Node, len(ids))
		for i, id := range ids {
			if i == 0 {
				nodes[i] = CreateTestNode(id, WithTriggerNode())

				continue
			}

			nodes[i] = CreateTestNode(id)
		}

		w.Nodes = nodes
		w.Connections = ChainConnections(ids...)
	}
}

// CreateTestApp creates an app integration catalog entry.
func CreateTestApp(id int64, name, category string) *models.AppIntegration {
	return &models.AppIntegration{
		ID:          id,
		Name:        name,
		Icon:        "Box",
		Category:    category,
		Description: name + " integration",
		Color:       "#4F46E5",
		Triggers:    []json.RawMessage{json.RawMessage(`"new_item"`)},
		Actions:     []json.RawMessage{json.RawMessage(`"create_item"`)},
		AuthType:    "oauth2",
	}
}

// CreateTestTemplate creates a template whose nodes carry no position.
func CreateTestTemplate(overrides ...func(*models.Template)) *models.Template {
	template := &models.Template{
		ID:          1,
		Name:        "Email to Slack",
		Description: "Send a Slack message for every new email",
		Category:    "Communication",
		Icon:        "Mail",
		UsageCount:  10,
		Apps:        []string{"Gmail", "Slack"},
		Nodes: []*models.Node{
			CreateTestNode("1", WithTriggerNode(), WithoutPosition()),
			CreateTestNode("2", WithoutPosition()),
		},
	}

	for _, override := range overrides {
		override(template)
	}

	return template
}

// CreateTestExecutionLog creates an execution log entry.
func CreateTestExecutionLog(id, workflowID int64, status models.ExecutionStatus, at time.Time) *models.ExecutionLog {
	log := &models.ExecutionLog{
		ID:           id,
		WorkflowID:   workflowID,
		WorkflowName: "Email to Slack",
		Timestamp:    at,
		Status:       status,
		Duration:     1200,
		TriggerData:  json.RawMessage(`{"subject":"Hello"}`),
		StepResults:  []json.RawMessage{json.RawMessage(`{"step":1,"status":"success"}`)},
	}

	if status == models.ExecutionStatusFailed {
		message := "Slack API rate limit exceeded"
		log.Error = &message
	}

	return log
}
