package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowdeck/pkg/eventbus"
	"github.com/dukex/flowdeck/pkg/events"
	"github.com/dukex/flowdeck/pkg/filter"
	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/otelhelper"
	"github.com/dukex/flowdeck/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type Workflow struct {
	persistence persistence.Persistence
	publisher   eventbus.EventPublisher
	tracer      trace.Tracer
	logger      *slog.Logger
}

// NewWorkflow creates a new workflow service. Lifecycle events go to publisher.
func NewWorkflow(persistence persistence.Persistence, publisher eventbus.EventPublisher, logger *slog.Logger) *Workflow {
	if publisher == nil {
		publisher = eventbus.Noop{}
	}

	return &Workflow{
		persistence: persistence,
		publisher:   publisher,
		tracer:      otelhelper.Tracer(),
		logger:      logger.With("module", "workflow_service"),
	}
}

// HealthCheck checks the health of the persistence layer.
func (w *Workflow) HealthCheck(ctx context.Context) (string, bool) {
	if w.persistence == nil {
		return "Persistence layer not initialized", false
	}

	err := w.persistence.HealthCheck(ctx)
	if err != nil {
		return "Persistence layer is unhealthy: " + err.Error(), false
	}

	return "Persistence layer is healthy", true
}

// ListWorkflowsRequest filters the workflow list.
type ListWorkflowsRequest struct {
	Query  string
	Status string // "all", "active" or "inactive"
}

// List returns the workflows matching the request, newest first.
func (w *Workflow) List(ctx context.Context, req ListWorkflowsRequest) (_ []*models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.list", attribute.String(otelhelper.QueryKey, req.Query))
	defer otelhelper.End(span, &err)

	switch req.Status {
	case "", filter.All, "active", "inactive":
	default:
		return nil, NewValidationError("ListWorkflows", "invalid_status", "status must be all, active or inactive", ErrInvalidStatus)
	}

	workflows, err := w.persistence.Workflows().GetAll(ctx)
	if err != nil {
		return nil, err
	}

	matched := filter.Workflows(workflows, req.Query, req.Status)
	span.SetAttributes(attribute.Int(otelhelper.ResultCountKey, len(matched)))

	return matched, nil
}

func (w *Workflow) Get(ctx context.Context, id int64) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.get", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	return w.persistence.Workflows().GetByID(ctx, id)
}

// Create stores a new workflow built from draft.
func (w *Workflow) Create(ctx context.Context, draft *models.WorkflowDraft) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.create")
	defer otelhelper.End(span, &err)

	if draft != nil {
		err = validateNodeTypes("Create", draft.Nodes)
		if err != nil {
			return nil, err
		}
	}

	workflow, err := w.persistence.Workflows().Create(ctx, draft)
	if err != nil {
		return nil, err
	}

	span.SetAttributes(otelhelper.ID(otelhelper.WorkflowIDKey, workflow.ID), attribute.String(otelhelper.WorkflowNameKey, workflow.Name))
	w.logger.Info("workflow created", "workflow_id", workflow.ID, "name", workflow.Name)

	w.publish(ctx, events.WorkflowCreated{
		BaseEvent: events.NewBaseEvent(events.WorkflowCreatedEvent, workflow.ID),
		Name:      workflow.Name,
		NodeCount: len(workflow.Nodes),
	})

	return workflow, nil
}

// Update merges the present fields of update into the workflow.
func (w *Workflow) Update(ctx context.Context, id int64, update models.WorkflowUpdate) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.update", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	if update.IsEmpty() {
		return nil, NewValidationError("Update", "empty_update", "update carries no fields", ErrEmptyUpdate)
	}

	err = validateNodeTypes("Update", update.Nodes)
	if err != nil {
		return nil, err
	}

	workflow, err := w.persistence.Workflows().Update(ctx, id, update)
	if err != nil {
		return nil, err
	}

	w.publish(ctx, events.WorkflowUpdated{
		BaseEvent:     events.NewBaseEvent(events.WorkflowUpdatedEvent, workflow.ID),
		Name:          workflow.Name,
		ChangedFields: changedFields(update),
	})

	if update.IsActive != nil {
		w.publishActivation(ctx, workflow)
	}

	return workflow, nil
}

func (w *Workflow) Delete(ctx context.Context, id int64) (err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.delete", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	err = w.persistence.Workflows().Delete(ctx, id)
	if err != nil {
		return err
	}

	w.logger.Info("workflow deleted", "workflow_id", id)
	w.publish(ctx, events.WorkflowDeleted{BaseEvent: events.NewBaseEvent(events.WorkflowDeletedEvent, id)})

	return nil
}

// ToggleActive flips the active state of the workflow.
func (w *Workflow) ToggleActive(ctx context.Context, id int64) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.toggle_active", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	workflow, err := w.persistence.Workflows().ToggleActive(ctx, id)
	if err != nil {
		return nil, err
	}

	w.publishActivation(ctx, workflow)

	return workflow, nil
}

// TopologicalOrder returns the nodes of the workflow in execution order.
func (w *Workflow) TopologicalOrder(ctx context.Context, id int64) (_ []*models.Node, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.topological_order", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	workflow, err := w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return graph.TopologicalOrder(workflow)
}

// Neighbors returns the nodes one hop away from nodeID. An unknown node has none.
func (w *Workflow) Neighbors(ctx context.Context, id int64, nodeID models.NodeID, direction string) (_ []*models.Node, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.neighbors",
		otelhelper.ID(otelhelper.WorkflowIDKey, id),
		attribute.String(otelhelper.NodeIDKey, string(nodeID)),
	)
	defer otelhelper.End(span, &err)

	dir, err := graph.ParseDirection(direction)
	if err != nil {
		return nil, NewValidationError("Neighbors", "invalid_direction", err.Error(), ErrInvalidDirection)
	}

	workflow, err := w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return graph.Neighbors(workflow, nodeID, dir), nil
}

// Executions returns the execution history of an existing workflow, most recent first.
func (w *Workflow) Executions(ctx context.Context, id int64) (_ []*models.ExecutionLog, err error) {
	ctx, span := otelhelper.StartSpan(ctx, w.tracer, "workflows.executions", otelhelper.ID(otelhelper.WorkflowIDKey, id))
	defer otelhelper.End(span, &err)

	_, err = w.persistence.Workflows().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	return w.persistence.ExecutionLogs().GetByWorkflowID(ctx, id)
}

func (w *Workflow) publishActivation(ctx context.Context, workflow *models.Workflow) {
	if workflow.IsActive {
		w.publish(ctx, events.WorkflowActivated{
			BaseEvent: events.NewBaseEvent(events.WorkflowActivatedEvent, workflow.ID),
			Name:      workflow.Name,
		})

		return
	}

	w.publish(ctx, events.WorkflowDeactivated{
		BaseEvent: events.NewBaseEvent(events.WorkflowDeactivatedEvent, workflow.ID),
		Name:      workflow.Name,
	})
}

// publish never fails the caller: the mutation already happened.
func (w *Workflow) publish(ctx context.Context, event interface {
	eventbus.Event
	Key() string
}) {
	err := w.publisher.Publish(ctx, event.Key(), event)
	if err != nil {
		w.logger.Error("failed to publish workflow event", "event_type", event.GetType(), "error", err)
	}
}

// validateNodeTypes rejects nodes whose type is set to an unknown value.
func validateNodeTypes(op string, nodes []*models.Node) error {
	for _, node := range nodes {
		if node == nil || node.Type == "" || node.Type.Valid() {
			continue
		}

		return NewValidationError(op, "invalid_node_type",
			fmt.Sprintf("node %s has unknown type %q", node.ID, node.Type), ErrInvalidNodeType)
	}

	return nil
}

func changedFields(update models.WorkflowUpdate) []string {
	var fields []string

	if update.Name != nil {
		fields = append(fields, "name")
	}

	if update.Description != nil {
		fields = append(fields, "description")
	}

	if update.IsActive != nil {
		fields = append(fields, "isActive")
	}

	if update.LastRun != nil {
		fields = append(fields, "lastRun")
	}

	if update.RunCount != nil {
		fields = append(fields, "runCount")
	}

	if update.Nodes != nil {
		fields = append(fields, "nodes")
	}

	if update.Connections != nil {
		fields = append(fields, "connections")
	}

	return fields
}
