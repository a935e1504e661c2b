package eventbus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dukex/flowdeck/pkg/events"
)

// RegisterAudit logs every workflow lifecycle event delivered by subscriber.
func RegisterAudit(subscriber EventSubscriber, logger *slog.Logger) error {
	logger = logger.With("module", "audit")

	for _, eventType := range events.EventTypes {
		err := subscriber.Handle(eventType, func(_ context.Context, event any) error {
			logger.Info("workflow event", auditAttrs(event)...)

			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to register audit handler for %s: %w", eventType, err)
		}
	}

	return nil
}

func auditAttrs(event any) []any {
	switch e := event.(type) {
	case *events.WorkflowCreated:
		return append(baseAttrs(e.BaseEvent), "name", e.Name, "node_count", e.NodeCount)
	case *events.WorkflowUpdated:
		return append(baseAttrs(e.BaseEvent), "name", e.Name, "changed_fields", e.ChangedFields)
	case *events.WorkflowDeleted:
		return baseAttrs(e.BaseEvent)
	case *events.WorkflowActivated:
		return append(baseAttrs(e.BaseEvent), "name", e.Name)
	case *events.WorkflowDeactivated:
		return append(baseAttrs(e.BaseEvent), "name", e.Name)
	default:
		return []any{"event", event}
	}
}

func baseAttrs(e events.BaseEvent) []any {
	return []any{"event_id", e.ID, "event_type", e.Type, "workflow_id", e.WorkflowID, "at", e.Timestamp}
}
