// Package events defines event types and structures for workflow lifecycle notifications.
package events

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type EventType string

// Topic carries every workflow lifecycle event.
const Topic = "flowdeck.workflow.events"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	WorkflowCreatedEvent     EventType = "workflow.created"
	WorkflowUpdatedEvent     EventType = "workflow.updated"
	WorkflowDeletedEvent     EventType = "workflow.deleted"
	WorkflowActivatedEvent   EventType = "workflow.activated"
	WorkflowDeactivatedEvent EventType = "workflow.deactivated"
)

// EventTypes lists every lifecycle event type.
var EventTypes = []EventType{
	WorkflowCreatedEvent,
	WorkflowUpdatedEvent,
	WorkflowDeletedEvent,
	WorkflowActivatedEvent,
	WorkflowDeactivatedEvent,
}

type BaseEvent struct {
	ID         string    `json:"id"`
	Type       EventType `json:"type"`
	Timestamp  time.Time `json:"timestamp"`
	WorkflowID int64     `json:"workflow_id"`
}

// NewBaseEvent stamps a new event about workflowID.
func NewBaseEvent(eventType EventType, workflowID int64) BaseEvent {
	return BaseEvent{
		ID:         uuid.NewString(),
		Type:       eventType,
		Timestamp:  time.Now().UTC(),
		WorkflowID: workflowID,
	}
}

// Key partitions events by workflow so one workflow's events stay ordered.
func (e BaseEvent) Key() string {
	return strconv.FormatInt(e.WorkflowID, 10)
}

func (t EventType) String() string {
	return string(t)
}

type WorkflowCreated struct {
	BaseEvent

	Name      string `json:"name"`
	NodeCount int    `json:"node_count"`
}

func (w WorkflowCreated) GetType() EventType {
	return WorkflowCreatedEvent
}

type WorkflowUpdated struct {
	BaseEvent

	Name          string   `json:"name"`
	ChangedFields []string `json:"changed_fields"`
}

func (w WorkflowUpdated) GetType() EventType {
	return WorkflowUpdatedEvent
}

type WorkflowDeleted struct {
	BaseEvent
}

func (w WorkflowDeleted) GetType() EventType {
	return WorkflowDeletedEvent
}

type WorkflowActivated struct {
	BaseEvent

	Name string `json:"name"`
}

func (w WorkflowActivated) GetType() EventType {
	return WorkflowActivatedEvent
}

type WorkflowDeactivated struct {
	BaseEvent

	Name string `json:"name"`
}

func (w WorkflowDeactivated) GetType() EventType {
	return WorkflowDeactivatedEvent
}

// NewEvent returns an empty event of the given type to decode a payload into.
func NewEvent(eventType EventType) (any, bool) {
	switch eventType {
	case WorkflowCreatedEvent:
		return &WorkflowCreated{}, true
	case WorkflowUpdatedEvent:
		return &WorkflowUpdated{}, true
	case WorkflowDeletedEvent:
		return &WorkflowDeleted{}, true
	case WorkflowActivatedEvent:
		return &WorkflowActivated{}, true
	case WorkflowDeactivatedEvent:
		return &WorkflowDeactivated{}, true
	default:
		return nil, false
	}
}
