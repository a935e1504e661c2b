package services

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/events"
	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/mocks"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/persistence/memory"
	"github.com/dukex/flowdeck/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func newTestPersistence(t *testing.T) *memory.Persistence {
	t.Helper()

	p, err := memory.NewPersistence(memory.WithClock(func() time.Time { return testutil.FixedTime }))
	require.NoError(t, err)

	return p
}

func publishes(bus *mocks.MockEventBus, eventType events.EventType) *mock.Call {
	return bus.On("Publish", mock.Anything, mock.Anything, mock.MatchedBy(func(event any) bool {
		e, ok := event.(interface{ GetType() events.EventType })

		return ok && e.GetType() == eventType
	}))
}

func TestNewWorkflow(t *testing.T) {
	p := newTestPersistence(t)
	service := NewWorkflow(p, nil, slog.Default())

	assert.NotNil(t, service)
	assert.Equal(t, p, service.persistence)

	message, healthy := service.HealthCheck(context.Background())
	assert.True(t, healthy)
	assert.Equal(t, "Persistence layer is healthy", message)
}

func TestWorkflow_List(t *testing.T) {
	service := NewWorkflow(newTestPersistence(t), nil, slog.Default())
	ctx := context.Background()

	all, err := service.List(ctx, ListWorkflowsRequest{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	active, err := service.List(ctx, ListWorkflowsRequest{Status: "active"})
	require.NoError(t, err)
	assert.Len(t, active, 2)

	for _, w := range active {
		assert.True(t, w.IsActive)
	}

	inactive, err := service.List(ctx, ListWorkflowsRequest{Query: "LEADS", Status: "inactive"})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, "Form Leads", inactive[0].Name)

	_, err = service.List(ctx, ListWorkflowsRequest{Status: "paused"})
	require.Error(t, err)
	assert.True(t, IsValidationError(err))
}

func TestWorkflow_CreatePublishesEvent(t *testing.T) {
	bus := &mocks.MockEventBus{}
	publishes(bus, events.WorkflowCreatedEvent).Return(nil).Once()

	service := NewWorkflow(newTestPersistence(t), bus, slog.Default())

	created, err := service.Create(context.Background(), &models.WorkflowDraft{
		Name:  "Digest",
		Nodes: []*models.Node{testutil.CreateTestNode("a")},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)

	bus.AssertExpectations(t)

	event := bus.Calls[0].Arguments.Get(2).(events.WorkflowCreated)
	assert.Equal(t, int64(4), event.WorkflowID)
	assert.Equal(t, "Digest", event.Name)
	assert.Equal(t, 1, event.NodeCount)
	assert.Equal(t, "4", bus.Calls[0].Arguments.String(1))
}

func TestWorkflow_PublishFailureDoesNotFailMutation(t *testing.T) {
	bus := &mocks.MockEventBus{}
	publishes(bus, events.WorkflowDeletedEvent).Return(errors.New("broker down"))

	p := newTestPersistence(t)
	service := NewWorkflow(p, bus, slog.Default())

	require.NoError(t, service.Delete(context.Background(), 1))

	_, err := p.Workflows().GetByID(context.Background(), 1)
	assert.True(t, persistence.IsNotFound(err))
	bus.AssertExpectations(t)
}

func TestWorkflow_ValidationErrorPublishesNothing(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service := NewWorkflow(newTestPersistence(t), bus, slog.Default())

	_, err := service.Create(context.Background(), &models.WorkflowDraft{
		Connections: []*models.Connection{testutil.CreateTestConnection("c1", "x", "y")},
	})
	require.Error(t, err)
	assert.True(t, persistence.IsValidation(err))
	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestWorkflow_UpdatePublishesChangedFields(t *testing.T) {
	bus := &mocks.MockEventBus{}
	publishes(bus, events.WorkflowUpdatedEvent).Return(nil).Once()
	publishes(bus, events.WorkflowActivatedEvent).Return(nil).Once()

	service := NewWorkflow(newTestPersistence(t), bus, slog.Default())

	name := "Form Leads v2"
	active := true

	updated, err := service.Update(context.Background(), 3, models.WorkflowUpdate{Name: &name, IsActive: &active})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
	assert.True(t, updated.IsActive)

	bus.AssertExpectations(t)

	event := bus.Calls[0].Arguments.Get(2).(events.WorkflowUpdated)
	assert.Equal(t, []string{"name", "isActive"}, event.ChangedFields)
}

func TestWorkflow_ToggleActive(t *testing.T) {
	bus := &mocks.MockEventBus{}
	publishes(bus, events.WorkflowDeactivatedEvent).Return(nil).Once()
	publishes(bus, events.WorkflowActivatedEvent).Return(nil).Once()

	service := NewWorkflow(newTestPersistence(t), bus, slog.Default())
	ctx := context.Background()

	off, err := service.ToggleActive(ctx, 1)
	require.NoError(t, err)
	assert.False(t, off.IsActive)

	on, err := service.ToggleActive(ctx, 1)
	require.NoError(t, err)
	assert.True(t, on.IsActive)

	bus.AssertExpectations(t)

	_, err = service.ToggleActive(ctx, 99)
	assert.True(t, persistence.IsNotFound(err))
}

func TestWorkflow_GraphQueries(t *testing.T) {
	p := newTestPersistence(t)
	service := NewWorkflow(p, nil, slog.Default())
	ctx := context.Background()

	created, err := service.Create(ctx, &models.WorkflowDraft{
		Nodes: []*models.Node{
			testutil.CreateTestNode("c"),
			testutil.CreateTestNode("a", testutil.WithTriggerNode()),
			testutil.CreateTestNode("b"),
		},
		Connections: testutil.ChainConnections("a", "b", "c"),
	})
	require.NoError(t, err)

	order, err := service.TopologicalOrder(ctx, created.ID)
	require.NoError(t, err)
	require.Len(t, order, 3)
	assert.Equal(t, []models.NodeID{"a", "b", "c"}, []models.NodeID{order[0].ID, order[1].ID, order[2].ID})

	outgoing, err := service.Neighbors(ctx, created.ID, "b", "outgoing")
	require.NoError(t, err)
	require.Len(t, outgoing, 1)
	assert.Equal(t, models.NodeID("c"), outgoing[0].ID)

	incoming, err := service.Neighbors(ctx, created.ID, "b", "INCOMING")
	require.NoError(t, err)
	require.Len(t, incoming, 1)
	assert.Equal(t, models.NodeID("a"), incoming[0].ID)

	none, err := service.Neighbors(ctx, created.ID, "missing", "")
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = service.Neighbors(ctx, created.ID, "b", "sideways")
	assert.True(t, IsValidationError(err))

	cyclic, err := service.Update(ctx, created.ID, models.WorkflowUpdate{
		Connections: append(testutil.ChainConnections("a", "b", "c"), testutil.CreateTestConnection("back", "c", "a")),
	})
	require.NoError(t, err)

	_, err = service.TopologicalOrder(ctx, cyclic.ID)
	require.ErrorIs(t, err, graph.ErrCycle)

	var cycle *graph.CycleError
	require.ErrorAs(t, err, &cycle)
	assert.ElementsMatch(t, []models.NodeID{"a", "b", "c"}, cycle.NodeIDs)
}

func TestWorkflow_Executions(t *testing.T) {
	service := NewWorkflow(newTestPersistence(t), nil, slog.Default())
	ctx := context.Background()

	logs, err := service.Executions(ctx, 2)
	require.NoError(t, err)
	require.Len(t, logs, 3)
	assert.Equal(t, int64(6), logs[0].ID)

	_, err = service.Executions(ctx, 42)
	assert.True(t, persistence.IsNotFound(err))
}

func TestWorkflow_RejectsUnknownNodeTypes(t *testing.T) {
	bus := &mocks.MockEventBus{}
	service := NewWorkflow(newTestPersistence(t), bus, slog.Default())
	ctx := context.Background()

	loop := testutil.CreateTestNode("a")
	loop.Type = "loop"

	_, err := service.Create(ctx, &models.WorkflowDraft{Nodes: []*models.Node{loop}})
	require.ErrorIs(t, err, ErrInvalidNodeType)
	assert.True(t, IsValidationError(err))

	_, err = service.Update(ctx, 1, models.WorkflowUpdate{Nodes: []*models.Node{loop}})
	require.ErrorIs(t, err, ErrInvalidNodeType)

	bus.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)

	untyped := testutil.CreateTestNode("b")
	untyped.Type = ""

	created, err := NewWorkflow(newTestPersistence(t), nil, slog.Default()).
		Create(ctx, &models.WorkflowDraft{Nodes: []*models.Node{untyped}})
	require.NoError(t, err)
	assert.Equal(t, int64(4), created.ID)
}

func TestWorkflow_EmptyUpdateIsRejected(t *testing.T) {
	p := newTestPersistence(t)
	service := NewWorkflow(p, nil, slog.Default())
	ctx := context.Background()

	before, err := p.Workflows().GetByID(ctx, 3)
	require.NoError(t, err)

	expected := before.LastModified

	_, err = service.Update(ctx, 3, models.WorkflowUpdate{ExpectedLastModified: &expected})
	require.ErrorIs(t, err, ErrEmptyUpdate)
	assert.True(t, IsValidationError(err))

	after, err := p.Workflows().GetByID(ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, before.LastModified, after.LastModified)
}
