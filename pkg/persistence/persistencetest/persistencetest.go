// Package persistencetest holds the behavioral tests every persistence.Persistence
// implementation must pass, so the in-memory and record store variants keep
// identical domain contracts.
package persistencetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory builds a persistence holding dataset whose workflow timestamps come from clock.
type Factory func(t *testing.T, clock persistence.Clock, dataset *seed.Dataset) persistence.Persistence

// Clock is a manually advanced time source.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock stopped at start.
func NewClock(start time.Time) *Clock {
	return &Clock{now: start}
}

// Now returns the current fake time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.now = c.now.Add(d)
}

type fixture struct {
	ctx   context.Context
	clock *Clock
	p     persistence.Persistence
}

// Run executes the shared repository tests against persistences built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	newFixture := func(t *testing.T, withWorkflows bool) *fixture {
		t.Helper()

		dataset, err := seed.Default()
		require.NoError(t, err)

		if !withWorkflows {
			dataset.Workflows = nil
		}

		clock := NewClock(testutil.FixedTime)

		return &fixture{ctx: context.Background(), clock: clock, p: factory(t, clock.Now, dataset)}
	}

	t.Run("Workflows", func(t *testing.T) {
		t.Run("CreateAppliesDefaults", func(t *testing.T) { testCreateDefaults(t, newFixture(t, false)) })
		t.Run("CreateAssignsNextID", func(t *testing.T) { testCreateNextID(t, newFixture(t, true)) })
		t.Run("CreateRejectsDanglingConnection", func(t *testing.T) { testCreateInvalid(t, newFixture(t, false)) })
		t.Run("GetAllNewestFirst", func(t *testing.T) { testGetAllOrder(t, newFixture(t, true)) })
		t.Run("GetByIDMissing", func(t *testing.T) { testGetMissing(t, newFixture(t, true)) })
		t.Run("UpdateMergesPresentFields", func(t *testing.T) { testUpdateMerge(t, newFixture(t, false)) })
		t.Run("UpdateFailures", func(t *testing.T) { testUpdateFailures(t, newFixture(t, false)) })
		t.Run("DeleteRemovesWorkflow", func(t *testing.T) { testDelete(t, newFixture(t, true)) })
		t.Run("ToggleActiveFlips", func(t *testing.T) { testToggle(t, newFixture(t, true)) })
		t.Run("ConcurrentTogglesLoseNoUpdate", func(t *testing.T) { testConcurrentToggles(t, newFixture(t, true)) })
		t.Run("ReturnedWorkflowsAreCopies", func(t *testing.T) { testCopies(t, newFixture(t, false)) })
	})

	t.Run("AppIntegrations", func(t *testing.T) { testApps(t, newFixture(t, false)) })
	t.Run("Templates", func(t *testing.T) { testTemplates(t, newFixture(t, false)) })
	t.Run("ExecutionLogs", func(t *testing.T) { testExecutionLogs(t, newFixture(t, false)) })
	t.Run("HealthCheck", func(t *testing.T) {
		f := newFixture(t, false)
		assert.NoError(t, f.p.HealthCheck(f.ctx))
	})
}

func workflowIDs(workflows []*models.Workflow) []int64 {
	ids := make([]int64, len(workflows))
	for i, w := range workflows {
		ids[i] = w.ID
	}

	return ids
}

func nodeIDs(nodes []*models.Node) []models.NodeID {
	ids := make([]models.NodeID, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}

	return ids
}

func testCreateDefaults(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	created, err := repo.Create(f.ctx, &models.WorkflowDraft{})
	require.NoError(t, err)

	assert.Equal(t, int64(1), created.ID)
	assert.Equal(t, models.DefaultWorkflowName, created.Name)
	assert.Empty(t, created.Description)
	assert.False(t, created.IsActive)
	assert.Zero(t, created.RunCount)
	assert.Nil(t, created.LastRun)
	assert.NotNil(t, created.Nodes)
	assert.Empty(t, created.Nodes)
	assert.NotNil(t, created.Connections)
	assert.Empty(t, created.Connections)
	assert.True(t, testutil.FixedTime.Equal(created.CreatedAt))
	assert.True(t, created.CreatedAt.Equal(created.LastModified))

	stored, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Name, stored.Name)
	assert.False(t, stored.IsActive)
	assert.NotNil(t, stored.Nodes)
	assert.Empty(t, stored.Nodes)
	assert.True(t, created.LastModified.Equal(stored.LastModified))
	assert.Nil(t, stored.LastRun)
}

func testCreateNextID(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	created, err := repo.Create(f.ctx, &models.WorkflowDraft{
		Name:        "Leads",
		Description: "Typeform to Sheets",
		Nodes: []*models.Node{
			testutil.CreateTestNode("a", testutil.WithTriggerNode()),
			testutil.CreateTestNode("b"),
		},
		Connections: testutil.ChainConnections("a", "b"),
	})
	require.NoError(t, err)

	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "Leads", created.Name)
	assert.Equal(t, "Typeform to Sheets", created.Description)

	stored, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, []models.NodeID{"a", "b"}, nodeIDs(stored.Nodes))
	require.Len(t, stored.Connections, 1)
	assert.Equal(t, models.NodeID("a"), stored.Connections[0].SourceNodeID)
	assert.Equal(t, models.NodeID("b"), stored.Connections[0].TargetNodeID)
	assert.Equal(t, "#general", stored.Nodes[1].Config["channel"])
}

func testCreateInvalid(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	_, err := repo.Create(f.ctx, &models.WorkflowDraft{
		Nodes:       []*models.Node{testutil.CreateTestNode("a")},
		Connections: []*models.Connection{testutil.CreateTestConnection("c1", "ghost", "a")},
	})
	require.Error(t, err)
	assert.True(t, persistence.IsValidation(err))

	var validation *persistence.ValidationError
	require.ErrorAs(t, err, &validation)
	assert.Len(t, validation.Violations, 1)

	all, err := repo.GetAll(f.ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func testGetAllOrder(t *testing.T, f *fixture) {
	all, err := f.p.Workflows().GetAll(f.ctx)
	require.NoError(t, err)

	assert.Equal(t, []int64{3, 2, 1}, workflowIDs(all))
	assert.Equal(t, "Form Leads", all[0].Name)
	assert.Nil(t, all[0].LastRun)
	assert.NotNil(t, all[2].LastRun)
}

func testGetMissing(t *testing.T, f *fixture) {
	_, err := f.p.Workflows().GetByID(f.ctx, 999)
	require.Error(t, err)
	assert.True(t, persistence.IsNotFound(err))
	require.ErrorIs(t, err, persistence.ErrWorkflowNotFound)

	var notFound *persistence.NotFoundError
	require.ErrorAs(t, err, &notFound)
	assert.Equal(t, int64(999), notFound.ID)
}

func testUpdateMerge(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	created, err := repo.Create(f.ctx, &models.WorkflowDraft{
		Name:  "Digest",
		Nodes: []*models.Node{testutil.CreateTestNode("a", testutil.WithTriggerNode()), testutil.CreateTestNode("b")},
	})
	require.NoError(t, err)

	active := true

	// The clock has not moved: lastModified must still increase.
	updated, err := repo.Update(f.ctx, created.ID, models.WorkflowUpdate{IsActive: &active})
	require.NoError(t, err)

	assert.True(t, updated.IsActive)
	assert.Equal(t, "Digest", updated.Name)
	assert.Equal(t, []models.NodeID{"a", "b"}, nodeIDs(updated.Nodes))
	assert.True(t, updated.LastModified.After(created.LastModified))
	assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))

	stored, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsActive)
	assert.Equal(t, "Digest", stored.Name)
	assert.Equal(t, []models.NodeID{"a", "b"}, nodeIDs(stored.Nodes))
	assert.True(t, updated.LastModified.Equal(stored.LastModified))

	f.clock.Advance(time.Hour)

	name := "Morning digest"
	runCount := 3
	lastRun := testutil.FixedTime.Add(30 * time.Minute)

	renamed, err := repo.Update(f.ctx, created.ID, models.WorkflowUpdate{
		Name:        &name,
		RunCount:    &runCount,
		LastRun:     &lastRun,
		Connections: testutil.ChainConnections("a", "b"),
	})
	require.NoError(t, err)
	assert.Equal(t, name, renamed.Name)
	assert.True(t, renamed.IsActive)
	assert.Equal(t, 3, renamed.RunCount)
	require.NotNil(t, renamed.LastRun)
	assert.True(t, lastRun.Equal(*renamed.LastRun))
	assert.True(t, testutil.FixedTime.Add(time.Hour).Equal(renamed.LastModified))

	stored, err = repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, name, stored.Name)
	assert.Equal(t, 3, stored.RunCount)
	assert.Len(t, stored.Connections, 1)
	require.NotNil(t, stored.LastRun)
	assert.True(t, lastRun.Equal(*stored.LastRun))
}

func testUpdateFailures(t *testing.T, f *fixture) {
	repo := f.p.Workflows()
	name := "renamed"

	_, err := repo.Update(f.ctx, 42, models.WorkflowUpdate{Name: &name})
	assert.True(t, persistence.IsNotFound(err))

	created, err := repo.Create(f.ctx, &models.WorkflowDraft{Nodes: []*models.Node{testutil.CreateTestNode("a")}})
	require.NoError(t, err)

	_, err = repo.Update(f.ctx, created.ID, models.WorkflowUpdate{
		Connections: []*models.Connection{testutil.CreateTestConnection("c1", "a", "missing")},
	})
	assert.True(t, persistence.IsValidation(err))

	stale := created.LastModified.Add(-time.Minute)

	_, err = repo.Update(f.ctx, created.ID, models.WorkflowUpdate{Name: &name, ExpectedLastModified: &stale})
	require.Error(t, err)
	assert.True(t, persistence.IsConflict(err))

	stored, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.DefaultWorkflowName, stored.Name)
	assert.Empty(t, stored.Connections)

	current := stored.LastModified

	updated, err := repo.Update(f.ctx, created.ID, models.WorkflowUpdate{Name: &name, ExpectedLastModified: &current})
	require.NoError(t, err)
	assert.Equal(t, name, updated.Name)
}

func testDelete(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	require.NoError(t, repo.Delete(f.ctx, 2))

	_, err := repo.GetByID(f.ctx, 2)
	assert.True(t, persistence.IsNotFound(err))

	err = repo.Delete(f.ctx, 2)
	assert.True(t, persistence.IsNotFound(err))

	all, err := repo.GetAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 1}, workflowIDs(all))

	// Logs of a deleted workflow are kept.
	logs, err := f.p.ExecutionLogs().GetByWorkflowID(f.ctx, 2)
	require.NoError(t, err)
	assert.Len(t, logs, 3)
}

func testToggle(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	before, err := repo.GetByID(f.ctx, 3)
	require.NoError(t, err)
	require.False(t, before.IsActive)

	toggled, err := repo.ToggleActive(f.ctx, 3)
	require.NoError(t, err)
	assert.True(t, toggled.IsActive)
	assert.True(t, toggled.LastModified.After(before.LastModified))
	assert.Equal(t, before.Name, toggled.Name)

	again, err := repo.ToggleActive(f.ctx, 3)
	require.NoError(t, err)
	assert.False(t, again.IsActive)
	assert.True(t, again.LastModified.After(toggled.LastModified))

	stored, err := repo.GetByID(f.ctx, 3)
	require.NoError(t, err)
	assert.False(t, stored.IsActive)

	_, err = repo.ToggleActive(f.ctx, 404)
	assert.True(t, persistence.IsNotFound(err))
}

func testConcurrentToggles(t *testing.T, f *fixture) {
	repo := f.p.Workflows()

	const workers = 8

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)

	for range workers {
		wg.Add(1)

		go func() {
			defer wg.Done()

			_, err := repo.ToggleActive(f.ctx, 3)
			if err != nil {
				assert.True(t, persistence.IsConflict(err), "unexpected error: %v", err)

				return
			}

			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}

	wg.Wait()

	require.GreaterOrEqual(t, succeeded, 1)

	stored, err := repo.GetByID(f.ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, succeeded%2 == 1, stored.IsActive, "%d toggles applied", succeeded)
}

func testCopies(t *testing.T, f *fixture) {
	repo := f.p.Workflows()
	nodes := []*models.Node{testutil.CreateTestNode("a")}

	created, err := repo.Create(f.ctx, &models.WorkflowDraft{Name: "Original", Nodes: nodes})
	require.NoError(t, err)

	nodes[0].AppName = "changed by caller"
	created.Name = "changed by caller"

	stored, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Original", stored.Name)
	assert.Equal(t, "Slack", stored.Nodes[0].AppName)

	stored.Nodes[0].AppName = "changed again"

	again, err := repo.GetByID(f.ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Slack", again.Nodes[0].AppName)
}

func testApps(t *testing.T, f *fixture) {
	repo := f.p.AppIntegrations()

	all, err := repo.GetAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 8)

	for i, app := range all {
		assert.Equal(t, int64(i+1), app.ID)
	}

	gmail, err := repo.GetByID(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Gmail", gmail.Name)
	assert.NotEmpty(t, gmail.Triggers)

	_, err = repo.GetByID(f.ctx, 99)
	require.ErrorIs(t, err, persistence.ErrAppIntegrationNotFound)

	communication, err := repo.GetByCategory(f.ctx, "Communication")
	require.NoError(t, err)
	assert.Len(t, communication, 2)

	none, err := repo.GetByCategory(f.ctx, "Unknown")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	found, err := repo.Search(f.ctx, "GMAIL")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Gmail", found[0].Name)

	byDescription, err := repo.Search(f.ctx, "storage")
	require.NoError(t, err)
	require.Len(t, byDescription, 1)
	assert.Equal(t, "Dropbox", byDescription[0].Name)

	byCategory, err := repo.Search(f.ctx, "productivity")
	require.NoError(t, err)
	assert.Len(t, byCategory, 2)

	everything, err := repo.Search(f.ctx, "")
	require.NoError(t, err)
	assert.Len(t, everything, 8)
}

func testTemplates(t *testing.T, f *fixture) {
	repo := f.p.Templates()

	all, err := repo.GetAll(f.ctx)
	require.NoError(t, err)
	require.Len(t, all, 7)
	assert.Equal(t, int64(1), all[0].ID)
	assert.Equal(t, []string{"Gmail", "Slack"}, all[0].Apps)

	template, err := repo.GetByID(f.ctx, 5)
	require.NoError(t, err)
	assert.Equal(t, "Task From Email", template.Name)
	assert.NotEmpty(t, template.Nodes)

	_, err = repo.GetByID(f.ctx, 50)
	require.ErrorIs(t, err, persistence.ErrTemplateNotFound)

	productivity, err := repo.GetByCategory(f.ctx, "Productivity")
	require.NoError(t, err)
	assert.Len(t, productivity, 2)

	ids := func(templates []*models.Template) []int64 {
		out := make([]int64, len(templates))
		for i, tpl := range templates {
			out[i] = tpl.ID
		}

		return out
	}

	popular, err := repo.GetPopular(f.ctx, 0)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 1, 2, 6, 3, 4}, ids(popular))

	top, err := repo.GetPopular(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{5, 1}, ids(top))
}

func testExecutionLogs(t *testing.T, f *fixture) {
	repo := f.p.ExecutionLogs()

	ids := func(logs []*models.ExecutionLog) []int64 {
		out := make([]int64, len(logs))
		for i, log := range logs {
			out[i] = log.ID
		}

		return out
	}

	all, err := repo.GetAll(f.ctx)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 1, 2, 3, 4, 5}, ids(all))

	failed, err := repo.GetByID(f.ctx, 3)
	require.NoError(t, err)
	assert.Equal(t, models.ExecutionStatusFailed, failed.Status)
	require.NotNil(t, failed.Error)

	_, err = repo.GetByID(f.ctx, 60)
	require.ErrorIs(t, err, persistence.ErrExecutionLogNotFound)

	byWorkflow, err := repo.GetByWorkflowID(f.ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 3, 5}, ids(byWorkflow))

	none, err := repo.GetByWorkflowID(f.ctx, 77)
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	recent, err := repo.GetRecent(f.ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 1}, ids(recent))

	defaults, err := repo.GetRecent(f.ctx, 0)
	require.NoError(t, err)
	assert.Len(t, defaults, 6)
}
