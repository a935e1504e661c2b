package memory_test

import (
	"context"
	"testing"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/persistence/memory"
	"github.com/dukex/flowdeck/pkg/persistence/persistencetest"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPersistence_Contract(t *testing.T) {
	persistencetest.Run(t, func(t *testing.T, clock persistence.Clock, dataset *seed.Dataset) persistence.Persistence {
		t.Helper()

		p, err := memory.NewPersistence(memory.WithClock(clock), memory.WithDataset(dataset))
		require.NoError(t, err)

		return p
	})
}

func TestNewPersistence_SeedsEmbeddedDataset(t *testing.T) {
	ctx := context.Background()

	p, err := memory.NewPersistence()
	require.NoError(t, err)

	workflows, err := p.Workflows().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, workflows, 3)

	apps, err := p.AppIntegrations().GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, apps, 8)

	require.NoError(t, p.HealthCheck(ctx))
	require.NoError(t, p.Close(ctx))
}

func TestNewPersistence_WithoutSeed(t *testing.T) {
	ctx := context.Background()

	p, err := memory.NewPersistence(memory.WithoutSeed())
	require.NoError(t, err)

	workflows, err := p.Workflows().GetAll(ctx)
	require.NoError(t, err)
	assert.NotNil(t, workflows)
	assert.Empty(t, workflows)

	templates, err := p.Templates().GetPopular(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, templates)

	logs, err := p.ExecutionLogs().GetRecent(ctx, 0)
	require.NoError(t, err)
	assert.Empty(t, logs)
}

func TestNewPersistence_InstancesAreIndependent(t *testing.T) {
	ctx := context.Background()

	first, err := memory.NewPersistence()
	require.NoError(t, err)

	second, err := memory.NewPersistence()
	require.NoError(t, err)

	require.NoError(t, first.Workflows().Delete(ctx, 1))

	_, err = first.Workflows().GetByID(ctx, 1)
	assert.True(t, persistence.IsNotFound(err))

	workflow, err := second.Workflows().GetByID(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Email to Slack", workflow.Name)
}

func TestNewPersistence_MalformedDataset(t *testing.T) {
	dataset := &seed.Dataset{
		Workflows: []recordstore.Record{
			{recordstore.IDField: int64(1), recordstore.ColNodes: "{not json"},
		},
	}

	_, err := memory.NewPersistence(memory.WithDataset(dataset))
	require.Error(t, err)
	assert.True(t, persistence.IsMalformedData(err))
}

func TestWorkflowRepository_CreateUsesCurrentMaximum(t *testing.T) {
	ctx := context.Background()

	p, err := memory.NewPersistence()
	require.NoError(t, err)

	repo := p.Workflows()
	require.NoError(t, repo.Delete(ctx, 3))

	created, err := repo.Create(ctx, &models.WorkflowDraft{Name: "Replacement"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), created.ID)
}
