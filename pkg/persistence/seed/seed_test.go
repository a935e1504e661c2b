package seed_test

import (
	"context"
	"log/slog"
	"os"
	"testing"

	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/dukex/flowdeck/pkg/recordstore/file"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault_DecodesThroughMapper(t *testing.T) {
	dataset, err := seed.Default()
	require.NoError(t, err)

	require.NotEmpty(t, dataset.Workflows)
	require.NotEmpty(t, dataset.AppIntegrations)
	require.NotEmpty(t, dataset.Templates)
	require.NotEmpty(t, dataset.ExecutionLogs)

	for i, record := range dataset.Workflows {
		workflow, err := mapper.DecodeWorkflow(record)
		require.NoError(t, err)
		assert.Equal(t, int64(i+1), workflow.ID)
		assert.NotEmpty(t, workflow.Nodes)
	}

	for _, record := range dataset.AppIntegrations {
		_, err := mapper.DecodeAppIntegration(record)
		require.NoError(t, err)
	}

	for _, record := range dataset.Templates {
		template, err := mapper.DecodeTemplate(record)
		require.NoError(t, err)
		assert.NotEmpty(t, template.Apps)
	}

	for _, record := range dataset.ExecutionLogs {
		log, err := mapper.DecodeExecutionLog(record)
		require.NoError(t, err)
		assert.False(t, log.Timestamp.IsZero())
	}
}

func TestLoad_FillsEmptyTablesOnce(t *testing.T) {
	ctx := context.Background()
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	store, err := file.NewStore(logger, t.TempDir())
	require.NoError(t, err)

	dataset, err := seed.Default()
	require.NoError(t, err)

	require.NoError(t, seed.Load(ctx, logger, store, dataset))
	require.NoError(t, seed.Load(ctx, logger, store, dataset))

	resp, err := store.FetchRecords(ctx, recordstore.TableAppIntegration, recordstore.Query{})
	require.NoError(t, err)
	require.Len(t, resp.Data, len(dataset.AppIntegrations))

	for i, record := range resp.Data {
		id, _ := record.ID()
		assert.Equal(t, int64(i+1), id)
		assert.Equal(t, dataset.AppIntegrations[i][recordstore.ColName], record[recordstore.ColName])
	}
}
