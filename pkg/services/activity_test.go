package services

import (
	"context"
	"testing"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func logIDs(logs []*models.ExecutionLog) []int64 {
	ids := make([]int64, len(logs))
	for i, log := range logs {
		ids[i] = log.ID
	}

	return ids
}

func TestActivity_List(t *testing.T) {
	activity := NewActivity(newTestPersistence(t))
	ctx := context.Background()

	all, err := activity.List(ctx, "", "all")
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 1, 2, 3, 4, 5}, logIDs(all.Logs))
	assert.Equal(t, models.ExecutionStats{Total: 6, Success: 3, Failed: 2, Pending: 1}, all.Stats)

	failed, err := activity.List(ctx, "", "failed")
	require.NoError(t, err)
	assert.Equal(t, []int64{3, 4}, logIDs(failed.Logs))
	assert.Equal(t, 6, failed.Stats.Total)

	byError, err := activity.List(ctx, "quota", "")
	require.NoError(t, err)
	assert.Equal(t, []int64{4}, logIDs(byError.Logs))

	byName, err := activity.List(ctx, "email to slack", "success")
	require.NoError(t, err)
	assert.Equal(t, []int64{1, 5}, logIDs(byName.Logs))

	_, err = activity.List(ctx, "", "crashed")
	assert.True(t, IsValidationError(err))
}

func TestActivity_RecentAndGet(t *testing.T) {
	activity := NewActivity(newTestPersistence(t))
	ctx := context.Background()

	recent, err := activity.Recent(ctx, 2)
	require.NoError(t, err)
	assert.Equal(t, []int64{6, 1}, logIDs(recent))

	everything, err := activity.Recent(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, everything, 6)

	log, err := activity.Get(ctx, 3)
	require.NoError(t, err)
	require.NotNil(t, log.Error)
	assert.Equal(t, "Slack API rate limit exceeded", *log.Error)

	_, err = activity.Get(ctx, 77)
	assert.True(t, persistence.IsNotFound(err))
}
