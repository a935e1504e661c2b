package file_test

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/dukex/flowdeck/pkg/recordstore/file"
	"github.com/dukex/flowdeck/pkg/recordstore/storetest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestStore_Client(t *testing.T) {
	storetest.Run(t, func(t *testing.T) recordstore.Client {
		store, err := file.NewStore(testLogger(), "file://"+t.TempDir())
		require.NoError(t, err)

		return store
	})
}

func TestStore_ReloadsFromDisk(t *testing.T) {
	ctx := context.Background()
	root := t.TempDir()

	store, err := file.NewStore(testLogger(), root)
	require.NoError(t, err)

	_, err = store.CreateRecord(ctx, recordstore.TableExecutionLog, recordstore.CreateRequest{
		Records: []recordstore.Record{{
			recordstore.ColWorkflowID: 3,
			recordstore.ColStatus:     "success",
			recordstore.ColDuration:   1250,
		}},
	})
	require.NoError(t, err)

	assert.FileExists(t, filepath.Join(root, recordstore.TableExecutionLog+".json"))

	reopened, err := file.NewStore(testLogger(), root)
	require.NoError(t, err)

	resp, err := reopened.FetchRecords(ctx, recordstore.TableExecutionLog, recordstore.Query{
		Where: []recordstore.Condition{recordstore.Equal(recordstore.ColWorkflowID, "3")},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, int64(1250), resp.Data[0][recordstore.ColDuration])
	assert.Equal(t, int64(3), resp.Data[0][recordstore.ColWorkflowID])
}

func TestStore_DoesNotReuseDeletedIDs(t *testing.T) {
	ctx := context.Background()

	store, err := file.NewStore(testLogger(), t.TempDir())
	require.NoError(t, err)

	_, err = store.CreateRecord(ctx, recordstore.TableTemplate, recordstore.CreateRequest{
		Records: []recordstore.Record{{recordstore.ColName: "a"}, {recordstore.ColName: "b"}},
	})
	require.NoError(t, err)

	_, err = store.DeleteRecord(ctx, recordstore.TableTemplate, recordstore.DeleteRequest{RecordIDs: []int64{2}})
	require.NoError(t, err)

	created, err := store.CreateRecord(ctx, recordstore.TableTemplate, recordstore.CreateRequest{
		Records: []recordstore.Record{{recordstore.ColName: "c"}},
	})
	require.NoError(t, err)

	id, ok := created.Results[0].Data.ID()
	require.True(t, ok)
	assert.Equal(t, int64(3), id)
}

func TestStore_HealthCheck(t *testing.T) {
	root := filepath.Join(t.TempDir(), "store")

	store, err := file.NewStore(testLogger(), root)
	require.NoError(t, err)
	require.NoError(t, store.HealthCheck(context.Background()))

	require.NoError(t, os.RemoveAll(root))
	assert.ErrorIs(t, store.HealthCheck(context.Background()), os.ErrNotExist)
}
