// Package storetest holds the behavioral tests every recordstore.Client implementation must pass.
package storetest

import (
	"context"
	"testing"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Factory returns an empty store. The store is closed by the caller's cleanup.
type Factory func(t *testing.T) recordstore.Client

// Run executes the shared client tests against stores built by factory.
func Run(t *testing.T, factory Factory) {
	t.Helper()

	t.Run("CreateAssignsSequentialIDs", func(t *testing.T) { testCreate(t, factory(t)) })
	t.Run("FetchFiltersOrdersAndPages", func(t *testing.T) { testFetch(t, factory(t)) })
	t.Run("GetRecordByID", func(t *testing.T) { testGet(t, factory(t)) })
	t.Run("UpdateMergesColumns", func(t *testing.T) { testUpdate(t, factory(t)) })
	t.Run("UpdatePrecondition", func(t *testing.T) { testPrecondition(t, factory(t)) })
	t.Run("DeleteRemovesRecords", func(t *testing.T) { testDelete(t, factory(t)) })
	t.Run("RejectsUnknownTable", func(t *testing.T) { testUnknownTable(t, factory(t)) })
	t.Run("HealthCheck", func(t *testing.T) {
		assert.NoError(t, factory(t).HealthCheck(context.Background()))
	})
}

func seedApps(t *testing.T, client recordstore.Client) {
	t.Helper()

	resp, err := client.CreateRecord(context.Background(), recordstore.TableAppIntegration, recordstore.CreateRequest{
		Records: []recordstore.Record{
			{recordstore.ColName: "Gmail", recordstore.ColCategory: "Communication", recordstore.ColDescription: "Email by Google"},
			{recordstore.ColName: "Slack", recordstore.ColCategory: "Communication", recordstore.ColDescription: "Team chat"},
			{recordstore.ColName: "Google Sheets", recordstore.ColCategory: "Productivity", recordstore.ColDescription: "Spreadsheets"},
			{recordstore.ColName: "Stripe", recordstore.ColCategory: "Finance"},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 4)

	for _, result := range resp.Results {
		require.True(t, result.Success, result.Message)
	}
}

func idsOf(t *testing.T, records []recordstore.Record) []int64 {
	t.Helper()

	ids := make([]int64, len(records))

	for i, record := range records {
		id, ok := record.ID()
		require.True(t, ok, "record without Id: %v", record)

		ids[i] = id
	}

	return ids
}

func testCreate(t *testing.T, client recordstore.Client) {
	ctx := context.Background()

	resp, err := client.CreateRecord(ctx, recordstore.TableWorkflow, recordstore.CreateRequest{
		Records: []recordstore.Record{
			{recordstore.ColName: "First", recordstore.ColIsActive: false, recordstore.ColRunCount: 0, recordstore.ColNodes: "[]"},
			{recordstore.ColName: "Second", recordstore.ColIsActive: true, recordstore.ColRunCount: float64(2)},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 2)

	first := resp.Results[0].Data
	second := resp.Results[1].Data

	assert.Equal(t, []int64{1, 2}, idsOf(t, []recordstore.Record{first, second}))
	assert.Equal(t, "First", first[recordstore.ColName])
	assert.Equal(t, "[]", first[recordstore.ColNodes])
	assert.Equal(t, true, second[recordstore.ColIsActive])
	assert.EqualValues(t, 2, second[recordstore.ColRunCount])
	assert.Nil(t, second[recordstore.ColLastRun])

	invalid, err := client.CreateRecord(ctx, recordstore.TableWorkflow, recordstore.CreateRequest{
		Records: []recordstore.Record{{"owner_c": "someone"}},
	})
	require.NoError(t, err)

	failed := !invalid.Success || (len(invalid.Results) == 1 && !invalid.Results[0].Success)
	assert.True(t, failed, "unknown column must not be stored")
}

func testFetch(t *testing.T, client recordstore.Client) {
	ctx := context.Background()
	seedApps(t, client)

	tests := []struct {
		name     string
		query    recordstore.Query
		expected []int64
	}{
		{name: "all in id order", expected: []int64{1, 2, 3, 4}},
		{
			name:     "order by id descending",
			query:    recordstore.Query{OrderBy: []recordstore.OrderBy{{FieldName: recordstore.IDField, SortType: recordstore.SortDesc}}},
			expected: []int64{4, 3, 2, 1},
		},
		{
			name:     "equal to category",
			query:    recordstore.Query{Where: []recordstore.Condition{recordstore.Equal(recordstore.ColCategory, "Communication")}},
			expected: []int64{1, 2},
		},
		{
			name:     "contains across fields",
			query:    recordstore.Query{WhereGroups: []recordstore.WhereGroup{recordstore.AnyContains("google", recordstore.ColName, recordstore.ColCategory, recordstore.ColDescription)}},
			expected: []int64{1, 3},
		},
		{
			name: "paging",
			query: recordstore.Query{
				OrderBy:    []recordstore.OrderBy{{FieldName: recordstore.ColName, SortType: recordstore.SortAsc}},
				PagingInfo: &recordstore.PagingInfo{Limit: 2, Offset: 1},
			},
			expected: []int64{3, 2},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.FetchRecords(ctx, recordstore.TableAppIntegration, tt.query)
			require.NoError(t, err)
			require.True(t, resp.Success, resp.Message)
			assert.Equal(t, tt.expected, idsOf(t, resp.Data))
		})
	}

	resp, err := client.FetchRecords(ctx, recordstore.TableAppIntegration, recordstore.Query{
		Fields: recordstore.Select(recordstore.ColName),
		Where:  []recordstore.Condition{recordstore.Equal(recordstore.IDField, 4)},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "Stripe", resp.Data[0][recordstore.ColName])
	assert.NotContains(t, resp.Data[0], recordstore.ColCategory)

	bad, err := client.FetchRecords(ctx, recordstore.TableAppIntegration, recordstore.Query{
		Where: []recordstore.Condition{{FieldName: recordstore.ColName, Operator: "Like", Values: []any{"x"}}},
	})
	require.NoError(t, err)
	assert.False(t, bad.Success)
	assert.NotEmpty(t, bad.Message)
}

func testGet(t *testing.T, client recordstore.Client) {
	ctx := context.Background()
	seedApps(t, client)

	resp, err := client.GetRecordByID(ctx, recordstore.TableAppIntegration, 2, recordstore.Query{})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.NotNil(t, resp.Data)
	assert.Equal(t, "Slack", resp.Data[recordstore.ColName])

	missing, err := client.GetRecordByID(ctx, recordstore.TableAppIntegration, 99, recordstore.Query{})
	require.NoError(t, err)
	assert.True(t, missing.Success)
	assert.Nil(t, missing.Data)
}

func testUpdate(t *testing.T, client recordstore.Client) {
	ctx := context.Background()
	seedApps(t, client)

	resp, err := client.UpdateRecord(ctx, recordstore.TableAppIntegration, recordstore.UpdateRequest{
		Records: []recordstore.Record{
			{recordstore.IDField: int64(2), recordstore.ColDescription: "Messaging"},
			{recordstore.IDField: int64(42), recordstore.ColDescription: "Nobody"},
		},
	})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 2)

	require.True(t, resp.Results[0].Success, resp.Results[0].Message)
	assert.Equal(t, "Messaging", resp.Results[0].Data[recordstore.ColDescription])
	assert.Equal(t, "Slack", resp.Results[0].Data[recordstore.ColName])

	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, recordstore.CodeNotFound, resp.Results[1].Code)
}

func testPrecondition(t *testing.T, client recordstore.Client) {
	ctx := context.Background()

	created, err := client.CreateRecord(ctx, recordstore.TableWorkflow, recordstore.CreateRequest{
		Records: []recordstore.Record{{recordstore.ColName: "Guarded", recordstore.ColLastModified: "2024-01-15T10:30:00.000Z"}},
	})
	require.NoError(t, err)
	require.True(t, created.Results[0].Success)

	id, _ := created.Results[0].Data.ID()

	guard := []recordstore.Condition{recordstore.Equal(recordstore.ColLastModified, "2024-01-15T10:30:00.000Z")}

	first, err := client.UpdateRecord(ctx, recordstore.TableWorkflow, recordstore.UpdateRequest{
		Records: []recordstore.Record{{recordstore.IDField: id, recordstore.ColIsActive: true, recordstore.ColLastModified: "2024-01-15T10:31:00.000Z"}},
		Where:   guard,
	})
	require.NoError(t, err)
	require.True(t, first.Results[0].Success, first.Results[0].Message)

	second, err := client.UpdateRecord(ctx, recordstore.TableWorkflow, recordstore.UpdateRequest{
		Records: []recordstore.Record{{recordstore.IDField: id, recordstore.ColIsActive: false, recordstore.ColLastModified: "2024-01-15T10:32:00.000Z"}},
		Where:   guard,
	})
	require.NoError(t, err)
	require.Len(t, second.Results, 1)
	assert.False(t, second.Results[0].Success)
	assert.Equal(t, recordstore.CodePreconditionFailed, second.Results[0].Code)

	current, err := client.GetRecordByID(ctx, recordstore.TableWorkflow, id, recordstore.Query{})
	require.NoError(t, err)
	assert.Equal(t, true, current.Data[recordstore.ColIsActive])
	assert.Equal(t, "2024-01-15T10:31:00.000Z", current.Data[recordstore.ColLastModified])
}

func testDelete(t *testing.T, client recordstore.Client) {
	ctx := context.Background()
	seedApps(t, client)

	resp, err := client.DeleteRecord(ctx, recordstore.TableAppIntegration, recordstore.DeleteRequest{RecordIDs: []int64{4, 77}})
	require.NoError(t, err)
	require.True(t, resp.Success, resp.Message)
	require.Len(t, resp.Results, 2)
	assert.True(t, resp.Results[0].Success)
	assert.False(t, resp.Results[1].Success)
	assert.Equal(t, recordstore.CodeNotFound, resp.Results[1].Code)

	gone, err := client.GetRecordByID(ctx, recordstore.TableAppIntegration, 4, recordstore.Query{})
	require.NoError(t, err)
	assert.Nil(t, gone.Data)

	// Ids are never handed out below the highest remaining record.
	created, err := client.CreateRecord(ctx, recordstore.TableAppIntegration, recordstore.CreateRequest{
		Records: []recordstore.Record{{recordstore.ColName: "Airtable"}},
	})
	require.NoError(t, err)

	id, _ := created.Results[0].Data.ID()
	assert.Greater(t, id, int64(3))
}

func testUnknownTable(t *testing.T, client recordstore.Client) {
	resp, err := client.FetchRecords(context.Background(), "users", recordstore.Query{})
	require.NoError(t, err)
	assert.False(t, resp.Success)
}
