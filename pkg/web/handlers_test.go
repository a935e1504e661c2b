package web_test

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/mocks"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence/memory"
	"github.com/dukex/flowdeck/pkg/persistence/records"
	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/dukex/flowdeck/pkg/services"
	"github.com/dukex/flowdeck/pkg/testutil"
	"github.com/dukex/flowdeck/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func setupTestApp(t *testing.T, opts ...memory.Option) *fiber.App {
	t.Helper()

	opts = append([]memory.Option{memory.WithClock(func() time.Time { return testutil.FixedTime })}, opts...)

	persistence, err := memory.NewPersistence(opts...)
	require.NoError(t, err)

	workflowService := services.NewWorkflow(persistence, nil, slog.Default())
	catalogService := services.NewCatalog(persistence, workflowService, slog.Default())
	activityService := services.NewActivity(persistence)

	handlers := web.NewAPIHandlers(workflowService, catalogService, activityService, validator.New(validator.WithRequiredStructEnabled()))

	app := fiber.New()
	handlers.Register(app)

	return app
}

func doRequest(t *testing.T, app *fiber.App, method, target string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		payload, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(payload)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	content, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, content
}

type problem struct {
	Type       string           `json:"type"`
	Status     int              `json:"status"`
	Detail     string           `json:"detail"`
	Violations []map[string]any `json:"violations"`
	NodeIDs    []string         `json:"nodeIds"`
}

func decodeProblem(t *testing.T, body []byte) problem {
	t.Helper()

	var p problem
	require.NoError(t, json.Unmarshal(body, &p))

	return p
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var health map[string]any
	require.NoError(t, json.Unmarshal(body, &health))
	assert.Equal(t, "healthy", health["status"])
}

func TestAPIHandlers_GetWorkflows(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedIDs    []int64
	}{
		{name: "all newest first", target: "/workflows", expectedStatus: http.StatusOK, expectedIDs: []int64{3, 2, 1}},
		{name: "active only", target: "/workflows?status=active", expectedStatus: http.StatusOK, expectedIDs: []int64{2, 1}},
		{name: "text query", target: "/workflows?q=stripe", expectedStatus: http.StatusOK, expectedIDs: []int64{2}},
		{name: "no match", target: "/workflows?q=nothing&status=inactive", expectedStatus: http.StatusOK, expectedIDs: []int64{}},
		{name: "invalid status", target: "/workflows?status=paused", expectedStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			resp, body := doRequest(t, app, http.MethodGet, tt.target, nil)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus != http.StatusOK {
				assert.Equal(t, "validation_error", decodeProblem(t, body).Type)

				return
			}

			var result struct {
				Workflows  []*models.Workflow `json:"workflows"`
				TotalCount int                `json:"total_count"`
			}
			require.NoError(t, json.Unmarshal(body, &result))

			ids := make([]int64, 0, len(result.Workflows))
			for _, w := range result.Workflows {
				ids = append(ids, w.ID)
			}

			assert.Equal(t, tt.expectedIDs, ids)
			assert.Equal(t, len(tt.expectedIDs), result.TotalCount)
		})
	}
}

func TestAPIHandlers_CreateWorkflow(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
		expectedType   string
		validateResult func(t *testing.T, body []byte)
	}{
		{
			name:           "defaults",
			requestBody:    map[string]any{},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var workflow models.Workflow
				require.NoError(t, json.Unmarshal(body, &workflow))
				assert.Equal(t, int64(4), workflow.ID)
				assert.Equal(t, models.DefaultWorkflowName, workflow.Name)
				assert.False(t, workflow.IsActive)
				assert.Equal(t, 0, workflow.RunCount)
				assert.NotNil(t, workflow.Nodes)
				assert.NotNil(t, workflow.Connections)
				assert.True(t, workflow.CreatedAt.Equal(testutil.FixedTime))
			},
		},
		{
			name: "graph with numeric node ids",
			requestBody: map[string]any{
				"name": "Numeric",
				"nodes": []map[string]any{
					{"id": 1, "type": "trigger", "appName": "Gmail", "eventType": "new_email"},
					{"id": 2, "type": "action", "appName": "Slack", "eventType": "send_message"},
				},
				"connections": []map[string]any{{"id": "c1", "sourceNodeId": 1, "targetNodeId": 2}},
			},
			expectedStatus: http.StatusCreated,
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				var workflow models.Workflow
				require.NoError(t, json.Unmarshal(body, &workflow))
				require.Len(t, workflow.Nodes, 2)
				assert.Equal(t, models.NodeID("1"), workflow.Nodes[0].ID)
				assert.Equal(t, models.NodeID("2"), workflow.Connections[0].TargetNodeID)
			},
		},
		{
			name: "dangling connection",
			requestBody: web.CreateWorkflowRequest{
				Nodes:       []*models.Node{testutil.CreateTestNode("a")},
				Connections: testutil.ChainConnections("a", "ghost"),
			},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
			validateResult: func(t *testing.T, body []byte) {
				t.Helper()

				p := decodeProblem(t, body)
				require.Len(t, p.Violations, 1)
				assert.Equal(t, "ghost", p.Violations[0]["targetNodeId"])
				assert.Equal(t, true, p.Violations[0]["missingTarget"])
			},
		},
		{
			name:           "invalid node type",
			requestBody:    map[string]any{"nodes": []map[string]any{{"id": "a", "type": "webhook"}}},
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
		{
			name:           "invalid json",
			requestBody:    "{not json",
			expectedStatus: http.StatusBadRequest,
			expectedType:   "validation_error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			resp, body := doRequest(t, app, http.MethodPost, "/workflows", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedType != "" {
				assert.Equal(t, tt.expectedType, decodeProblem(t, body).Type)
			}

			if tt.validateResult != nil {
				tt.validateResult(t, body)
			}
		})
	}
}

func TestAPIHandlers_GetWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/workflows/1", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, "Email to Slack", workflow.Name)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows/999", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "workflow_not_found", decodeProblem(t, body).Type)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/abc", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_UpdateWorkflow(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodPatch, "/workflows/3", map[string]any{
		"name":     "Form Leads v2",
		"isActive": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.Equal(t, "Form Leads v2", workflow.Name)
	assert.True(t, workflow.IsActive)
	assert.Equal(t, "Collect Typeform leads in a sheet", workflow.Description)

	resp, body = doRequest(t, app, http.MethodPatch, "/workflows/3", map[string]any{
		"name":                 "stale",
		"expectedLastModified": "2024-01-13T16:40:00.000Z",
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
	assert.Equal(t, "conflict", decodeProblem(t, body).Type)

	resp, _ = doRequest(t, app, http.MethodPatch, "/workflows/3", map[string]any{"runCount": -2})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPatch, "/workflows/3", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "validation_error", decodeProblem(t, body).Type)

	resp, _ = doRequest(t, app, http.MethodPatch, "/workflows/404", map[string]any{"name": "x"})
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_DeleteAndToggle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/workflows/1/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var workflow models.Workflow
	require.NoError(t, json.Unmarshal(body, &workflow))
	assert.False(t, workflow.IsActive)

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/1", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/1", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPost, "/workflows/1/toggle", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_GraphRoutes(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/workflows/2/order", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var order web.NodeListResponse
	require.NoError(t, json.Unmarshal(body, &order))
	require.Len(t, order.Nodes, 3)
	assert.Equal(t, models.NodeID("1"), order.Nodes[0].ID)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows/2/nodes/1/neighbors", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var neighbors web.NodeListResponse
	require.NoError(t, json.Unmarshal(body, &neighbors))
	assert.Len(t, neighbors.Nodes, 2)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/2/nodes/1/neighbors?direction=up", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodPatch, "/workflows/2", map[string]any{
		"connections": []map[string]any{
			{"id": "c1", "sourceNodeId": "1", "targetNodeId": "2"},
			{"id": "c2", "sourceNodeId": "2", "targetNodeId": "1"},
		},
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows/2/order", nil)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)

	p := decodeProblem(t, body)
	assert.Equal(t, "cycle_detected", p.Type)
	assert.Equal(t, http.StatusUnprocessableEntity, p.Status)
	assert.ElementsMatch(t, []string{"1", "2"}, p.NodeIDs)
}

func TestAPIHandlers_WorkflowExecutions(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/workflows/1/executions", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result web.ExecutionLogListResponse
	require.NoError(t, json.Unmarshal(body, &result))
	require.Len(t, result.Logs, 3)
	assert.Equal(t, int64(1), result.Logs[0].ID)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/77/executions", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func setupRecordsApp(t *testing.T, client *mocks.MockRecordStore) *fiber.App {
	t.Helper()

	persistence := records.NewPersistence(slog.Default(), client)
	workflowService := services.NewWorkflow(persistence, nil, slog.Default())

	handlers := web.NewAPIHandlers(
		workflowService,
		services.NewCatalog(persistence, workflowService, slog.Default()),
		services.NewActivity(persistence),
		validator.New(),
	)

	app := fiber.New()
	handlers.Register(app)

	return app
}

func TestAPIHandlers_StoreFailures(t *testing.T) {
	t.Parallel()

	t.Run("malformed record", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockRecordStore{}
		client.On("FetchRecords", mock.Anything, recordstore.TableWorkflow, mock.Anything).
			Return(&recordstore.FetchResponse{Success: true, Data: []recordstore.Record{
				{recordstore.IDField: int64(2), recordstore.ColConnections: "[{"},
			}}, nil)

		resp, body := doRequest(t, setupRecordsApp(t, client), http.MethodGet, "/workflows", nil)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		assert.Equal(t, "malformed_data", decodeProblem(t, body).Type)
	})

	t.Run("store unreachable", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockRecordStore{}
		client.On("GetRecordByID", mock.Anything, recordstore.TableAppIntegration, int64(1), mock.Anything).
			Return(nil, errors.New("dial tcp: connection refused"))

		resp, body := doRequest(t, setupRecordsApp(t, client), http.MethodGet, "/apps/1", nil)
		assert.Equal(t, http.StatusBadGateway, resp.StatusCode)
		assert.Equal(t, "backing_store_error", decodeProblem(t, body).Type)
	})

	t.Run("health check", func(t *testing.T) {
		t.Parallel()

		client := &mocks.MockRecordStore{}
		client.On("HealthCheck", mock.Anything).Return(errors.New("timeout"))

		resp, body := doRequest(t, setupRecordsApp(t, client), http.MethodGet, "/health", nil)
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Contains(t, string(body), "unhealthy")
	})
}

func TestAPIHandlers_EmptyStore(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t, memory.WithoutSeed())

	resp, body := doRequest(t, app, http.MethodGet, "/workflows", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"workflows":[],"total_count":0}`, string(body))
}
