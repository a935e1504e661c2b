//go:build integration

package web_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence/records"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/recordstore/postgresql"
	"github.com/dukex/flowdeck/pkg/services"
	"github.com/dukex/flowdeck/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
)

func setupIntegrationApp(t *testing.T) *fiber.App {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	t.Cleanup(cancel)

	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("flowdeck_web"),
		postgres.WithUsername("flowdeck"),
		postgres.WithPassword("flowdeck"),
		postgres.BasicWaitStrategies(),
	)
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	databaseURL, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	store, err := postgresql.NewStore(ctx, slog.Default(), databaseURL)
	require.NoError(t, err)

	dataset, err := seed.Default()
	require.NoError(t, err)
	require.NoError(t, seed.Load(ctx, slog.Default(), store, dataset))

	persistence := records.NewPersistence(slog.Default(), store)
	t.Cleanup(func() { _ = persistence.Close(context.Background()) })

	workflowService := services.NewWorkflow(persistence, nil, slog.Default())
	handlers := web.NewAPIHandlers(
		workflowService,
		services.NewCatalog(persistence, workflowService, slog.Default()),
		services.NewActivity(persistence),
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	handlers.Register(app)

	return app
}

func TestWorkflowLifecycle_Integration(t *testing.T) {
	app := setupIntegrationApp(t)

	resp, body := doRequest(t, app, http.MethodPost, "/templates/5/use", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Workflow
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, int64(4), created.ID)
	assert.Equal(t, "Task From Email", created.Name)

	resp, body = doRequest(t, app, http.MethodPatch, "/workflows/4", map[string]any{
		"description":          "Turn starred emails into cards",
		"expectedLastModified": created.LastModified,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Workflow
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.True(t, updated.LastModified.After(created.LastModified))

	resp, _ = doRequest(t, app, http.MethodPatch, "/workflows/4", map[string]any{
		"name":                 "lost update",
		"expectedLastModified": created.LastModified,
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	resp, body = doRequest(t, app, http.MethodPost, "/workflows/4/toggle", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var toggled models.Workflow
	require.NoError(t, json.Unmarshal(body, &toggled))
	assert.True(t, toggled.IsActive)

	resp, body = doRequest(t, app, http.MethodGet, "/workflows?status=active", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list web.WorkflowListResponse
	require.NoError(t, json.Unmarshal(body, &list))
	require.Len(t, list.Workflows, 3)
	assert.Equal(t, int64(4), list.Workflows[0].ID)

	resp, _ = doRequest(t, app, http.MethodDelete, "/workflows/4", nil)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doRequest(t, app, http.MethodGet, "/workflows/4", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestCatalog_Integration(t *testing.T) {
	app := setupIntegrationApp(t)

	resp, body := doRequest(t, app, http.MethodGet, "/apps/search?q=storage", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var search struct {
		Apps []*models.AppIntegration `json:"apps"`
	}
	require.NoError(t, json.Unmarshal(body, &search))
	require.Len(t, search.Apps, 1)
	assert.Equal(t, "Dropbox", search.Apps[0].Name)

	resp, body = doRequest(t, app, http.MethodGet, "/templates/popular?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var popular struct {
		Templates []*models.Template `json:"templates"`
	}
	require.NoError(t, json.Unmarshal(body, &popular))
	require.Len(t, popular.Templates, 2)
	assert.Equal(t, []int64{5, 1}, []int64{popular.Templates[0].ID, popular.Templates[1].ID})

	resp, body = doRequest(t, app, http.MethodGet, "/executions/recent?limit=2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var recent web.ExecutionLogListResponse
	require.NoError(t, json.Unmarshal(body, &recent))
	require.Len(t, recent.Logs, 2)
	assert.Equal(t, int64(6), recent.Logs[0].ID)
}
