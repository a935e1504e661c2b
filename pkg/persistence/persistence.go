// Package persistence defines the repositories of workflows, the app catalog,
// templates and execution history, together with the rules every
// implementation applies when creating and updating workflows.
package persistence

import (
	"context"

	"github.com/dukex/flowdeck/pkg/models"
)

// Default result sizes.
const (
	DefaultPopularLimit = 6
	DefaultRecentLimit  = 20
)

// WorkflowRepository stores user workflows. GetAll returns newest first.
type WorkflowRepository interface {
	GetAll(ctx context.Context) ([]*models.Workflow, error)
	GetByID(ctx context.Context, id int64) (*models.Workflow, error)
	Create(ctx context.Context, draft *models.WorkflowDraft) (*models.Workflow, error)
	Update(ctx context.Context, id int64, update models.WorkflowUpdate) (*models.Workflow, error)
	Delete(ctx context.Context, id int64) error
	ToggleActive(ctx context.Context, id int64) (*models.Workflow, error)
}

// AppIntegrationRepository reads the app catalog in id order.
type AppIntegrationRepository interface {
	GetAll(ctx context.Context) ([]*models.AppIntegration, error)
	GetByID(ctx context.Context, id int64) (*models.AppIntegration, error)
	GetByCategory(ctx context.Context, category string) ([]*models.AppIntegration, error)
	Search(ctx context.Context, query string) ([]*models.AppIntegration, error)
}

// TemplateRepository reads workflow templates in id order.
type TemplateRepository interface {
	GetAll(ctx context.Context) ([]*models.Template, error)
	GetByID(ctx context.Context, id int64) (*models.Template, error)
	GetByCategory(ctx context.Context, category string) ([]*models.Template, error)
	GetPopular(ctx context.Context, limit int) ([]*models.Template, error)
}

// ExecutionLogRepository reads execution history, most recent first.
type ExecutionLogRepository interface {
	GetAll(ctx context.Context) ([]*models.ExecutionLog, error)
	GetByID(ctx context.Context, id int64) (*models.ExecutionLog, error)
	GetByWorkflowID(ctx context.Context, workflowID int64) ([]*models.ExecutionLog, error)
	GetRecent(ctx context.Context, limit int) ([]*models.ExecutionLog, error)
}

// Persistence groups the repositories of one backing store.
type Persistence interface {
	Workflows() WorkflowRepository
	AppIntegrations() AppIntegrationRepository
	Templates() TemplateRepository
	ExecutionLogs() ExecutionLogRepository

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
