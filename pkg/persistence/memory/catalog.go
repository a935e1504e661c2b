package memory

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/dukex/flowdeck/pkg/filter"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
)

// AppIntegrationRepository serves the app catalog in id order.
type AppIntegrationRepository struct {
	mu   sync.RWMutex
	apps []*models.AppIntegration
}

// NewAppIntegrationRepository creates a repository over copies of apps.
func NewAppIntegrationRepository(apps []*models.AppIntegration) *AppIntegrationRepository {
	r := &AppIntegrationRepository{apps: cloneAll(apps, cloneApp)}
	slices.SortStableFunc(r.apps, func(a, b *models.AppIntegration) int { return cmp.Compare(a.ID, b.ID) })

	return r
}

func (r *AppIntegrationRepository) GetAll(_ context.Context) ([]*models.AppIntegration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.apps, cloneApp), nil
}

func (r *AppIntegrationRepository) GetByID(_ context.Context, id int64) (*models.AppIntegration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, app := range r.apps {
		if app.ID == id {
			return cloneApp(app), nil
		}
	}

	return nil, persistence.NewNotFoundError(persistence.ErrAppIntegrationNotFound, id)
}

func (r *AppIntegrationRepository) GetByCategory(_ context.Context, category string) ([]*models.AppIntegration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*models.AppIntegration

	for _, app := range r.apps {
		if app.Category == category {
			matches = append(matches, cloneApp(app))
		}
	}

	return nonNil(matches), nil
}

// Search matches query against name, category and description.
func (r *AppIntegrationRepository) Search(_ context.Context, query string) ([]*models.AppIntegration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(filter.Apps(r.apps, query, filter.All), cloneApp), nil
}

// TemplateRepository serves workflow templates in id order.
type TemplateRepository struct {
	mu        sync.RWMutex
	templates []*models.Template
}

// NewTemplateRepository creates a repository over copies of templates.
func NewTemplateRepository(templates []*models.Template) *TemplateRepository {
	r := &TemplateRepository{templates: cloneAll(templates, cloneTemplate)}
	slices.SortStableFunc(r.templates, func(a, b *models.Template) int { return cmp.Compare(a.ID, b.ID) })

	return r
}

func (r *TemplateRepository) GetAll(_ context.Context) ([]*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.templates, cloneTemplate), nil
}

func (r *TemplateRepository) GetByID(_ context.Context, id int64) (*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, template := range r.templates {
		if template.ID == id {
			return cloneTemplate(template), nil
		}
	}

	return nil, persistence.NewNotFoundError(persistence.ErrTemplateNotFound, id)
}

func (r *TemplateRepository) GetByCategory(_ context.Context, category string) ([]*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var matches []*models.Template

	for _, template := range r.templates {
		if template.Category == category {
			matches = append(matches, cloneTemplate(template))
		}
	}

	return nonNil(matches), nil
}

// GetPopular returns the most used templates. Ties keep id order.
func (r *TemplateRepository) GetPopular(_ context.Context, limit int) ([]*models.Template, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	popular := cloneAll(r.templates, cloneTemplate)
	slices.SortStableFunc(popular, func(a, b *models.Template) int {
		return cmp.Compare(b.UsageCount, a.UsageCount)
	})

	return popular[:min(len(popular), persistence.Limit(limit, persistence.DefaultPopularLimit))], nil
}

func cloneAll[T any](items []T, clone func(T) T) []T {
	out := make([]T, len(items))
	for i, item := range items {
		out[i] = clone(item)
	}

	return out
}

func nonNil[T any](items []T) []T {
	if items == nil {
		return []T{}
	}

	return items
}

func cloneApp(app *models.AppIntegration) *models.AppIntegration {
	clone := *app
	clone.Triggers = slices.Clone(app.Triggers)
	clone.Actions = slices.Clone(app.Actions)

	return &clone
}

func cloneTemplate(template *models.Template) *models.Template {
	clone := *template
	clone.Apps = slices.Clone(template.Apps)

	if template.Nodes != nil {
		clone.Nodes = make([]*models.Node, len(template.Nodes))
		for i, node := range template.Nodes {
			clone.Nodes[i] = node.Clone()
		}
	}

	return &clone
}
