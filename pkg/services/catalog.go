package services

import (
	"context"
	"log/slog"

	"github.com/dukex/flowdeck/pkg/filter"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/otelhelper"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/template"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Catalog serves the app catalog and the workflow templates.
type Catalog struct {
	apps      persistence.AppIntegrationRepository
	templates persistence.TemplateRepository
	workflows *Workflow
	tracer    trace.Tracer
	logger    *slog.Logger
}

// NewCatalog creates a catalog service. Templates are instantiated through workflows.
func NewCatalog(persistence persistence.Persistence, workflows *Workflow, logger *slog.Logger) *Catalog {
	return &Catalog{
		apps:      persistence.AppIntegrations(),
		templates: persistence.Templates(),
		workflows: workflows,
		tracer:    otelhelper.Tracer(),
		logger:    logger.With("module", "catalog_service"),
	}
}

// AppListing is a filtered app list with the category options of the whole catalog.
type AppListing struct {
	Apps       []*models.AppIntegration `json:"apps"`
	Categories []string                 `json:"categories"`
}

// TemplateListing is a filtered template list with the category options of all templates.
type TemplateListing struct {
	Templates  []*models.Template `json:"templates"`
	Categories []string           `json:"categories"`
}

// ListApps filters the catalog by text query and category.
func (c *Catalog) ListApps(ctx context.Context, query, category string) (_ *AppListing, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "apps.list", attribute.String(otelhelper.QueryKey, query))
	defer otelhelper.End(span, &err)

	apps, err := c.apps.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &AppListing{
		Apps:       filter.Apps(apps, query, category),
		Categories: filter.AppCategories(apps),
	}, nil
}

// SearchApps matches query against app names, categories and descriptions.
func (c *Catalog) SearchApps(ctx context.Context, query string) (_ []*models.AppIntegration, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "apps.search", attribute.String(otelhelper.QueryKey, query))
	defer otelhelper.End(span, &err)

	return c.apps.Search(ctx, query)
}

func (c *Catalog) GetApp(ctx context.Context, id int64) (_ *models.AppIntegration, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "apps.get", otelhelper.ID(otelhelper.AppIDKey, id))
	defer otelhelper.End(span, &err)

	return c.apps.GetByID(ctx, id)
}

// ListTemplates filters templates by text query, including app names, and category.
func (c *Catalog) ListTemplates(ctx context.Context, query, category string) (_ *TemplateListing, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "templates.list", attribute.String(otelhelper.QueryKey, query))
	defer otelhelper.End(span, &err)

	templates, err := c.templates.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &TemplateListing{
		Templates:  filter.Templates(templates, query, category),
		Categories: filter.TemplateCategories(templates),
	}, nil
}

// PopularTemplates returns the most used templates. A non-positive limit uses the default.
func (c *Catalog) PopularTemplates(ctx context.Context, limit int) (_ []*models.Template, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "templates.popular", attribute.Int(otelhelper.LimitKey, limit))
	defer otelhelper.End(span, &err)

	return c.templates.GetPopular(ctx, limit)
}

func (c *Catalog) GetTemplate(ctx context.Context, id int64) (_ *models.Template, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "templates.get", otelhelper.ID(otelhelper.TemplateIDKey, id))
	defer otelhelper.End(span, &err)

	return c.templates.GetByID(ctx, id)
}

// UseTemplate instantiates the template and stores the result as a new workflow.
func (c *Catalog) UseTemplate(ctx context.Context, id int64) (_ *models.Workflow, err error) {
	ctx, span := otelhelper.StartSpan(ctx, c.tracer, "templates.use", otelhelper.ID(otelhelper.TemplateIDKey, id))
	defer otelhelper.End(span, &err)

	tpl, err := c.templates.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	workflow, err := c.workflows.Create(ctx, template.Instantiate(tpl))
	if err != nil {
		return nil, err
	}

	c.logger.Info("workflow created from template", "template_id", id, "workflow_id", workflow.ID)

	return workflow, nil
}
