package records

import (
	"context"
	"strings"

	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

var byIDAsc = []recordstore.OrderBy{orderBy(recordstore.IDField, recordstore.SortAsc)}

// AppIntegrationRepository reads app_integration_c.
type AppIntegrationRepository struct {
	store *store
}

func (r *AppIntegrationRepository) GetAll(ctx context.Context) ([]*models.AppIntegration, error) {
	return r.find(ctx, recordstore.Query{OrderBy: byIDAsc})
}

func (r *AppIntegrationRepository) GetByID(ctx context.Context, id int64) (*models.AppIntegration, error) {
	record, err := r.store.get(ctx, recordstore.TableAppIntegration, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, persistence.NewNotFoundError(persistence.ErrAppIntegrationNotFound, id)
	}

	return mapper.DecodeAppIntegration(record)
}

func (r *AppIntegrationRepository) GetByCategory(ctx context.Context, category string) ([]*models.AppIntegration, error) {
	return r.find(ctx, recordstore.Query{
		Where:   []recordstore.Condition{recordstore.Equal(recordstore.ColCategory, category)},
		OrderBy: byIDAsc,
	})
}

// Search matches query against name, category and description. An empty
// query returns the whole catalog.
func (r *AppIntegrationRepository) Search(ctx context.Context, query string) ([]*models.AppIntegration, error) {
	q := recordstore.Query{OrderBy: byIDAsc}

	if query = strings.TrimSpace(query); query != "" {
		q.WhereGroups = []recordstore.WhereGroup{
			recordstore.AnyContains(query, recordstore.ColName, recordstore.ColCategory, recordstore.ColDescription),
		}
	}

	return r.find(ctx, q)
}

func (r *AppIntegrationRepository) find(ctx context.Context, query recordstore.Query) ([]*models.AppIntegration, error) {
	records, err := r.store.fetch(ctx, recordstore.TableAppIntegration, query)
	if err != nil {
		return nil, err
	}

	return decodeAll(records, mapper.DecodeAppIntegration)
}

// TemplateRepository reads template_c.
type TemplateRepository struct {
	store *store
}

func (r *TemplateRepository) GetAll(ctx context.Context) ([]*models.Template, error) {
	return r.find(ctx, recordstore.Query{OrderBy: byIDAsc})
}

func (r *TemplateRepository) GetByID(ctx context.Context, id int64) (*models.Template, error) {
	record, err := r.store.get(ctx, recordstore.TableTemplate, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, persistence.NewNotFoundError(persistence.ErrTemplateNotFound, id)
	}

	return mapper.DecodeTemplate(record)
}

func (r *TemplateRepository) GetByCategory(ctx context.Context, category string) ([]*models.Template, error) {
	return r.find(ctx, recordstore.Query{
		Where:   []recordstore.Condition{recordstore.Equal(recordstore.ColCategory, category)},
		OrderBy: byIDAsc,
	})
}

func (r *TemplateRepository) GetPopular(ctx context.Context, limit int) ([]*models.Template, error) {
	return r.find(ctx, recordstore.Query{
		OrderBy: []recordstore.OrderBy{
			orderBy(recordstore.ColUsageCount, recordstore.SortDesc),
			orderBy(recordstore.IDField, recordstore.SortAsc),
		},
		PagingInfo: &recordstore.PagingInfo{Limit: persistence.Limit(limit, persistence.DefaultPopularLimit)},
	})
}

func (r *TemplateRepository) find(ctx context.Context, query recordstore.Query) ([]*models.Template, error) {
	records, err := r.store.fetch(ctx, recordstore.TableTemplate, query)
	if err != nil {
		return nil, err
	}

	return decodeAll(records, mapper.DecodeTemplate)
}
