package filter

import (
	"github.com/dukex/flowdeck/pkg/models"
)

// Workflows filters by name/description and by active state ("active", "inactive").
func Workflows(workflows []*models.Workflow, query, status string) []*models.Workflow {
	return Apply(workflows, Options[*models.Workflow]{
		Query: query,
		TextFields: func(w *models.Workflow) []string {
			return []string{w.Name, w.Description}
		},
		Status:   status,
		StatusOf: (*models.Workflow).Status,
	})
}

// Apps filters by name/category/description and by exact category.
func Apps(apps []*models.AppIntegration, query, category string) []*models.AppIntegration {
	return Apply(apps, Options[*models.AppIntegration]{
		Query: query,
		TextFields: func(a *models.AppIntegration) []string {
			return []string{a.Name, a.Category, a.Description}
		},
		Category:   category,
		CategoryOf: appCategory,
	})
}

// AppCategories lists the category options for apps.
func AppCategories(apps []*models.AppIntegration) []string {
	return Categories(apps, appCategory)
}

// Templates filters by name/description/app names and by exact category.
func Templates(templates []*models.Template, query, category string) []*models.Template {
	return Apply(templates, Options[*models.Template]{
		Query: query,
		TextFields: func(t *models.Template) []string {
			return append([]string{t.Name, t.Description}, t.Apps...)
		},
		Category:   category,
		CategoryOf: templateCategory,
	})
}

// TemplateCategories lists the category options for templates.
func TemplateCategories(templates []*models.Template) []string {
	return Categories(templates, templateCategory)
}

// ExecutionLogs filters by workflow name/error message and by status.
func ExecutionLogs(logs []*models.ExecutionLog, query, status string) []*models.ExecutionLog {
	return Apply(logs, Options[*models.ExecutionLog]{
		Query: query,
		TextFields: func(l *models.ExecutionLog) []string {
			fields := []string{l.WorkflowName}
			if l.Error != nil {
				fields = append(fields, *l.Error)
			}

			return fields
		},
		Status: status,
		StatusOf: func(l *models.ExecutionLog) string {
			return string(l.Status)
		},
	})
}

func appCategory(a *models.AppIntegration) string { return a.Category }

func templateCategory(t *models.Template) string { return t.Category }
