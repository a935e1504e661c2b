package filter_test

import (
	"testing"

	"github.com/dukex/flowdeck/pkg/filter"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/testutil"
	"github.com/stretchr/testify/assert"
)

func catalog() []*models.AppIntegration {
	return []*models.AppIntegration{
		testutil.CreateTestApp(1, "Gmail", "Communication"),
		testutil.CreateTestApp(2, "Slack", "Communication"),
		testutil.CreateTestApp(3, "Google Sheets", "Productivity"),
		testutil.CreateTestApp(4, "Stripe", "Finance"),
		testutil.CreateTestApp(5, "Trello", "Productivity"),
	}
}

func names(apps []*models.AppIntegration) []string {
	out := make([]string, len(apps))
	for i, app := range apps {
		out[i] = app.Name
	}

	return out
}

func TestApps_QueryIsCaseInsensitive(t *testing.T) {
	for _, query := range []string{"gmail", "GMAIL", "GmAi"} {
		t.Run(query, func(t *testing.T) {
			assert.Equal(t, []string{"Gmail"}, names(filter.Apps(catalog(), query, filter.All)))
		})
	}
}

func TestApps_CriteriaCompose(t *testing.T) {
	tests := []struct {
		name     string
		query    string
		category string
		expected []string
	}{
		{name: "empty query matches all", expected: []string{"Gmail", "Slack", "Google Sheets", "Stripe", "Trello"}},
		{name: "all category is a no-op", category: "all", expected: []string{"Gmail", "Slack", "Google Sheets", "Stripe", "Trello"}},
		{name: "category exact match", category: "Productivity", expected: []string{"Google Sheets", "Trello"}},
		{name: "category is case sensitive", category: "productivity", expected: []string{}},
		{name: "query matches category text", query: "finance", expected: []string{"Stripe"}},
		{name: "query matches description", query: "sheets integration", expected: []string{"Google Sheets"}},
		{name: "query and category AND together", query: "gm", category: "Communication", expected: []string{"Gmail"}},
		{name: "no match", query: "zapier", expected: []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, names(filter.Apps(catalog(), tt.query, tt.category)))
		})
	}
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	assert.Equal(t,
		[]string{"all", "Communication", "Productivity", "Finance"},
		filter.AppCategories(catalog()),
	)
	assert.Equal(t, []string{"all"}, filter.AppCategories(nil))
}

func TestWorkflows_StatusFilter(t *testing.T) {
	workflows := []*models.Workflow{
		testutil.CreateTestWorkflow(testutil.WithWorkflowID(1), testutil.WithWorkflowName("Daily report"), testutil.WithActive(true)),
		testutil.CreateTestWorkflow(testutil.WithWorkflowID(2), testutil.WithWorkflowName("Lead capture")),
		testutil.CreateTestWorkflow(testutil.WithWorkflowID(3), testutil.WithWorkflowName("Invoice sync"), testutil.WithActive(true)),
	}

	active := filter.Workflows(workflows, "", "active")
	assert.Len(t, active, 2)
	assert.Equal(t, int64(1), active[0].ID)
	assert.Equal(t, int64(3), active[1].ID)

	inactive := filter.Workflows(workflows, "", "inactive")
	assert.Len(t, inactive, 1)
	assert.Equal(t, int64(2), inactive[0].ID)

	assert.Len(t, filter.Workflows(workflows, "", "all"), 3)
	assert.Len(t, filter.Workflows(workflows, "SYNC", "active"), 1)
	assert.Empty(t, filter.Workflows(workflows, "sync", "inactive"))
}

func TestTemplates_QueryMatchesAppNames(t *testing.T) {
	templates := []*models.Template{
		testutil.CreateTestTemplate(),
		testutil.CreateTestTemplate(func(tpl *models.Template) {
			tpl.ID = 2
			tpl.Name = "Form to sheet"
			tpl.Description = "Store responses"
			tpl.Category = "Productivity"
			tpl.Apps = []string{"Typeform", "Google Sheets"}
		}),
	}

	matched := filter.Templates(templates, "typeform", "")
	assert.Len(t, matched, 1)
	assert.Equal(t, int64(2), matched[0].ID)

	assert.Len(t, filter.Templates(templates, "slack", "Communication"), 1)
	assert.Empty(t, filter.Templates(templates, "slack", "Productivity"))
	assert.Equal(t, []string{"all", "Communication", "Productivity"}, filter.TemplateCategories(templates))
}

func TestExecutionLogs_StatusAndText(t *testing.T) {
	logs := []*models.ExecutionLog{
		testutil.CreateTestExecutionLog(1, 1, models.ExecutionStatusSuccess, testutil.FixedTime),
		testutil.CreateTestExecutionLog(2, 1, models.ExecutionStatusFailed, testutil.FixedTime),
		testutil.CreateTestExecutionLog(3, 2, models.ExecutionStatusPending, testutil.FixedTime),
	}

	failed := filter.ExecutionLogs(logs, "", string(models.ExecutionStatusFailed))
	assert.Len(t, failed, 1)
	assert.Equal(t, int64(2), failed[0].ID)

	rateLimited := filter.ExecutionLogs(logs, "rate limit", "all")
	assert.Len(t, rateLimited, 1)
	assert.Equal(t, int64(2), rateLimited[0].ID)

	assert.Len(t, filter.ExecutionLogs(logs, "", ""), 3)
}

func TestApply_MissingAccessorsExcludeOnActiveCriteria(t *testing.T) {
	items := []string{"a", "b"}

	assert.Equal(t, items, filter.Apply(items, filter.Options[string]{}))
	assert.Empty(t, filter.Apply(items, filter.Options[string]{Query: "a"}))
	assert.Empty(t, filter.Apply(items, filter.Options[string]{Category: "x"}))
	assert.Equal(t, []string{"a"}, filter.Apply(items, filter.Options[string]{
		Query:      "A",
		TextFields: func(s string) []string { return []string{s} },
	}))
	assert.True(t, filter.Contains("Google Sheets", "SHEETS"))
}

func TestApps_WhitespaceQueryIsMatchedLiterally(t *testing.T) {
	apps := catalog()

	assert.Empty(t, filter.Apps(apps, "   ", ""))
	assert.Len(t, filter.Apps(apps, "", ""), len(apps))
	assert.Equal(t, []string{"Google Sheets"}, names(filter.Apps(apps, "e s", "")))
}
