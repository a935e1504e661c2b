package web_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/testutil"
	"github.com/dukex/flowdeck/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateWorkflowRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.WithRequiredStructEnabled())

	tests := []struct {
		name      string
		request   web.CreateWorkflowRequest
		wantErr   bool
		errFields []string
	}{
		{
			name:    "empty request uses defaults",
			request: web.CreateWorkflowRequest{},
			wantErr: false,
		},
		{
			name: "valid graph",
			request: web.CreateWorkflowRequest{
				Name:        "Email to Slack",
				Nodes:       []*models.Node{testutil.CreateTestNode("1", testutil.WithTriggerNode()), testutil.CreateTestNode("2")},
				Connections: testutil.ChainConnections("1", "2"),
			},
			wantErr: false,
		},
		{
			name:      "name too long",
			request:   web.CreateWorkflowRequest{Name: strings.Repeat("x", 201)},
			wantErr:   true,
			errFields: []string{"Name"},
		},
		{
			name:      "null node",
			request:   web.CreateWorkflowRequest{Nodes: []*models.Node{nil}},
			wantErr:   true,
			errFields: []string{"Nodes[0]"},
		},
		{
			name: "unknown node type",
			request: web.CreateWorkflowRequest{
				Nodes: []*models.Node{testutil.CreateTestNode("1", func(n *models.Node) { n.Type = "webhook" })},
			},
			wantErr:   true,
			errFields: []string{"Type"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			err := v.Struct(tt.request)
			if !tt.wantErr {
				assert.NoError(t, err)

				return
			}

			require.Error(t, err)

			var validationErrors validator.ValidationErrors
			require.True(t, errors.As(err, &validationErrors))

			fields := make([]string, 0, len(validationErrors))
			for _, fieldErr := range validationErrors {
				fields = append(fields, fieldErr.Field())
			}

			for _, field := range tt.errFields {
				assert.Contains(t, fields, field)
			}
		})
	}
}

func TestUpdateWorkflowRequest_Validation(t *testing.T) {
	t.Parallel()

	v := validator.New(validator.WithRequiredStructEnabled())

	negative := -1
	assert.Error(t, v.Struct(web.UpdateWorkflowRequest{RunCount: &negative}))

	zero := 0
	assert.NoError(t, v.Struct(web.UpdateWorkflowRequest{RunCount: &zero}))
	assert.NoError(t, v.Struct(web.UpdateWorkflowRequest{}))
}

func TestUpdateWorkflowRequest_Update(t *testing.T) {
	t.Parallel()

	name := "Renamed"
	active := false
	expected := testutil.FixedTime.Add(-time.Hour)

	update := web.UpdateWorkflowRequest{
		Name:                 &name,
		IsActive:             &active,
		ExpectedLastModified: &expected,
	}.Update()

	assert.Equal(t, &name, update.Name)
	assert.Equal(t, &active, update.IsActive)
	assert.Equal(t, &expected, update.ExpectedLastModified)
	assert.Nil(t, update.Description)
	assert.Nil(t, update.Nodes)
	assert.False(t, update.IsEmpty())
}

func TestCreateWorkflowRequest_Draft(t *testing.T) {
	t.Parallel()

	draft := web.CreateWorkflowRequest{
		Name:  "Digest",
		Nodes: []*models.Node{testutil.CreateTestNode("a")},
	}.Draft()

	assert.Equal(t, "Digest", draft.Name)
	assert.Empty(t, draft.Description)
	require.Len(t, draft.Nodes, 1)
	assert.Nil(t, draft.Connections)
}
