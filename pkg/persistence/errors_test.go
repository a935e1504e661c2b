package persistence_test

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/dukex/flowdeck/pkg/graph"
	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/stretchr/testify/assert"
)

func TestStandardizedErrors(t *testing.T) {
	t.Parallel()

	t.Run("per kind not found errors share ErrNotFound", func(t *testing.T) {
		for _, sentinel := range []error{
			persistence.ErrWorkflowNotFound,
			persistence.ErrAppIntegrationNotFound,
			persistence.ErrTemplateNotFound,
			persistence.ErrExecutionLogNotFound,
		} {
			err := persistence.NewNotFoundError(sentinel, 12)

			assert.True(t, persistence.IsNotFound(err))
			assert.ErrorIs(t, err, sentinel)
			assert.Contains(t, err.Error(), "12")
		}

		assert.False(t, errors.Is(persistence.NewNotFoundError(persistence.ErrTemplateNotFound, 1), persistence.ErrWorkflowNotFound))
	})

	t.Run("validation error lists violations", func(t *testing.T) {
		err := &persistence.ValidationError{Violations: []graph.Violation{
			{ConnectionID: "c1", SourceNodeID: "ghost", TargetNodeID: "a", MissingSource: true},
		}}

		wrapped := fmt.Errorf("failed to create workflow: %w", err)

		assert.True(t, persistence.IsValidation(wrapped))
		assert.False(t, persistence.IsNotFound(wrapped))
		assert.Contains(t, err.Error(), `connection "c1" references unknown source node "ghost"`)
	})

	t.Run("backing store error keeps the transport error", func(t *testing.T) {
		cause := errors.New("dial tcp: connection refused")
		err := &persistence.BackingStoreError{Op: "fetch", Table: "workflow_c", Err: cause}

		assert.True(t, persistence.IsBackingStore(err))
		assert.ErrorIs(t, err, cause)
		assert.Equal(t, "fetch on workflow_c failed: dial tcp: connection refused", err.Error())

		rejected := &persistence.BackingStoreError{Op: "create", Table: "workflow_c", Message: "quota exceeded"}
		assert.True(t, persistence.IsBackingStore(rejected))
		assert.Contains(t, rejected.Error(), "quota exceeded")
	})

	t.Run("malformed data comes from the mapper", func(t *testing.T) {
		err := &mapper.MalformedDataError{Table: "workflow_c", RecordID: 3, Field: "nodes", Err: errors.New("unexpected end")}

		assert.True(t, persistence.IsMalformedData(fmt.Errorf("decode: %w", err)))
		assert.False(t, persistence.IsBackingStore(err))
	})

	t.Run("conflict error", func(t *testing.T) {
		expected := time.Date(2024, 1, 15, 10, 30, 0, 0, time.UTC)
		err := &persistence.ConflictError{ID: 4, Expected: expected, Actual: expected.Add(time.Second)}

		assert.True(t, persistence.IsConflict(err))
		assert.Contains(t, err.Error(), "2024-01-15T10:30:01.000Z")

		assert.Contains(t, (&persistence.ConflictError{ID: 4}).Error(), "modified concurrently")
	})
}
