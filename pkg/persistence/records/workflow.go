package records

import (
	"context"
	"fmt"

	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

const workflowTable = recordstore.TableWorkflow

// WorkflowRepository stores workflows in workflow_c.
type WorkflowRepository struct {
	store *store
	clock persistence.Clock
}

func (r *WorkflowRepository) GetAll(ctx context.Context) ([]*models.Workflow, error) {
	records, err := r.store.fetch(ctx, workflowTable, recordstore.Query{
		OrderBy: []recordstore.OrderBy{orderBy(recordstore.IDField, recordstore.SortDesc)},
	})
	if err != nil {
		return nil, err
	}

	return decodeAll(records, mapper.DecodeWorkflow)
}

func (r *WorkflowRepository) GetByID(ctx context.Context, id int64) (*models.Workflow, error) {
	workflow, _, err := r.load(ctx, id)

	return workflow, err
}

// load returns the workflow together with the raw lastModified the store holds,
// which guards the next write.
func (r *WorkflowRepository) load(ctx context.Context, id int64) (*models.Workflow, any, error) {
	record, err := r.store.get(ctx, workflowTable, id)
	if err != nil {
		return nil, nil, err
	}

	if record == nil {
		return nil, nil, persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	}

	workflow, err := mapper.DecodeWorkflow(record)
	if err != nil {
		return nil, nil, err
	}

	return workflow, record[recordstore.ColLastModified], nil
}

func (r *WorkflowRepository) Create(ctx context.Context, draft *models.WorkflowDraft) (*models.Workflow, error) {
	workflow, err := persistence.NewWorkflow(draft, r.clock())
	if err != nil {
		return nil, err
	}

	wire, err := mapper.WorkflowToWire(workflow)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow: %w", err)
	}

	resp, err := r.store.client.CreateRecord(ctx, workflowTable, recordstore.CreateRequest{
		Records: []recordstore.Record{wire.Record()},
	})

	result, err := r.store.single("create", workflowTable, resp, err)
	if err != nil {
		return nil, err
	}

	if !result.Success {
		return nil, r.store.fail("create", workflowTable, result.Message, nil)
	}

	id, ok := result.Data.ID()
	if !ok {
		return nil, r.store.fail("create", workflowTable, "store returned no id", nil)
	}

	workflow.ID = id

	return workflow, nil
}

func (r *WorkflowRepository) Update(ctx context.Context, id int64, update models.WorkflowUpdate) (*models.Workflow, error) {
	stored, guard, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	updated, err := persistence.ApplyUpdate(stored, update, r.clock())
	if err != nil {
		return nil, err
	}

	// Only the fields present in the update are written.
	wire, err := mapper.WorkflowUpdateToWire(id, update, updated.LastModified)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow update: %w", err)
	}

	err = r.write(ctx, "update", stored, guard, wire)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *WorkflowRepository) Delete(ctx context.Context, id int64) error {
	resp, err := r.store.client.DeleteRecord(ctx, workflowTable, recordstore.DeleteRequest{RecordIDs: []int64{id}})

	result, err := r.store.single("delete", workflowTable, resp, err)
	if err != nil {
		return err
	}

	switch {
	case result.Success:
		return nil
	case result.Code == recordstore.CodeNotFound:
		return persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	default:
		return r.store.fail("delete", workflowTable, result.Message, nil)
	}
}

// ToggleActive flips isActive. The write only applies while the stored
// lastModified is still the one that was read; otherwise it fails with a
// ConflictError.
func (r *WorkflowRepository) ToggleActive(ctx context.Context, id int64) (*models.Workflow, error) {
	stored, guard, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}

	active := !stored.IsActive
	update := models.WorkflowUpdate{IsActive: &active}

	updated, err := persistence.ApplyUpdate(stored, update, r.clock())
	if err != nil {
		return nil, err
	}

	wire, err := mapper.WorkflowUpdateToWire(id, update, updated.LastModified)
	if err != nil {
		return nil, fmt.Errorf("failed to encode workflow update: %w", err)
	}

	err = r.write(ctx, "toggle_active", stored, guard, wire)
	if err != nil {
		return nil, err
	}

	return updated, nil
}

func (r *WorkflowRepository) write(ctx context.Context, op string, stored *models.Workflow, guard any, wire *mapper.WorkflowRecord) error {
	req := recordstore.UpdateRequest{Records: []recordstore.Record{wire.Record()}}
	if guard != nil {
		req.Where = []recordstore.Condition{recordstore.Equal(recordstore.ColLastModified, guard)}
	}

	resp, err := r.store.client.UpdateRecord(ctx, workflowTable, req)

	result, err := r.store.single(op, workflowTable, resp, err)
	if err != nil {
		return err
	}

	switch {
	case result.Success:
		return nil
	case result.Code == recordstore.CodeNotFound:
		return persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, stored.ID)
	case result.Code == recordstore.CodePreconditionFailed:
		r.store.logger.Warn("workflow changed concurrently", "op", op, "workflow_id", stored.ID)

		return &persistence.ConflictError{ID: stored.ID}
	default:
		return r.store.fail(op, workflowTable, result.Message, nil)
	}
}
