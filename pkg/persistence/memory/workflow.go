package memory

import (
	"context"
	"sync"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
)

// WorkflowRepository keeps workflows keyed by id. Callers always receive copies.
type WorkflowRepository struct {
	mu        sync.RWMutex
	clock     persistence.Clock
	workflows map[int64]*models.Workflow
}

// NewWorkflowRepository creates a repository holding copies of workflows.
func NewWorkflowRepository(clock persistence.Clock, workflows []*models.Workflow) *WorkflowRepository {
	r := &WorkflowRepository{
		clock:     clock,
		workflows: make(map[int64]*models.Workflow, len(workflows)),
	}

	for _, workflow := range workflows {
		r.workflows[workflow.ID] = workflow.Clone()
	}

	return r
}

func (r *WorkflowRepository) GetAll(_ context.Context) ([]*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflows := make([]*models.Workflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		workflows = append(workflows, workflow.Clone())
	}

	persistence.SortWorkflows(workflows)

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id int64) (*models.Workflow, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	workflow, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	}

	return workflow.Clone(), nil
}

func (r *WorkflowRepository) Create(_ context.Context, draft *models.WorkflowDraft) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	workflow, err := persistence.NewWorkflow(draft, r.clock())
	if err != nil {
		return nil, err
	}

	workflow.ID = maxID(r.values(), func(w *models.Workflow) int64 { return w.ID }) + 1
	r.workflows[workflow.ID] = workflow.Clone()

	return workflow, nil
}

func (r *WorkflowRepository) Update(_ context.Context, id int64, update models.WorkflowUpdate) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	}

	updated, err := persistence.ApplyUpdate(stored, update, r.clock())
	if err != nil {
		return nil, err
	}

	r.workflows[id] = updated.Clone()

	return updated, nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.workflows[id]; !ok {
		return persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	}

	delete(r.workflows, id)

	return nil
}

// ToggleActive flips isActive under the write lock, so concurrent toggles
// are serialized instead of racing.
func (r *WorkflowRepository) ToggleActive(_ context.Context, id int64) (*models.Workflow, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.workflows[id]
	if !ok {
		return nil, persistence.NewNotFoundError(persistence.ErrWorkflowNotFound, id)
	}

	active := !stored.IsActive

	updated, err := persistence.ApplyUpdate(stored, models.WorkflowUpdate{IsActive: &active}, r.clock())
	if err != nil {
		return nil, err
	}

	r.workflows[id] = updated.Clone()

	return updated, nil
}

func (r *WorkflowRepository) values() []*models.Workflow {
	values := make([]*models.Workflow, 0, len(r.workflows))
	for _, workflow := range r.workflows {
		values = append(values, workflow)
	}

	return values
}
