package memory

import (
	"context"
	"slices"
	"sync"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
)

// ExecutionLogRepository serves execution history, most recent first.
type ExecutionLogRepository struct {
	mu   sync.RWMutex
	logs []*models.ExecutionLog
}

// NewExecutionLogRepository creates a repository over copies of logs.
func NewExecutionLogRepository(logs []*models.ExecutionLog) *ExecutionLogRepository {
	r := &ExecutionLogRepository{logs: cloneAll(logs, cloneLog)}
	persistence.SortExecutionLogs(r.logs)

	return r
}

func (r *ExecutionLogRepository) GetAll(_ context.Context) ([]*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return cloneAll(r.logs, cloneLog), nil
}

func (r *ExecutionLogRepository) GetByID(_ context.Context, id int64) (*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, log := range r.logs {
		if log.ID == id {
			return cloneLog(log), nil
		}
	}

	return nil, persistence.NewNotFoundError(persistence.ErrExecutionLogNotFound, id)
}

func (r *ExecutionLogRepository) GetByWorkflowID(_ context.Context, workflowID int64) ([]*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches := []*models.ExecutionLog{}

	for _, log := range r.logs {
		if log.WorkflowID == workflowID {
			matches = append(matches, cloneLog(log))
		}
	}

	return matches, nil
}

func (r *ExecutionLogRepository) GetRecent(_ context.Context, limit int) ([]*models.ExecutionLog, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	recent := r.logs[:min(len(r.logs), persistence.Limit(limit, persistence.DefaultRecentLimit))]

	return cloneAll(recent, cloneLog), nil
}

func cloneLog(log *models.ExecutionLog) *models.ExecutionLog {
	clone := *log
	clone.TriggerData = slices.Clone(log.TriggerData)
	clone.StepResults = slices.Clone(log.StepResults)

	if log.Error != nil {
		message := *log.Error
		clone.Error = &message
	}

	return &clone
}
