package records

import (
	"context"

	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

var mostRecentFirst = []recordstore.OrderBy{
	orderBy(recordstore.ColTimestamp, recordstore.SortDesc),
	orderBy(recordstore.IDField, recordstore.SortDesc),
}

// ExecutionLogRepository reads execution_log_c.
type ExecutionLogRepository struct {
	store *store
}

func (r *ExecutionLogRepository) GetAll(ctx context.Context) ([]*models.ExecutionLog, error) {
	return r.find(ctx, recordstore.Query{OrderBy: mostRecentFirst})
}

func (r *ExecutionLogRepository) GetByID(ctx context.Context, id int64) (*models.ExecutionLog, error) {
	record, err := r.store.get(ctx, recordstore.TableExecutionLog, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return nil, persistence.NewNotFoundError(persistence.ErrExecutionLogNotFound, id)
	}

	return mapper.DecodeExecutionLog(record)
}

func (r *ExecutionLogRepository) GetByWorkflowID(ctx context.Context, workflowID int64) ([]*models.ExecutionLog, error) {
	return r.find(ctx, recordstore.Query{
		Where:   []recordstore.Condition{recordstore.Equal(recordstore.ColWorkflowID, workflowID)},
		OrderBy: mostRecentFirst,
	})
}

func (r *ExecutionLogRepository) GetRecent(ctx context.Context, limit int) ([]*models.ExecutionLog, error) {
	return r.find(ctx, recordstore.Query{
		OrderBy:    mostRecentFirst,
		PagingInfo: &recordstore.PagingInfo{Limit: persistence.Limit(limit, persistence.DefaultRecentLimit)},
	})
}

func (r *ExecutionLogRepository) find(ctx context.Context, query recordstore.Query) ([]*models.ExecutionLog, error) {
	records, err := r.store.fetch(ctx, recordstore.TableExecutionLog, query)
	if err != nil {
		return nil, err
	}

	logs, err := decodeAll(records, mapper.DecodeExecutionLog)
	if err != nil {
		return nil, err
	}

	// Stored timestamps may come from writers using another layout.
	persistence.SortExecutionLogs(logs)

	return logs, nil
}
