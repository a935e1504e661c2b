package services

import (
	"context"

	"github.com/dukex/flowdeck/pkg/filter"
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/otelhelper"
	"github.com/dukex/flowdeck/pkg/persistence"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Activity serves the execution history.
type Activity struct {
	logs   persistence.ExecutionLogRepository
	tracer trace.Tracer
}

func NewActivity(persistence persistence.Persistence) *Activity {
	return &Activity{
		logs:   persistence.ExecutionLogs(),
		tracer: otelhelper.Tracer(),
	}
}

// ExecutionListing is a filtered log list with the statistics of the whole history.
type ExecutionListing struct {
	Logs  []*models.ExecutionLog `json:"logs"`
	Stats models.ExecutionStats  `json:"stats"`
}

// List filters the history by workflow name or error text and by status.
func (a *Activity) List(ctx context.Context, query, status string) (_ *ExecutionListing, err error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "executions.list", attribute.String(otelhelper.QueryKey, query))
	defer otelhelper.End(span, &err)

	switch models.ExecutionStatus(status) {
	case "", filter.All, models.ExecutionStatusSuccess, models.ExecutionStatusFailed, models.ExecutionStatusPending:
	default:
		return nil, NewValidationError("ListExecutions", "invalid_status", "status must be all, success, failed or pending", ErrInvalidStatus)
	}

	logs, err := a.logs.GetAll(ctx)
	if err != nil {
		return nil, err
	}

	return &ExecutionListing{
		Logs:  filter.ExecutionLogs(logs, query, status),
		Stats: models.ComputeExecutionStats(logs),
	}, nil
}

// Recent returns the latest executions. A non-positive limit uses the default.
func (a *Activity) Recent(ctx context.Context, limit int) (_ []*models.ExecutionLog, err error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "executions.recent", attribute.Int(otelhelper.LimitKey, limit))
	defer otelhelper.End(span, &err)

	return a.logs.GetRecent(ctx, limit)
}

func (a *Activity) Get(ctx context.Context, id int64) (_ *models.ExecutionLog, err error) {
	ctx, span := otelhelper.StartSpan(ctx, a.tracer, "executions.get", otelhelper.ID(otelhelper.ExecutionIDKey, id))
	defer otelhelper.End(span, &err)

	return a.logs.GetByID(ctx, id)
}
