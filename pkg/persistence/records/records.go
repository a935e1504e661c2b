// Package records implements the repositories over a recordstore.Client.
// Every repository call is one round trip per store call; nothing is retried
// or cached at this layer.
package records

import (
	"context"
	"log/slog"
	"time"

	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

// Persistence implements persistence.Persistence over a record store.
type Persistence struct {
	client recordstore.Client
	logger *slog.Logger

	workflows       *WorkflowRepository
	appIntegrations *AppIntegrationRepository
	templates       *TemplateRepository
	executionLogs   *ExecutionLogRepository
}

// Option configures a Persistence.
type Option func(*Persistence)

// WithClock sets the time source used for workflow timestamps.
func WithClock(clock persistence.Clock) Option {
	return func(p *Persistence) {
		p.workflows.clock = clock
	}
}

// NewPersistence creates the repositories over client.
func NewPersistence(logger *slog.Logger, client recordstore.Client, opts ...Option) *Persistence {
	logger = logger.With("module", "records_persistence")
	store := &store{client: client, logger: logger}

	p := &Persistence{
		client:          client,
		logger:          logger,
		workflows:       &WorkflowRepository{store: store, clock: time.Now},
		appIntegrations: &AppIntegrationRepository{store: store},
		templates:       &TemplateRepository{store: store},
		executionLogs:   &ExecutionLogRepository{store: store},
	}

	for _, opt := range opts {
		opt(p)
	}

	return p
}

// Workflows returns the workflow repository.
func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

// AppIntegrations returns the app catalog repository.
func (p *Persistence) AppIntegrations() persistence.AppIntegrationRepository {
	return p.appIntegrations
}

// Templates returns the template repository.
func (p *Persistence) Templates() persistence.TemplateRepository {
	return p.templates
}

// ExecutionLogs returns the execution log repository.
func (p *Persistence) ExecutionLogs() persistence.ExecutionLogRepository {
	return p.executionLogs
}

// HealthCheck checks the record store.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.client.HealthCheck(ctx)
	if err != nil {
		return &persistence.BackingStoreError{Op: "health_check", Err: err}
	}

	return nil
}

// Close closes the record store client.
func (p *Persistence) Close(ctx context.Context) error {
	p.logger.Info("closing record store")

	return p.client.Close(ctx)
}

// store wraps the client calls with the checks every repository applies:
// a transport error or success false becomes a BackingStoreError, logged once.
type store struct {
	client recordstore.Client
	logger *slog.Logger
}

func (s *store) fail(op, table, message string, err error) error {
	s.logger.Error("record store call failed", "op", op, "table", table, "message", message, "error", err)

	return &persistence.BackingStoreError{Op: op, Table: table, Message: message, Err: err}
}

func (s *store) fetch(ctx context.Context, table string, query recordstore.Query) ([]recordstore.Record, error) {
	resp, err := s.client.FetchRecords(ctx, table, query)
	if err != nil {
		return nil, s.fail("fetch", table, "", err)
	}

	if !resp.Success {
		return nil, s.fail("fetch", table, resp.Message, nil)
	}

	return resp.Data, nil
}

// get returns nil when no record has the id.
func (s *store) get(ctx context.Context, table string, id int64) (recordstore.Record, error) {
	resp, err := s.client.GetRecordByID(ctx, table, id, recordstore.Query{})
	if err != nil {
		return nil, s.fail("get", table, "", err)
	}

	if !resp.Success {
		return nil, s.fail("get", table, resp.Message, nil)
	}

	if len(resp.Data) == 0 {
		return nil, nil
	}

	return resp.Data, nil
}

// single returns the only per-record result of a mutation. Failed results are
// returned as they are so callers can map their codes.
func (s *store) single(op, table string, resp *recordstore.MutationResponse, err error) (recordstore.Result, error) {
	if err != nil {
		return recordstore.Result{}, s.fail(op, table, "", err)
	}

	if !resp.Success {
		return recordstore.Result{}, s.fail(op, table, resp.Message, nil)
	}

	if len(resp.Results) != 1 {
		return recordstore.Result{}, s.fail(op, table, "expected exactly one result", nil)
	}

	return resp.Results[0], nil
}

func decodeAll[T any](records []recordstore.Record, decode func(recordstore.Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(records))

	for _, record := range records {
		item, err := decode(record)
		if err != nil {
			return nil, err
		}

		out = append(out, item)
	}

	return out, nil
}

func orderBy(field string, sort recordstore.SortType) recordstore.OrderBy {
	return recordstore.OrderBy{FieldName: field, SortType: sort}
}
