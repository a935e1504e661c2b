// Package memory provides in-memory repositories seeded from the static dataset.
//
// Each Persistence owns its collections; nothing is shared between instances.
package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/dukex/flowdeck/pkg/mapper"
	"github.com/dukex/flowdeck/pkg/persistence"
	"github.com/dukex/flowdeck/pkg/persistence/seed"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

// Persistence implements the persistence.Persistence interface in memory.
type Persistence struct {
	workflows       *WorkflowRepository
	appIntegrations *AppIntegrationRepository
	templates       *TemplateRepository
	executionLogs   *ExecutionLogRepository
}

type config struct {
	clock   persistence.Clock
	dataset *seed.Dataset
	empty   bool
}

// Option configures a Persistence.
type Option func(*config)

// WithClock sets the time source used for timestamps.
func WithClock(clock persistence.Clock) Option {
	return func(c *config) {
		c.clock = clock
	}
}

// WithDataset seeds the repositories from dataset instead of the embedded one.
func WithDataset(dataset *seed.Dataset) Option {
	return func(c *config) {
		c.dataset = dataset
	}
}

// WithoutSeed starts with empty collections.
func WithoutSeed() Option {
	return func(c *config) {
		c.empty = true
	}
}

// NewPersistence creates repositories holding the seed data.
func NewPersistence(opts ...Option) (*Persistence, error) {
	cfg := &config{clock: time.Now}
	for _, opt := range opts {
		opt(cfg)
	}

	dataset := cfg.dataset

	switch {
	case cfg.empty:
		dataset = &seed.Dataset{}
	case dataset == nil:
		var err error

		dataset, err = seed.Default()
		if err != nil {
			return nil, err
		}
	}

	workflows, err := decodeAll(dataset.Workflows, mapper.DecodeWorkflow)
	if err != nil {
		return nil, err
	}

	apps, err := decodeAll(dataset.AppIntegrations, mapper.DecodeAppIntegration)
	if err != nil {
		return nil, err
	}

	templates, err := decodeAll(dataset.Templates, mapper.DecodeTemplate)
	if err != nil {
		return nil, err
	}

	logs, err := decodeAll(dataset.ExecutionLogs, mapper.DecodeExecutionLog)
	if err != nil {
		return nil, err
	}

	return &Persistence{
		workflows:       NewWorkflowRepository(cfg.clock, workflows),
		appIntegrations: NewAppIntegrationRepository(apps),
		templates:       NewTemplateRepository(templates),
		executionLogs:   NewExecutionLogRepository(logs),
	}, nil
}

func decodeAll[T any](records []recordstore.Record, decode func(recordstore.Record) (T, error)) ([]T, error) {
	out := make([]T, 0, len(records))

	for _, record := range records {
		item, err := decode(record)
		if err != nil {
			return nil, fmt.Errorf("failed to decode seed data: %w", err)
		}

		out = append(out, item)
	}

	return out, nil
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

// HealthCheck always succeeds.
func (p *Persistence) HealthCheck(_ context.Context) error {
	return nil
}

// Close performs any necessary cleanup. For memory persistence, there is nothing to clean up.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func maxID[T any](items []T, id func(T) int64) int64 {
	var highest int64

	for _, item := range items {
		highest = max(highest, id(item))
	}

	return highest
}
