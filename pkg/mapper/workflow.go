package mapper

import (
	"time"

	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

// WorkflowRecord is the wire shape of a workflow_c row.
type WorkflowRecord struct {
	ID           *int64
	Name         *string
	Description  *string
	IsActive     *bool
	CreatedAt    *string
	LastModified *string
	LastRun      *string
	RunCount     *int64
	Nodes        *string
	Connections  *string
}

func (*WorkflowRecord) Kind() Kind { return KindWorkflow }

func (*WorkflowRecord) Table() string { return recordstore.TableWorkflow }

// Record returns the present fields as a store record.
func (r *WorkflowRecord) Record() recordstore.Record {
	w := writer{}
	w.set(recordstore.IDField, r.ID)
	w.set(recordstore.ColName, r.Name)
	w.set(recordstore.ColDescription, r.Description)
	w.set(recordstore.ColIsActive, r.IsActive)
	w.set(recordstore.ColCreatedAt, r.CreatedAt)
	w.set(recordstore.ColLastModified, r.LastModified)
	w.set(recordstore.ColLastRun, r.LastRun)
	w.set(recordstore.ColRunCount, r.RunCount)
	w.set(recordstore.ColNodes, r.Nodes)
	w.set(recordstore.ColConnections, r.Connections)

	return recordstore.Record(w)
}

// DecodeWorkflowRecord reads a workflow_c row. Columns of the wrong type are malformed.
func DecodeWorkflowRecord(record recordstore.Record) (*WorkflowRecord, error) {
	r := newReader(recordstore.TableWorkflow, record)

	wire := &WorkflowRecord{
		ID:           r.integer(recordstore.IDField),
		Name:         r.text(recordstore.ColName),
		Description:  r.text(recordstore.ColDescription),
		IsActive:     r.boolean(recordstore.ColIsActive),
		CreatedAt:    r.text(recordstore.ColCreatedAt),
		LastModified: r.text(recordstore.ColLastModified),
		LastRun:      r.text(recordstore.ColLastRun),
		RunCount:     r.integer(recordstore.ColRunCount),
		Nodes:        r.text(recordstore.ColNodes),
		Connections:  r.text(recordstore.ColConnections),
	}

	if r.err != nil {
		return nil, r.err
	}

	return wire, nil
}

// WorkflowToDomain converts a wire record, defaulting absent fields.
func WorkflowToDomain(r *WorkflowRecord) (*models.Workflow, error) {
	d := &decoder{table: recordstore.TableWorkflow, id: deref(r.ID)}

	workflow := &models.Workflow{
		ID:           deref(r.ID),
		Name:         deref(r.Name),
		Description:  deref(r.Description),
		IsActive:     deref(r.IsActive),
		CreatedAt:    d.time(recordstore.ColCreatedAt, r.CreatedAt),
		LastModified: d.time(recordstore.ColLastModified, r.LastModified),
		LastRun:      d.optionalTime(recordstore.ColLastRun, r.LastRun),
		RunCount:     int(deref(r.RunCount)),
		Nodes:        []*models.Node{},
		Connections:  []*models.Connection{},
	}

	d.blob(recordstore.ColNodes, r.Nodes, &workflow.Nodes)
	d.blob(recordstore.ColConnections, r.Connections, &workflow.Connections)

	if d.err != nil {
		return nil, d.err
	}

	if workflow.Nodes == nil {
		workflow.Nodes = []*models.Node{}
	}

	if workflow.Connections == nil {
		workflow.Connections = []*models.Connection{}
	}

	return workflow, nil
}

// WorkflowToWire converts a workflow. A zero id or timestamp is left absent.
func WorkflowToWire(w *models.Workflow) (*WorkflowRecord, error) {
	nodes, err := marshal(nonNil(w.Nodes))
	if err != nil {
		return nil, err
	}

	connections, err := marshal(nonNil(w.Connections))
	if err != nil {
		return nil, err
	}

	wire := &WorkflowRecord{
		ID:           idPtr(w.ID),
		Name:         ptr(w.Name),
		Description:  ptr(w.Description),
		IsActive:     ptr(w.IsActive),
		CreatedAt:    timePtr(w.CreatedAt),
		LastModified: timePtr(w.LastModified),
		RunCount:     ptr(int64(w.RunCount)),
		Nodes:        nodes,
		Connections:  connections,
	}

	if w.LastRun != nil {
		wire.LastRun = timePtr(*w.LastRun)
	}

	return wire, nil
}

// DecodeWorkflow converts a store record straight to a workflow.
func DecodeWorkflow(record recordstore.Record) (*models.Workflow, error) {
	wire, err := DecodeWorkflowRecord(record)
	if err != nil {
		return nil, err
	}

	return WorkflowToDomain(wire)
}

// WorkflowUpdateToWire builds the partial record of an update: the Id, the
// present fields of u and the new lastModified stamp.
func WorkflowUpdateToWire(id int64, u models.WorkflowUpdate, lastModified time.Time) (*WorkflowRecord, error) {
	wire := &WorkflowRecord{
		ID:           &id,
		Name:         u.Name,
		Description:  u.Description,
		IsActive:     u.IsActive,
		LastModified: timePtr(lastModified),
	}

	if u.LastRun != nil {
		wire.LastRun = timePtr(*u.LastRun)
	}

	if u.RunCount != nil {
		wire.RunCount = ptr(int64(*u.RunCount))
	}

	if u.Nodes != nil {
		nodes, err := marshal(u.Nodes)
		if err != nil {
			return nil, err
		}

		wire.Nodes = nodes
	}

	if u.Connections != nil {
		connections, err := marshal(u.Connections)
		if err != nil {
			return nil, err
		}

		wire.Connections = connections
	}

	return wire, nil
}
