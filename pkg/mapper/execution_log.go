package mapper

import (
	"github.com/dukex/flowdeck/pkg/models"
	"github.com/dukex/flowdeck/pkg/recordstore"
)

// ExecutionLogRecord is the wire shape of an execution_log_c row.
type ExecutionLogRecord struct {
	ID           *int64
	WorkflowID   *int64
	WorkflowName *string
	Timestamp    *string
	Status       *string
	Duration     *int64
	Error        *string
	TriggerData  *string
	StepResults  *string
}

func (*ExecutionLogRecord) Kind() Kind { return KindExecutionLog }

func (*ExecutionLogRecord) Table() string { return recordstore.TableExecutionLog }

// Record returns the present fields as a store record.
func (r *ExecutionLogRecord) Record() recordstore.Record {
	w := writer{}
	w.set(recordstore.IDField, r.ID)
	w.set(recordstore.ColWorkflowID, r.WorkflowID)
	w.set(recordstore.ColWorkflowName, r.WorkflowName)
	w.set(recordstore.ColTimestamp, r.Timestamp)
	w.set(recordstore.ColStatus, r.Status)
	w.set(recordstore.ColDuration, r.Duration)
	w.set(recordstore.ColError, r.Error)
	w.set(recordstore.ColTriggerData, r.TriggerData)
	w.set(recordstore.ColStepResults, r.StepResults)

	return recordstore.Record(w)
}

// DecodeExecutionLogRecord reads an execution_log_c row.
func DecodeExecutionLogRecord(record recordstore.Record) (*ExecutionLogRecord, error) {
	r := newReader(recordstore.TableExecutionLog, record)

	wire := &ExecutionLogRecord{
		ID:           r.integer(recordstore.IDField),
		WorkflowID:   r.integer(recordstore.ColWorkflowID),
		WorkflowName: r.text(recordstore.ColWorkflowName),
		Timestamp:    r.text(recordstore.ColTimestamp),
		Status:       r.text(recordstore.ColStatus),
		Duration:     r.integer(recordstore.ColDuration),
		Error:        r.text(recordstore.ColError),
		TriggerData:  r.text(recordstore.ColTriggerData),
		StepResults:  r.text(recordstore.ColStepResults),
	}

	if r.err != nil {
		return nil, r.err
	}

	return wire, nil
}

// ExecutionLogToDomain converts a wire record, defaulting absent fields.
func ExecutionLogToDomain(r *ExecutionLogRecord) (*models.ExecutionLog, error) {
	d := &decoder{table: recordstore.TableExecutionLog, id: deref(r.ID)}

	log := &models.ExecutionLog{
		ID:           deref(r.ID),
		WorkflowID:   deref(r.WorkflowID),
		WorkflowName: deref(r.WorkflowName),
		Timestamp:    d.time(recordstore.ColTimestamp, r.Timestamp),
		Status:       models.ExecutionStatus(deref(r.Status)),
		Duration:     int(deref(r.Duration)),
		Error:        r.Error,
		TriggerData:  d.rawBlob(recordstore.ColTriggerData, r.TriggerData),
	}

	d.blob(recordstore.ColStepResults, r.StepResults, &log.StepResults)

	if d.err != nil {
		return nil, d.err
	}

	log.StepResults = nonNil(log.StepResults)

	return log, nil
}

// ExecutionLogToWire converts an execution log.
func ExecutionLogToWire(log *models.ExecutionLog) (*ExecutionLogRecord, error) {
	steps, err := marshal(nonNil(log.StepResults))
	if err != nil {
		return nil, err
	}

	return &ExecutionLogRecord{
		ID:           idPtr(log.ID),
		WorkflowID:   ptr(log.WorkflowID),
		WorkflowName: ptr(log.WorkflowName),
		Timestamp:    timePtr(log.Timestamp),
		Status:       ptr(string(log.Status)),
		Duration:     ptr(int64(log.Duration)),
		Error:        log.Error,
		TriggerData:  rawPtr(log.TriggerData),
		StepResults:  steps,
	}, nil
}

// DecodeExecutionLog converts a store record straight to an execution log.
func DecodeExecutionLog(record recordstore.Record) (*models.ExecutionLog, error) {
	wire, err := DecodeExecutionLogRecord(record)
	if err != nil {
		return nil, err
	}

	return ExecutionLogToDomain(wire)
}
