// Package recordstore defines the client contract of the table-oriented record
// store that holds workflows, catalog entries and execution history, together
// with the query model shared by every store implementation.
package recordstore

import (
	"context"
	"errors"
)

var (
	// ErrUnknownTable is returned for a table outside the schema.
	ErrUnknownTable = errors.New("unknown table")

	// ErrUnknownColumn is returned when a record or query names a column outside the table schema.
	ErrUnknownColumn = errors.New("unknown column")

	// ErrInvalidValue is returned when a value cannot be stored in its column.
	ErrInvalidValue = errors.New("invalid column value")

	// ErrInvalidQuery is returned for unsupported operators or malformed conditions.
	ErrInvalidQuery = errors.New("invalid query")
)

// Per-record result codes.
const (
	CodeNotFound           = "not_found"
	CodePreconditionFailed = "precondition_failed"
	CodeInvalidRecord      = "invalid_record"
)

// Record is a flat row keyed by column name.
type Record map[string]any

// ID returns the numeric Id of the record.
func (r Record) ID() (int64, bool) {
	return AsInt64(r[IDField])
}

// Clone returns a shallow copy of the record.
func (r Record) Clone() Record {
	out := make(Record, len(r))
	for key, value := range r {
		out[key] = value
	}

	return out
}

// FetchResponse is the reply to FetchRecords.
type FetchResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Data    []Record `json:"data"`
}

// RecordResponse is the reply to GetRecordByID. Data is nil when no record matched.
type RecordResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    Record `json:"data"`
}

// Result is the outcome of a mutation on a single record.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Code    string `json:"code,omitempty"`
	Data    Record `json:"data,omitempty"`
}

// MutationResponse is the reply to create, update and delete calls.
type MutationResponse struct {
	Success bool     `json:"success"`
	Message string   `json:"message,omitempty"`
	Results []Result `json:"results"`
}

// CreateRequest inserts records. Ids are assigned by the store.
type CreateRequest struct {
	Records []Record `json:"records"`
}

// UpdateRequest updates the records identified by their Id field. When Where
// is set, each record is only updated if the stored row matches every condition.
type UpdateRequest struct {
	Records []Record    `json:"records"`
	Where   []Condition `json:"where,omitempty"`
}

// DeleteRequest removes records by Id.
type DeleteRequest struct {
	RecordIDs []int64 `json:"RecordIds"`
}

// Client is the contract every record store implements.
type Client interface {
	FetchRecords(ctx context.Context, table string, query Query) (*FetchResponse, error)
	GetRecordByID(ctx context.Context, table string, id int64, query Query) (*RecordResponse, error)
	CreateRecord(ctx context.Context, table string, req CreateRequest) (*MutationResponse, error)
	UpdateRecord(ctx context.Context, table string, req UpdateRequest) (*MutationResponse, error)
	DeleteRecord(ctx context.Context, table string, req DeleteRequest) (*MutationResponse, error)
	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}

// Failed builds a failed per-record result.
func Failed(code, message string) Result {
	return Result{Success: false, Code: code, Message: message}
}

// Succeeded builds a successful per-record result.
func Succeeded(data Record) Result {
	return Result{Success: true, Data: data}
}

// Mutation wraps per-record results. The response succeeds as a whole even
// when individual records fail; callers inspect each result.
func Mutation(results ...Result) *MutationResponse {
	return &MutationResponse{Success: true, Results: results}
}
