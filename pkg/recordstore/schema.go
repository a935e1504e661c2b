package recordstore

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
)

// Table names.
const (
	TableWorkflow       = "workflow_c"
	TableAppIntegration = "app_integration_c"
	TableTemplate       = "template_c"
	TableExecutionLog   = "execution_log_c"
)

// IDField is the numeric primary key present on every table.
const IDField = "Id"

// Column names shared by several tables.
const (
	ColName        = "name_c"
	ColDescription = "description_c"
	ColCategory    = "category_c"
	ColIcon        = "icon_c"
	ColNodes       = "nodes_c"
)

// workflow_c columns.
const (
	ColIsActive     = "is_active_c"
	ColCreatedAt    = "created_at_c"
	ColLastModified = "last_modified_c"
	ColLastRun      = "last_run_c"
	ColRunCount     = "run_count_c"
	ColConnections  = "connections_c"
)

// app_integration_c columns.
const (
	ColColor    = "color_c"
	ColTriggers = "triggers_c"
	ColActions  = "actions_c"
	ColAuthType = "auth_type_c"
)

// template_c columns.
const (
	ColUsageCount = "usage_count_c"
	ColApps       = "apps_c"
)

// execution_log_c columns.
const (
	ColWorkflowID   = "workflow_id_c"
	ColWorkflowName = "workflow_name_c"
	ColTimestamp    = "timestamp_c"
	ColStatus       = "status_c"
	ColDuration     = "duration_c"
	ColError        = "error_c"
	ColTriggerData  = "trigger_data_c"
	ColStepResults  = "step_results_c"
)

// ColumnKind is the storage type of a column. Timestamps and JSON blobs are text.
type ColumnKind int

const (
	KindText ColumnKind = iota
	KindInteger
	KindBoolean
)

// Column describes one named field of a table.
type Column struct {
	Name string
	Kind ColumnKind
}

// Table describes the columns of a logical table, excluding the Id key.
type Table struct {
	Name    string
	Columns []Column
}

// Tables lists the schema of every table in the store.
var Tables = []Table{
	{
		Name: TableWorkflow,
		Columns: []Column{
			{ColName, KindText},
			{ColDescription, KindText},
			{ColIsActive, KindBoolean},
			{ColCreatedAt, KindText},
			{ColLastModified, KindText},
			{ColLastRun, KindText},
			{ColRunCount, KindInteger},
			{ColNodes, KindText},
			{ColConnections, KindText},
		},
	},
	{
		Name: TableAppIntegration,
		Columns: []Column{
			{ColName, KindText},
			{ColIcon, KindText},
			{ColCategory, KindText},
			{ColDescription, KindText},
			{ColColor, KindText},
			{ColTriggers, KindText},
			{ColActions, KindText},
			{ColAuthType, KindText},
		},
	},
	{
		Name: TableTemplate,
		Columns: []Column{
			{ColName, KindText},
			{ColDescription, KindText},
			{ColCategory, KindText},
			{ColIcon, KindText},
			{ColUsageCount, KindInteger},
			{ColApps, KindText},
			{ColNodes, KindText},
		},
	},
	{
		Name: TableExecutionLog,
		Columns: []Column{
			{ColWorkflowID, KindInteger},
			{ColWorkflowName, KindText},
			{ColTimestamp, KindText},
			{ColStatus, KindText},
			{ColDuration, KindInteger},
			{ColError, KindText},
			{ColTriggerData, KindText},
			{ColStepResults, KindText},
		},
	},
}

// LookupTable returns the schema of the named table.
func LookupTable(name string) (Table, error) {
	for _, table := range Tables {
		if table.Name == name {
			return table, nil
		}
	}

	return Table{}, fmt.Errorf("%w: %s", ErrUnknownTable, name)
}

// Column returns the named column. The Id key is reported as an integer column.
func (t Table) Column(name string) (Column, bool) {
	if name == IDField {
		return Column{Name: IDField, Kind: KindInteger}, true
	}

	for _, column := range t.Columns {
		if column.Name == name {
			return column, true
		}
	}

	return Column{}, false
}

// Normalize converts the values of a record to the canonical Go type of each
// column: string, int64 or bool. Nil values are kept. Unknown columns are rejected.
func (t Table) Normalize(record Record) (Record, error) {
	out := make(Record, len(record))

	for name, value := range record {
		column, ok := t.Column(name)
		if !ok {
			return nil, fmt.Errorf("%w: %s.%s", ErrUnknownColumn, t.Name, name)
		}

		converted, err := column.Convert(value)
		if err != nil {
			return nil, err
		}

		out[name] = converted
	}

	return out, nil
}

// Coerce converts the known columns of a record decoded from an external
// source. Unknown columns and values that do not convert are kept as they are.
func (t Table) Coerce(record Record) Record {
	if record == nil {
		return nil
	}

	out := make(Record, len(record))

	for name, value := range record {
		out[name] = value

		column, ok := t.Column(name)
		if !ok {
			continue
		}

		if converted, err := column.Convert(value); err == nil {
			out[name] = converted
		}
	}

	return out
}

// Convert coerces value to the column kind.
func (c Column) Convert(value any) (any, error) {
	if value == nil {
		return nil, nil
	}

	switch c.Kind {
	case KindInteger:
		n, ok := AsInt64(value)
		if !ok {
			return nil, fmt.Errorf("%w: %s expects an integer, got %T", ErrInvalidValue, c.Name, value)
		}

		return n, nil
	case KindBoolean:
		switch v := value.(type) {
		case bool:
			return v, nil
		case int64:
			return v != 0, nil
		case string:
			b, err := strconv.ParseBool(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s expects a boolean, got %q", ErrInvalidValue, c.Name, v)
			}

			return b, nil
		default:
			return nil, fmt.Errorf("%w: %s expects a boolean, got %T", ErrInvalidValue, c.Name, value)
		}
	default:
		switch v := value.(type) {
		case string:
			return v, nil
		case []byte:
			return string(v), nil
		default:
			return nil, fmt.Errorf("%w: %s expects text, got %T", ErrInvalidValue, c.Name, value)
		}
	}
}

// AsInt64 converts whole numbers of any numeric representation to int64.
func AsInt64(value any) (int64, bool) {
	switch v := value.(type) {
	case int:
		return int64(v), true
	case int32:
		return int64(v), true
	case int64:
		return v, true
	case float64:
		if v != math.Trunc(v) {
			return 0, false
		}

		return int64(v), true
	case float32:
		return AsInt64(float64(v))
	case json.Number:
		n, err := v.Int64()

		return n, err == nil
	case string:
		n, err := strconv.ParseInt(v, 10, 64)

		return n, err == nil
	default:
		return 0, false
	}
}
