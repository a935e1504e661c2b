// Package mapper converts between store records and domain entities.
//
// Each table has a typed wire record whose fields are pointers: a nil field
// is absent on the wire, whether the store omitted it or sent null. Decoding
// a store record into its wire record checks column types; converting a wire
// record to its entity applies defaults for absent fields and parses the JSON
// blob columns.
package mapper

import (
	"errors"
	"fmt"
	"time"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// Kind names the entity kind a wire record carries.
type Kind string

const (
	KindWorkflow       Kind = "workflow"
	KindAppIntegration Kind = "app_integration"
	KindTemplate       Kind = "template"
	KindExecutionLog   Kind = "execution_log"
)

// WireRecord is implemented by the wire record of every table.
type WireRecord interface {
	Kind() Kind
	Table() string
	Record() recordstore.Record
}

// ErrMalformedData matches every MalformedDataError.
var ErrMalformedData = errors.New("malformed data")

// MalformedDataError reports a stored field that cannot be decoded.
type MalformedDataError struct {
	Table    string
	RecordID int64
	Field    string
	Err      error
}

func (e *MalformedDataError) Error() string {
	return fmt.Sprintf("malformed %s record %d: field %s: %v", e.Table, e.RecordID, e.Field, e.Err)
}

func (e *MalformedDataError) Unwrap() error {
	return e.Err
}

func (e *MalformedDataError) Is(target error) bool {
	return target == ErrMalformedData
}

// TimeLayout is the wire format of timestamps.
const TimeLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTime renders t in UTC with millisecond precision.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}

// ParseTime accepts RFC 3339 timestamps with any fractional precision and
// zone-less timestamps, which are read as UTC.
func ParseTime(value string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, value)
	if err == nil {
		return t.UTC(), nil
	}

	if t, zoneErr := time.ParseInLocation("2006-01-02T15:04:05.999999999", value, time.UTC); zoneErr == nil {
		return t, nil
	}

	return time.Time{}, fmt.Errorf("invalid timestamp %q: %w", value, err)
}

// reader extracts typed columns from a store record, remembering the first
// failure so decoders can read every field and check once.
type reader struct {
	table  recordstore.Table
	record recordstore.Record
	id     int64
	err    error
}

func newReader(tableName string, record recordstore.Record) *reader {
	table, err := recordstore.LookupTable(tableName)

	r := &reader{table: table, record: record, err: err}
	if id, ok := record.ID(); ok {
		r.id = id
	}

	return r
}

func (r *reader) fail(field string, err error) {
	if r.err == nil {
		r.err = &MalformedDataError{Table: r.table.Name, RecordID: r.id, Field: field, Err: err}
	}
}

func (r *reader) value(name string) any {
	if r.err != nil {
		return nil
	}

	value := r.record[name]
	if value == nil {
		return nil
	}

	column, ok := r.table.Column(name)
	if !ok {
		r.fail(name, recordstore.ErrUnknownColumn)

		return nil
	}

	converted, err := column.Convert(value)
	if err != nil {
		r.fail(name, err)

		return nil
	}

	return converted
}

func (r *reader) text(name string) *string {
	if value, ok := r.value(name).(string); ok {
		return &value
	}

	return nil
}

func (r *reader) integer(name string) *int64 {
	if value, ok := r.value(name).(int64); ok {
		return &value
	}

	return nil
}

func (r *reader) boolean(name string) *bool {
	if value, ok := r.value(name).(bool); ok {
		return &value
	}

	return nil
}

// writer builds a store record from the present fields of a wire record.
type writer recordstore.Record

func (w writer) set(name string, value any) {
	switch v := value.(type) {
	case *string:
		if v != nil {
			w[name] = *v
		}
	case *int64:
		if v != nil {
			w[name] = *v
		}
	case *bool:
		if v != nil {
			w[name] = *v
		}
	}
}

// decoder converts wire values to domain values with the defaults for absent
// fields, recording the first malformed field.
type decoder struct {
	table string
	id    int64
	err   error
}

func (d *decoder) fail(field string, err error) {
	if d.err == nil {
		d.err = &MalformedDataError{Table: d.table, RecordID: d.id, Field: field, Err: err}
	}
}

func (d *decoder) time(field string, value *string) time.Time {
	if value == nil || *value == "" {
		return time.Time{}
	}

	t, err := ParseTime(*value)
	if err != nil {
		d.fail(field, err)
	}

	return t
}

func (d *decoder) optionalTime(field string, value *string) *time.Time {
	if value == nil || *value == "" {
		return nil
	}

	t := d.time(field, value)

	return &t
}

// blob parses a JSON-encoded column into out. Absent and empty blobs leave out untouched.
func (d *decoder) blob(field string, value *string, out any) {
	if value == nil || *value == "" {
		return
	}

	err := unmarshal(*value, out)
	if err != nil {
		d.fail(field, err)
	}
}

func deref[T any](value *T) T {
	var zero T
	if value == nil {
		return zero
	}

	return *value
}

func ptr[T any](value T) *T {
	return &value
}

func timePtr(t time.Time) *string {
	if t.IsZero() {
		return nil
	}

	return ptr(FormatTime(t))
}

func idPtr(id int64) *int64 {
	if id == 0 {
		return nil
	}

	return &id
}
