package sqlbase

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// Store implements recordstore.Client on top of a SQL database.
type Store struct {
	db      *sql.DB
	dialect Dialect
	logger  *slog.Logger
}

// NewStore wraps an open database. Migrations must have been applied.
func NewStore(db *sql.DB, dialect Dialect, logger *slog.Logger) *Store {
	return &Store{db: db, dialect: dialect, logger: logger}
}

// DB exposes the underlying connection pool.
func (s *Store) DB() *sql.DB {
	return s.db
}

// FetchRecords returns the rows matching the query. Invalid queries yield an unsuccessful response.
func (s *Store) FetchRecords(ctx context.Context, table string, query recordstore.Query) (*recordstore.FetchResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	err = query.Validate(schema)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	b := newBuilder(s.dialect, schema)

	statement, err := b.selectQuery(query)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	records, err := s.query(ctx, schema, statement, b.args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", table, err)
	}

	for i, record := range records {
		records[i] = recordstore.Project(record, query.Fields)
	}

	return &recordstore.FetchResponse{Success: true, Data: records}, nil
}

// GetRecordByID returns the row with the given Id, or a nil Data when absent.
func (s *Store) GetRecordByID(ctx context.Context, table string, id int64, query recordstore.Query) (*recordstore.RecordResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.RecordResponse{Success: false, Message: err.Error()}, nil
	}

	record, err := s.get(ctx, schema, id)
	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %d: %w", table, id, err)
	}

	if record == nil {
		return &recordstore.RecordResponse{Success: true}, nil
	}

	return &recordstore.RecordResponse{Success: true, Data: recordstore.Project(record, query.Fields)}, nil
}

// CreateRecord inserts every record and returns them as stored.
func (s *Store) CreateRecord(ctx context.Context, table string, req recordstore.CreateRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	results := make([]recordstore.Result, 0, len(req.Records))

	for _, record := range req.Records {
		normalized, err := schema.Normalize(record)
		if err != nil {
			results = append(results, recordstore.Invalid(err))

			continue
		}

		delete(normalized, recordstore.IDField)

		id, err := s.insert(ctx, schema, normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to insert %s record: %w", table, err)
		}

		stored, err := s.get(ctx, schema, id)
		if err != nil {
			return nil, fmt.Errorf("failed to read back %s record %d: %w", table, id, err)
		}

		results = append(results, recordstore.Succeeded(stored))
	}

	return recordstore.Mutation(results...), nil
}

// UpdateRecord applies each record's columns to the row with its Id, subject to the request preconditions.
func (s *Store) UpdateRecord(ctx context.Context, table string, req recordstore.UpdateRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	ids, patches, err := recordstore.PrepareUpdate(schema, req)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	results := make([]recordstore.Result, 0, len(ids))

	for i, id := range ids {
		result, err := s.update(ctx, schema, id, patches[i], req.Where)
		if err != nil {
			return nil, fmt.Errorf("failed to update %s record %d: %w", table, id, err)
		}

		results = append(results, result)
	}

	return recordstore.Mutation(results...), nil
}

// DeleteRecord removes rows by Id. Missing ids fail individually.
func (s *Store) DeleteRecord(ctx context.Context, table string, req recordstore.DeleteRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	results := make([]recordstore.Result, 0, len(req.RecordIDs))
	statement := fmt.Sprintf("DELETE FROM %s WHERE %s = %s",
		Quote(schema.Name), Quote(recordstore.IDField), s.dialect.Placeholder(1))

	for _, id := range req.RecordIDs {
		res, err := s.db.ExecContext(ctx, statement, id)
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s record %d: %w", table, id, err)
		}

		affected, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s record %d: %w", table, id, err)
		}

		if affected == 0 {
			results = append(results, recordstore.NotFound(id))

			continue
		}

		results = append(results, recordstore.Succeeded(recordstore.Record{recordstore.IDField: id}))
	}

	return recordstore.Mutation(results...), nil
}

// HealthCheck verifies the database connection is healthy.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (s *Store) Close(_ context.Context) error {
	if s.db == nil {
		return nil
	}

	err := s.db.Close()
	if err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

func (s *Store) insert(ctx context.Context, schema recordstore.Table, record recordstore.Record) (int64, error) {
	b := newBuilder(s.dialect, schema)
	names := sortedColumns(schema, record)

	var statement string

	if len(names) == 0 {
		statement = fmt.Sprintf("INSERT INTO %s DEFAULT VALUES RETURNING %s",
			Quote(schema.Name), Quote(recordstore.IDField))
	} else {
		quoted := make([]string, len(names))
		placeholders := make([]string, len(names))

		for i, name := range names {
			quoted[i] = Quote(name)
			placeholders[i] = b.bind(record[name])
		}

		statement = fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s) RETURNING %s",
			Quote(schema.Name), strings.Join(quoted, ", "), strings.Join(placeholders, ", "), Quote(recordstore.IDField))
	}

	var id int64

	err := s.db.QueryRowContext(ctx, statement, b.args...).Scan(&id)
	if err != nil {
		return 0, err
	}

	return id, nil
}

func (s *Store) update(
	ctx context.Context,
	schema recordstore.Table,
	id int64,
	patch recordstore.Record,
	where []recordstore.Condition,
) (recordstore.Result, error) {
	b := newBuilder(s.dialect, schema)

	set := b.assignments(patch)
	idPlaceholder := b.bind(id)

	condition, err := b.whereClause(where, nil)
	if err != nil {
		return recordstore.Invalid(err), nil
	}

	statement := fmt.Sprintf("UPDATE %s SET %s WHERE %s = %s",
		Quote(schema.Name), set, Quote(recordstore.IDField), idPlaceholder)

	if condition != "" {
		statement += " AND " + condition
	}

	res, err := s.db.ExecContext(ctx, statement, b.args...)
	if err != nil {
		return recordstore.Result{}, err
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return recordstore.Result{}, err
	}

	stored, err := s.get(ctx, schema, id)
	if err != nil {
		return recordstore.Result{}, err
	}

	switch {
	case stored == nil:
		return recordstore.NotFound(id), nil
	case affected == 0 && len(where) > 0:
		return recordstore.PreconditionFailed(id), nil
	default:
		return recordstore.Succeeded(stored), nil
	}
}

func (s *Store) get(ctx context.Context, schema recordstore.Table, id int64) (recordstore.Record, error) {
	b := newBuilder(s.dialect, schema)
	statement := fmt.Sprintf("SELECT %s FROM %s WHERE %s = %s",
		b.columnList(), Quote(schema.Name), Quote(recordstore.IDField), b.bind(id))

	records, err := s.query(ctx, schema, statement, b.args...)
	if err != nil {
		return nil, err
	}

	if len(records) == 0 {
		return nil, nil
	}

	return records[0], nil
}

func (s *Store) query(ctx context.Context, schema recordstore.Table, statement string, args ...any) ([]recordstore.Record, error) {
	s.logger.DebugContext(ctx, "Executing query", "table", schema.Name, "sql", statement)

	rows, err := s.db.QueryContext(ctx, statement, args...)
	if err != nil {
		return nil, err
	}

	defer func() {
		closeErr := rows.Close()
		if closeErr != nil {
			s.logger.WarnContext(ctx, "Failed to close rows", "table", schema.Name, "error", closeErr)
		}
	}()

	records := make([]recordstore.Record, 0)

	for rows.Next() {
		record, err := scanRecord(rows, schema)
		if err != nil {
			return nil, err
		}

		records = append(records, record)
	}

	err = rows.Err()
	if err != nil {
		return nil, err
	}

	return records, nil
}

// scanRecord reads a row selected with columnList. NULL columns are kept as nil values.
func scanRecord(rows *sql.Rows, schema recordstore.Table) (recordstore.Record, error) {
	var id int64

	targets := make([]any, 0, len(schema.Columns)+1)
	targets = append(targets, &id)

	for _, column := range schema.Columns {
		switch column.Kind {
		case recordstore.KindInteger:
			targets = append(targets, &sql.NullInt64{})
		case recordstore.KindBoolean:
			targets = append(targets, &sql.NullBool{})
		default:
			targets = append(targets, &sql.NullString{})
		}
	}

	err := rows.Scan(targets...)
	if err != nil {
		return nil, err
	}

	record := recordstore.Record{recordstore.IDField: id}

	for i, column := range schema.Columns {
		switch target := targets[i+1].(type) {
		case *sql.NullInt64:
			record[column.Name] = nullable(target.Valid, target.Int64)
		case *sql.NullBool:
			record[column.Name] = nullable(target.Valid, target.Bool)
		case *sql.NullString:
			record[column.Name] = nullable(target.Valid, target.String)
		default:
			return nil, errors.New("unexpected scan target")
		}
	}

	return record, nil
}

func nullable[T any](valid bool, value T) any {
	if !valid {
		return nil
	}

	return value
}
