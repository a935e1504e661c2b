// Package file provides a record store that keeps each table as a JSON document on disk.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/dukex/flowdeck/pkg/recordstore"
)

// document is the on-disk layout of one table.
type document struct {
	Seq     int64                `json:"seq"`
	Records []recordstore.Record `json:"records"`
}

// Store implements recordstore.Client using the file system.
type Store struct {
	root   string
	logger *slog.Logger
	mu     sync.Mutex
}

// NewStore creates a store rooted at root. A file:// prefix is stripped.
func NewStore(logger *slog.Logger, root string) (*Store, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	err := os.MkdirAll(cleanRoot, 0750)
	if err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	return &Store{root: cleanRoot, logger: logger.With("module", "file_store")}, nil
}

// FetchRecords returns the records matching the query, in Id order unless ordered otherwise.
func (s *Store) FetchRecords(_ context.Context, table string, query recordstore.Query) (*recordstore.FetchResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	err = query.Validate(schema)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.load(schema)
	if err != nil {
		return nil, err
	}

	return &recordstore.FetchResponse{Success: true, Data: recordstore.Apply(rows.Sorted(), query)}, nil
}

// GetRecordByID returns the record with the given Id, or a nil Data when absent.
func (s *Store) GetRecordByID(_ context.Context, table string, id int64, query recordstore.Query) (*recordstore.RecordResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.RecordResponse{Success: false, Message: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, _, err := s.load(schema)
	if err != nil {
		return nil, err
	}

	record, ok := rows[id]
	if !ok {
		return &recordstore.RecordResponse{Success: true}, nil
	}

	return &recordstore.RecordResponse{Success: true, Data: recordstore.Project(record, query.Fields)}, nil
}

// CreateRecord inserts the records and writes the table back.
func (s *Store) CreateRecord(_ context.Context, table string, req recordstore.CreateRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, seq, err := s.load(schema)
	if err != nil {
		return nil, err
	}

	results := rows.Create(schema, &seq, req)

	err = s.save(schema, rows, seq)
	if err != nil {
		return nil, err
	}

	return recordstore.Mutation(results...), nil
}

// UpdateRecord merges the records into the stored ones, subject to the request preconditions.
func (s *Store) UpdateRecord(_ context.Context, table string, req recordstore.UpdateRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, seq, err := s.load(schema)
	if err != nil {
		return nil, err
	}

	results, err := rows.Update(schema, req)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	err = s.save(schema, rows, seq)
	if err != nil {
		return nil, err
	}

	return recordstore.Mutation(results...), nil
}

// DeleteRecord removes records by Id.
func (s *Store) DeleteRecord(_ context.Context, table string, req recordstore.DeleteRequest) (*recordstore.MutationResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rows, seq, err := s.load(schema)
	if err != nil {
		return nil, err
	}

	results := rows.Delete(req.RecordIDs)

	err = s.save(schema, rows, seq)
	if err != nil {
		return nil, err
	}

	return recordstore.Mutation(results...), nil
}

// HealthCheck checks the root directory exists.
func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file-based storage, there is nothing to clean up.
func (s *Store) Close(_ context.Context) error {
	return nil
}

func (s *Store) path(schema recordstore.Table) string {
	return filepath.Join(s.root, schema.Name+".json")
}

func (s *Store) load(schema recordstore.Table) (recordstore.Rows, int64, error) {
	body, err := os.ReadFile(s.path(schema)) // #nosec G304 -- path is built from a known table name
	if errors.Is(err, os.ErrNotExist) {
		return recordstore.Rows{}, 0, nil
	}

	if err != nil {
		return nil, 0, fmt.Errorf("failed to read %s: %w", schema.Name, err)
	}

	var doc document

	decoder := json.NewDecoder(bytes.NewReader(body))
	decoder.UseNumber()

	err = decoder.Decode(&doc)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to decode %s: %w", schema.Name, err)
	}

	rows, err := recordstore.Load(schema, doc.Records)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to load %s: %w", schema.Name, err)
	}

	return rows, doc.Seq, nil
}

func (s *Store) save(schema recordstore.Table, rows recordstore.Rows, seq int64) error {
	data, err := json.MarshalIndent(document{Seq: seq, Records: rows.Sorted()}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", schema.Name, err)
	}

	tmp := s.path(schema) + ".tmp"

	err = os.WriteFile(tmp, data, 0600)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", schema.Name, err)
	}

	err = os.Rename(tmp, s.path(schema))
	if err != nil {
		return fmt.Errorf("failed to replace %s: %w", schema.Name, err)
	}

	s.logger.Debug("table saved", "table", schema.Name, "records", len(rows))

	return nil
}
