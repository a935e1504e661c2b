// Package redis provides a record store backed by Redis hashes.
//
// Each table lives in a hash keyed by record Id with the JSON-encoded record
// as value, next to a counter that hands out new ids.
package redis

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/redis/go-redis/v9"
)

const (
	defaultPrefix    = "flowdeck"
	maxUpdateRetries = 5
)

// Store implements recordstore.Client on Redis.
type Store struct {
	client redis.UniversalClient
	prefix string
	logger *slog.Logger
}

// NewStore connects to the Redis server at url (redis://[user:pass@]host:port/db).
func NewStore(ctx context.Context, logger *slog.Logger, url string) (*Store, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}

	client := redis.NewClient(opts)

	err = client.Ping(ctx).Err()
	if err != nil {
		_ = client.Close()

		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return NewStoreWithClient(logger, client, defaultPrefix), nil
}

// NewStoreWithClient wraps an existing client. Keys are namespaced by prefix.
func NewStoreWithClient(logger *slog.Logger, client redis.UniversalClient, prefix string) *Store {
	return &Store{
		client: client,
		prefix: prefix,
		logger: logger.With("module", "redis_store"),
	}
}

func (s *Store) recordsKey(table string) string {
	return s.prefix + ":" + table + ":records"
}

func (s *Store) seqKey(table string) string {
	return s.prefix + ":" + table + ":seq"
}

// FetchRecords loads the table and evaluates the query in process.
func (s *Store) FetchRecords(ctx context.Context, table string, query recordstore.Query) (*recordstore.FetchResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	err = query.Validate(schema)
	if err != nil {
		return &recordstore.FetchResponse{Success: false, Message: err.Error()}, nil
	}

	values, err := s.client.HGetAll(ctx, s.recordsKey(table)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s records: %w", table, err)
	}

	records := make([]recordstore.Record, 0, len(values))

	for field, value := range values {
		record, err := decode(schema, value)
		if err != nil {
			return nil, fmt.Errorf("failed to decode %s record %s: %w", table, field, err)
		}

		records = append(records, record)
	}

	rows, err := recordstore.Load(schema, records)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s records: %w", table, err)
	}

	return &recordstore.FetchResponse{Success: true, Data: recordstore.Apply(rows.Sorted(), query)}, nil
}

// GetRecordByID returns one record, or a nil Data when absent.
func (s *Store) GetRecordByID(ctx context.Context, table string, id int64, query recordstore.Query) (*recordstore.RecordResponse, error) {
	schema, err := recordstore.LookupTable(table)
	if err != nil {
		return &recordstore.RecordResponse{Success: false, Message: err.Error()}, nil
	}

	record, err := s.get(ctx, s.client, schema, id)
	if err != nil {
		return nil, err
	}

	if record == nil {
		return &recordstore.RecordResponse{Success: true}, nil
	}

	return &recordstore.RecordResponse{Success: true, Data: recordstore.Project(record, query.Fields)}, nil
}

// CreateRecord stores each record under a fresh id from the table counter.
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

		id, err := s.client.Incr(ctx, s.seqKey(table)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to allocate %s id: %w", table, err)
		}

		normalized[recordstore.IDField] = id

		body, err := json.Marshal(normalized)
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s record: %w", table, err)
		}

		err = s.client.HSet(ctx, s.recordsKey(table), strconv.FormatInt(id, 10), body).Err()
		if err != nil {
			return nil, fmt.Errorf("failed to store %s record %d: %w", table, id, err)
		}

		results = append(results, recordstore.Succeeded(normalized))
	}

	return recordstore.Mutation(results...), nil
}

// UpdateRecord merges each record into the stored one. The read and the write
// run in a WATCH transaction so preconditions hold against concurrent writers.
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
			return nil, err
		}

		results = append(results, result)
	}

	return recordstore.Mutation(results...), nil
}

func (s *Store) update(
	ctx context.Context,
	schema recordstore.Table,
	id int64,
	patch recordstore.Record,
	where []recordstore.Condition,
) (recordstore.Result, error) {
	key := s.recordsKey(schema.Name)

	var result recordstore.Result

	txf := func(tx *redis.Tx) error {
		stored, err := s.get(ctx, tx, schema, id)
		if err != nil {
			return err
		}

		if stored == nil {
			result = recordstore.NotFound(id)

			return nil
		}

		if !recordstore.Satisfies(stored, where) {
			result = recordstore.PreconditionFailed(id)

			return nil
		}

		merged := recordstore.Merge(stored, patch)

		body, err := json.Marshal(merged)
		if err != nil {
			return fmt.Errorf("failed to encode %s record %d: %w", schema.Name, id, err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.HSet(ctx, key, strconv.FormatInt(id, 10), body)

			return nil
		})
		if err != nil {
			return err
		}

		result = recordstore.Succeeded(merged)

		return nil
	}

	for range maxUpdateRetries {
		err := s.client.Watch(ctx, txf, key)
		if errors.Is(err, redis.TxFailedErr) {
			s.logger.Debug("retrying contended update", "table", schema.Name, "id", id)

			continue
		}

		if err != nil {
			return recordstore.Result{}, fmt.Errorf("failed to update %s record %d: %w", schema.Name, id, err)
		}

		return result, nil
	}

	return recordstore.PreconditionFailed(id), nil
}

// DeleteRecord removes records by Id.
func (s *Store) DeleteRecord(ctx context.Context, table string, req recordstore.DeleteRequest) (*recordstore.MutationResponse, error) {
	if _, err := recordstore.LookupTable(table); err != nil {
		return &recordstore.MutationResponse{Success: false, Message: err.Error()}, nil
	}

	results := make([]recordstore.Result, 0, len(req.RecordIDs))

	for _, id := range req.RecordIDs {
		removed, err := s.client.HDel(ctx, s.recordsKey(table), strconv.FormatInt(id, 10)).Result()
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s record %d: %w", table, id, err)
		}

		if removed == 0 {
			results = append(results, recordstore.NotFound(id))

			continue
		}

		results = append(results, recordstore.Succeeded(recordstore.Record{recordstore.IDField: id}))
	}

	return recordstore.Mutation(results...), nil
}

// HealthCheck pings the server.
func (s *Store) HealthCheck(ctx context.Context) error {
	err := s.client.Ping(ctx).Err()
	if err != nil {
		return fmt.Errorf("failed to ping redis: %w", err)
	}

	return nil
}

// Close closes the client.
func (s *Store) Close(_ context.Context) error {
	err := s.client.Close()
	if err != nil {
		return fmt.Errorf("failed to close redis client: %w", err)
	}

	return nil
}

func (s *Store) get(ctx context.Context, client redis.HashCmdable, schema recordstore.Table, id int64) (recordstore.Record, error) {
	value, err := client.HGet(ctx, s.recordsKey(schema.Name), strconv.FormatInt(id, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}

	if err != nil {
		return nil, fmt.Errorf("failed to get %s record %d: %w", schema.Name, id, err)
	}

	record, err := decode(schema, value)
	if err != nil {
		return nil, fmt.Errorf("failed to decode %s record %d: %w", schema.Name, id, err)
	}

	return record, nil
}

func decode(schema recordstore.Table, value string) (recordstore.Record, error) {
	var record recordstore.Record

	decoder := json.NewDecoder(bytes.NewReader([]byte(value)))
	decoder.UseNumber()

	err := decoder.Decode(&record)
	if err != nil {
		return nil, err
	}

	return schema.Normalize(record)
}
