package mocks

import (
	"context"

	"github.com/dukex/flowdeck/pkg/recordstore"
	"github.com/stretchr/testify/mock"
)

// MockRecordStore is a mock implementation of recordstore.Client.
type MockRecordStore struct {
	mock.Mock
}

func (m *MockRecordStore) FetchRecords(ctx context.Context, table string, query recordstore.Query) (*recordstore.FetchResponse, error) {
	args := m.Called(ctx, table, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recordstore.FetchResponse), args.Error(1)
}

func (m *MockRecordStore) GetRecordByID(ctx context.Context, table string, id int64, query recordstore.Query) (*recordstore.RecordResponse, error) {
	args := m.Called(ctx, table, id, query)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recordstore.RecordResponse), args.Error(1)
}

func (m *MockRecordStore) CreateRecord(ctx context.Context, table string, req recordstore.CreateRequest) (*recordstore.MutationResponse, error) {
	args := m.Called(ctx, table, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recordstore.MutationResponse), args.Error(1)
}

func (m *MockRecordStore) UpdateRecord(ctx context.Context, table string, req recordstore.UpdateRequest) (*recordstore.MutationResponse, error) {
	args := m.Called(ctx, table, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recordstore.MutationResponse), args.Error(1)
}

func (m *MockRecordStore) DeleteRecord(ctx context.Context, table string, req recordstore.DeleteRequest) (*recordstore.MutationResponse, error) {
	args := m.Called(ctx, table, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}

	return args.Get(0).(*recordstore.MutationResponse), args.Error(1)
}

func (m *MockRecordStore) HealthCheck(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}

func (m *MockRecordStore) Close(ctx context.Context) error {
	args := m.Called(ctx)

	return args.Error(0)
}
