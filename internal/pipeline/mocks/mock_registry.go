package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tvio/ai/internal/model"
)

type MockRegistry struct {
	mock.Mock
}

func (m *MockRegistry) FetchCatalog(ctx context.Context, period string) ([]string, error) {
	args := m.Called(ctx, period)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockRegistry) FetchDetail(ctx context.Context, code string) (*model.Drug, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Drug), args.Error(1)
}

func (m *MockRegistry) FetchDocumentMetadata(ctx context.Context, code, docType string) ([]model.DocumentMeta, error) {
	args := m.Called(ctx, code, docType)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.DocumentMeta), args.Error(1)
}

func (m *MockRegistry) FetchDocumentBinary(ctx context.Context, meta model.DocumentMeta) ([]byte, error) {
	args := m.Called(ctx, meta)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]byte), args.Error(1)
}
