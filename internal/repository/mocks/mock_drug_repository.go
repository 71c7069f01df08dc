package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/tvio/ai/internal/model"
)

type MockDrugRepository struct {
	mock.Mock
}

func (m *MockDrugRepository) UpsertDrug(ctx context.Context, drug *model.Drug) error {
	args := m.Called(ctx, drug)
	return args.Error(0)
}

func (m *MockDrugRepository) InsertDocumentIfAbsent(ctx context.Context, doc *model.Document) (bool, error) {
	args := m.Called(ctx, doc)
	return args.Bool(0), args.Error(1)
}
