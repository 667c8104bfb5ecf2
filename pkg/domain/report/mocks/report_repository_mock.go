package mocks

import (
	"context"

	"github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Save(ctx context.Context, r *report.Report) error {
	args := m.Called(ctx, r)
	return args.Error(0)
}

func (m *Repository) GetByNumber(ctx context.Context, number string) (*report.Report, error) {
	args := m.Called(ctx, number)
	r, _ := args.Get(0).(*report.Report)
	return r, args.Error(1)
}
