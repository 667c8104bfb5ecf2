package mocks

import (
	"context"

	"github.com/ApexGov/inspector/pkg/app/report"
	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/stretchr/testify/mock"
)

type Creator struct {
	mock.Mock
}

func (m *Creator) Create(ctx context.Context, req report.CreateRequest) (*domainReport.Report, error) {
	args := m.Called(ctx, req)
	r, _ := args.Get(0).(*domainReport.Report)
	return r, args.Error(1)
}
