package mocks

import (
	"context"

	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/stretchr/testify/mock"
)

type Finder struct {
	mock.Mock
}

func (m *Finder) Find(ctx context.Context, number string) (*domainReport.Report, error) {
	args := m.Called(ctx, number)
	r, _ := args.Get(0).(*domainReport.Report)
	return r, args.Error(1)
}
