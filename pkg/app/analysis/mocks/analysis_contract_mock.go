package mocks

import (
	"context"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/stretchr/testify/mock"
)

type Contract struct {
	mock.Mock
}

func (m *Contract) Submit(ctx context.Context, req *domainAnalysis.Request) (*domainAnalysis.Result, error) {
	args := m.Called(ctx, req)
	result, _ := args.Get(0).(*domainAnalysis.Result)
	return result, args.Error(1)
}
