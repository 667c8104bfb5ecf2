package mocks

import (
	"context"

	domainAnalysis "github.com/ApexGov/inspector/pkg/domain/analysis"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Detect(ctx context.Context, image []byte, mimeType string) (*domainAnalysis.Result, error) {
	args := m.Called(ctx, image, mimeType)
	result, _ := args.Get(0).(*domainAnalysis.Result)
	return result, args.Error(1)
}
