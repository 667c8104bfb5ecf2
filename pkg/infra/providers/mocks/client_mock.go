package mocks

import (
	"context"

	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Analyze(
	ctx context.Context,
	config *providers.Config,
	prompt *providers.VisionPrompt,
) (*providers.CompletionResponse, error) {
	args := m.Called(ctx, config, prompt)
	resp, _ := args.Get(0).(*providers.CompletionResponse)
	return resp, args.Error(1)
}
