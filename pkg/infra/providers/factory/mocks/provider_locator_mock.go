package mocks

import (
	"github.com/ApexGov/inspector/pkg/infra/providers"
	"github.com/stretchr/testify/mock"
)

type ProviderLocator struct {
	mock.Mock
}

func (m *ProviderLocator) Get(provider string) (providers.Client, error) {
	args := m.Called(provider)
	client, _ := args.Get(0).(providers.Client)
	return client, args.Error(1)
}
