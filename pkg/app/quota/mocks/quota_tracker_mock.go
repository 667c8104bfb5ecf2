package mocks

import (
	"context"

	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/stretchr/testify/mock"
)

type Tracker struct {
	mock.Mock
}

func (m *Tracker) Peek(ctx context.Context, client string) (domainQuota.Status, error) {
	args := m.Called(ctx, client)
	return args.Get(0).(domainQuota.Status), args.Error(1)
}

func (m *Tracker) Check(ctx context.Context, client string) (domainQuota.Decision, error) {
	args := m.Called(ctx, client)
	return args.Get(0).(domainQuota.Decision), args.Error(1)
}

func (m *Tracker) Reset(ctx context.Context, client string) error {
	args := m.Called(ctx, client)
	return args.Error(0)
}

func (m *Tracker) Config() domainQuota.Config {
	args := m.Called()
	return args.Get(0).(domainQuota.Config)
}
