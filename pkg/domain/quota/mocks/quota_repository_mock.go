package mocks

import (
	"context"
	"time"

	"github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/stretchr/testify/mock"
)

type Repository struct {
	mock.Mock
}

func (m *Repository) Get(ctx context.Context, key string) (*quota.State, error) {
	args := m.Called(ctx, key)
	state, _ := args.Get(0).(*quota.State)
	return state, args.Error(1)
}

func (m *Repository) Save(ctx context.Context, key string, state quota.State) error {
	args := m.Called(ctx, key, state)
	return args.Error(0)
}

func (m *Repository) Delete(ctx context.Context, key string) error {
	args := m.Called(ctx, key)
	return args.Error(0)
}

func (m *Repository) DeleteExpired(ctx context.Context, before time.Time) (int64, error) {
	args := m.Called(ctx, before)
	n, _ := args.Get(0).(int64)
	return n, args.Error(1)
}
