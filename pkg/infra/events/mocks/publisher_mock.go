package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
)

type Publisher struct {
	mock.Mock
}

func (m *Publisher) Publish(ctx context.Context, key string, event interface{}) error {
	return m.Called(ctx, key, event).Error(0)
}

func (m *Publisher) Close() {
	m.Called()
}
