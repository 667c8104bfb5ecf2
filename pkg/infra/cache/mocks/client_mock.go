package mocks

import (
	"context"
	"time"

	"github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/ApexGov/inspector/pkg/infra/cache"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/mock"
)

type Client struct {
	mock.Mock
}

func (m *Client) Get(ctx context.Context, key string) (string, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Error(1)
}

func (m *Client) Set(ctx context.Context, key string, value string, expiration time.Duration) error {
	return m.Called(ctx, key, value, expiration).Error(0)
}

func (m *Client) Delete(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

func (m *Client) RedisClient() *redis.Client {
	r, _ := m.Called().Get(0).(*redis.Client)
	return r
}

func (m *Client) CreateTTLMap(name string, ttl time.Duration) *cache.TTLMap {
	t, _ := m.Called(name, ttl).Get(0).(*cache.TTLMap)
	return t
}

func (m *Client) GetTTLMap(name string) *cache.TTLMap {
	t, _ := m.Called(name).Get(0).(*cache.TTLMap)
	return t
}

func (m *Client) ClearAllTTLMaps() {
	m.Called()
}

func (m *Client) GetReport(ctx context.Context, number string) (*report.Report, error) {
	args := m.Called(ctx, number)
	r, _ := args.Get(0).(*report.Report)
	return r, args.Error(1)
}

func (m *Client) SaveReport(ctx context.Context, r *report.Report) error {
	return m.Called(ctx, r).Error(0)
}
