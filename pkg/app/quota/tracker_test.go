package quota_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	appQuota "github.com/ApexGov/inspector/pkg/app/quota"
	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/ApexGov/inspector/pkg/domain/quota/mocks"
	"github.com/ApexGov/inspector/pkg/infra/repository"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock(ms int64) *fakeClock {
	return &fakeClock{now: time.UnixMilli(ms)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(ms int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = time.UnixMilli(ms)
}

func newTestTracker(t *testing.T, limit int, window time.Duration, clock *fakeClock) (appQuota.Tracker, domainQuota.Repository) {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	repo := repository.NewMemoryQuotaRepository()
	tr, err := appQuota.NewTracker(
		logger,
		domainQuota.Config{Key: "upload_limit", Limit: limit, Window: window},
		repo,
		&appQuota.Options{TimeProvider: clock.Now, SerializeChecks: true},
	)
	require.NoError(t, err)
	return tr, repo
}

func TestNewTracker_InvalidConfig(t *testing.T) {
	_, err := appQuota.NewTracker(logrus.New(), domainQuota.Config{Key: "k", Limit: 0, Window: time.Second}, repository.NewMemoryQuotaRepository(), nil)
	assert.ErrorIs(t, err, domainQuota.ErrInvalidConfig)
}

func TestTracker_ExampleScenario(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 3, time.Second, clock)
	ctx := context.Background()

	steps := []struct {
		at        int64
		allowed   bool
		remaining int
	}{
		{0, true, 2},
		{10, true, 1},
		{20, true, 0},
		{30, false, 0},
		{1050, true, 2},
	}
	for _, step := range steps {
		clock.Set(step.at)
		d, err := tr.Check(ctx, "")
		require.NoError(t, err)
		assert.Equal(t, step.allowed, d.Allowed, "t=%d", step.at)
		assert.Equal(t, step.remaining, d.Remaining, "t=%d", step.at)
	}
}

func TestTracker_ExactlyLimitChecksAllowed(t *testing.T) {
	for _, limit := range []int{1, 2, 5, 10} {
		clock := newFakeClock(1_000)
		tr, _ := newTestTracker(t, limit, time.Minute, clock)
		ctx := context.Background()

		for i := 1; i <= limit; i++ {
			d, err := tr.Check(ctx, "client")
			require.NoError(t, err)
			assert.True(t, d.Allowed)
			assert.Equal(t, limit-i, d.Remaining)
		}
		d, err := tr.Check(ctx, "client")
		require.NoError(t, err)
		assert.False(t, d.Allowed)
		assert.Equal(t, 0, d.Remaining)
	}
}

func TestTracker_DeniedCheckLeavesStateUnchanged(t *testing.T) {
	clock := newFakeClock(0)
	tr, repo := newTestTracker(t, 1, time.Minute, clock)
	ctx := context.Background()

	_, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	before, err := repo.Get(ctx, "upload_limit:c")
	require.NoError(t, err)

	d, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	after, err := repo.Get(ctx, "upload_limit:c")
	require.NoError(t, err)
	assert.Equal(t, *before, *after)
}

func TestTracker_PeekDoesNotMutate(t *testing.T) {
	clock := newFakeClock(0)
	tr, repo := newTestTracker(t, 3, time.Minute, clock)
	ctx := context.Background()

	status, err := tr.Peek(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 3, status.Remaining)
	assert.Equal(t, time.UnixMilli(60_000), status.ResetAt)

	_, err = repo.Get(ctx, "upload_limit:c")
	assert.ErrorIs(t, err, domainQuota.ErrStateNotFound)

	d, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	assert.Equal(t, 2, d.Remaining)

	for i := 0; i < 10; i++ {
		status, err = tr.Peek(ctx, "c")
		require.NoError(t, err)
		assert.Equal(t, 2, status.Remaining)
	}

	d, err = tr.Check(ctx, "c")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
}

func TestTracker_PeekAfterExhaustion(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 3, time.Minute, clock)
	ctx := context.Background()

	first, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	clock.Set(5_000)
	for i := 0; i < 2; i++ {
		_, err = tr.Check(ctx, "c")
		require.NoError(t, err)
	}
	denied, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	require.False(t, denied.Allowed)

	clock.Set(30_000)
	status, err := tr.Peek(ctx, "c")

	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining)
	assert.Equal(t, first.ResetAt, status.ResetAt)
	assert.Equal(t, time.UnixMilli(60_000), status.ResetAt)
}

func TestTracker_PeekClampsOvercount(t *testing.T) {
	clock := newFakeClock(0)
	tr, repo := newTestTracker(t, 3, time.Minute, clock)
	ctx := context.Background()

	require.NoError(t, repo.Save(ctx, "upload_limit:c", domainQuota.State{Count: 5, ResetAt: 60_000}))

	status, err := tr.Peek(ctx, "c")

	require.NoError(t, err)
	assert.Equal(t, 0, status.Remaining)
	assert.Equal(t, time.UnixMilli(60_000), status.ResetAt)
}

func TestTracker_PeekExpiredWindowReportsFreshWindow(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 2, time.Second, clock)
	ctx := context.Background()

	_, err := tr.Check(ctx, "")
	require.NoError(t, err)
	_, err = tr.Check(ctx, "")
	require.NoError(t, err)

	clock.Set(1_001)
	status, err := tr.Peek(ctx, "")
	require.NoError(t, err)
	assert.Equal(t, 2, status.Remaining)
	assert.Equal(t, time.UnixMilli(2_001), status.ResetAt)
}

func TestTracker_WindowBoundaryIsInclusive(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 1, time.Second, clock)
	ctx := context.Background()

	_, err := tr.Check(ctx, "")
	require.NoError(t, err)

	clock.Set(1_000)
	d, err := tr.Check(ctx, "")
	require.NoError(t, err)
	assert.False(t, d.Allowed)

	clock.Set(1_001)
	d, err = tr.Check(ctx, "")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.Equal(t, time.UnixMilli(2_001), d.ResetAt)
}

func TestTracker_ResetRestoresFullQuota(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 3, time.Hour, clock)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		_, err := tr.Check(ctx, "c")
		require.NoError(t, err)
	}
	require.NoError(t, tr.Reset(ctx, "c"))

	d, err := tr.Check(ctx, "c")
	require.NoError(t, err)
	assert.True(t, d.Allowed)
	assert.Equal(t, 2, d.Remaining)
}

func TestTracker_ClientsAreIndependent(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 1, time.Hour, clock)
	ctx := context.Background()

	d, err := tr.Check(ctx, "a")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = tr.Check(ctx, "b")
	require.NoError(t, err)
	assert.True(t, d.Allowed)

	d, err = tr.Check(ctx, "a")
	require.NoError(t, err)
	assert.False(t, d.Allowed)
}

func TestTracker_SerializedChecksNeverOverAdmit(t *testing.T) {
	clock := newFakeClock(0)
	tr, _ := newTestTracker(t, 5, time.Hour, clock)
	ctx := context.Background()

	var wg sync.WaitGroup
	var mu sync.Mutex
	allowed := 0
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			d, err := tr.Check(ctx, "shared")
			if err == nil && d.Allowed {
				mu.Lock()
				allowed++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, allowed)
}

func TestTracker_StorageErrors(t *testing.T) {
	repo := new(mocks.Repository)
	storeErr := errors.New("connection refused")
	repo.On("Get", mock.Anything, "upload_limit:c").Return(nil, storeErr)

	tr, err := appQuota.NewTracker(logrus.New(), domainQuota.Config{Key: "upload_limit", Limit: 3, Window: time.Hour}, repo, nil)
	require.NoError(t, err)

	_, err = tr.Check(context.Background(), "c")
	assert.ErrorIs(t, err, storeErr)

	_, err = tr.Peek(context.Background(), "c")
	assert.ErrorIs(t, err, storeErr)
	repo.AssertNotCalled(t, "Save", mock.Anything, mock.Anything, mock.Anything)
}

func TestTracker_SaveErrorIsReturned(t *testing.T) {
	repo := new(mocks.Repository)
	saveErr := errors.New("read only")
	repo.On("Get", mock.Anything, "upload_limit").Return(nil, domainQuota.ErrStateNotFound)
	repo.On("Save", mock.Anything, "upload_limit", mock.AnythingOfType("quota.State")).Return(saveErr)

	tr, err := appQuota.NewTracker(logrus.New(), domainQuota.Config{Key: "upload_limit", Limit: 3, Window: time.Hour}, repo, nil)
	require.NoError(t, err)

	_, err = tr.Check(context.Background(), "")
	assert.ErrorIs(t, err, saveErr)
}
