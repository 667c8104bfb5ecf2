package quota

import (
	"context"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/sirupsen/logrus"
)

const lockStripes = 64

//go:generate mockery --name=Tracker --dir=. --output=./mocks --filename=quota_tracker_mock.go --case=underscore --with-expecter
type Tracker interface {
	// Peek never mutates stored state. Without a live window it reports a
	// hypothetical fresh one.
	Peek(ctx context.Context, client string) (domainQuota.Status, error)
	// Check consumes one slot when allowed. A denied check leaves state untouched.
	Check(ctx context.Context, client string) (domainQuota.Decision, error)
	Reset(ctx context.Context, client string) error
	Config() domainQuota.Config
}

type Options struct {
	TimeProvider func() time.Time
	// SerializeChecks guards the read-modify-write of Check with a per-key
	// lock. It only covers this process.
	SerializeChecks bool
}

type tracker struct {
	cfg          domainQuota.Config
	repo         domainQuota.Repository
	logger       *logrus.Logger
	timeProvider func() time.Time
	serialize    bool
	locks        [lockStripes]sync.Mutex
}

func NewTracker(
	logger *logrus.Logger,
	cfg domainQuota.Config,
	repo domainQuota.Repository,
	opts *Options,
) (Tracker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	t := &tracker{
		cfg:          cfg,
		repo:         repo,
		logger:       logger,
		timeProvider: time.Now,
	}
	if opts != nil {
		if opts.TimeProvider != nil {
			t.timeProvider = opts.TimeProvider
		}
		t.serialize = opts.SerializeChecks
	}
	return t, nil
}

func (t *tracker) Config() domainQuota.Config {
	return t.cfg
}

func (t *tracker) Peek(ctx context.Context, client string) (domainQuota.Status, error) {
	now := t.timeProvider()
	state, err := t.load(ctx, t.cfg.SubjectKey(client))
	if err != nil {
		return domainQuota.Status{}, err
	}
	if state == nil || state.Expired(now) {
		return domainQuota.Status{
			Remaining: t.cfg.Limit,
			ResetAt:   t.freshResetAt(now),
		}, nil
	}
	remaining := t.cfg.Limit - state.Count
	if remaining < 0 {
		remaining = 0
	}
	return domainQuota.Status{Remaining: remaining, ResetAt: state.ResetTime()}, nil
}

func (t *tracker) Check(ctx context.Context, client string) (domainQuota.Decision, error) {
	key := t.cfg.SubjectKey(client)
	if t.serialize {
		mu := t.lockFor(key)
		mu.Lock()
		defer mu.Unlock()
	}

	now := t.timeProvider()
	state, err := t.load(ctx, key)
	if err != nil {
		return domainQuota.Decision{}, err
	}

	if state == nil || state.Expired(now) {
		fresh := domainQuota.State{Count: 1, ResetAt: t.freshResetAt(now).UnixMilli()}
		if err := t.repo.Save(ctx, key, fresh); err != nil {
			return domainQuota.Decision{}, fmt.Errorf("failed to save quota state: %w", err)
		}
		return domainQuota.Decision{
			Allowed:   true,
			Remaining: t.cfg.Limit - 1,
			ResetAt:   fresh.ResetTime(),
		}, nil
	}

	if state.Count >= t.cfg.Limit {
		t.logger.WithFields(logrus.Fields{
			"key":      key,
			"count":    state.Count,
			"reset_at": state.ResetTime(),
		}).Debug("quota exhausted")
		return domainQuota.Decision{Allowed: false, Remaining: 0, ResetAt: state.ResetTime()}, nil
	}

	state.Count++
	if err := t.repo.Save(ctx, key, *state); err != nil {
		return domainQuota.Decision{}, fmt.Errorf("failed to save quota state: %w", err)
	}
	return domainQuota.Decision{
		Allowed:   true,
		Remaining: t.cfg.Limit - state.Count,
		ResetAt:   state.ResetTime(),
	}, nil
}

func (t *tracker) Reset(ctx context.Context, client string) error {
	key := t.cfg.SubjectKey(client)
	if err := t.repo.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to reset quota state: %w", err)
	}
	t.logger.WithField("key", key).Info("quota state reset")
	return nil
}

func (t *tracker) load(ctx context.Context, key string) (*domainQuota.State, error) {
	state, err := t.repo.Get(ctx, key)
	if err != nil {
		if domainQuota.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load quota state: %w", err)
	}
	return state, nil
}

func (t *tracker) freshResetAt(now time.Time) time.Time {
	return time.UnixMilli(now.UnixMilli() + t.cfg.Window.Milliseconds())
}

func (t *tracker) lockFor(key string) *sync.Mutex {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return &t.locks[h.Sum32()%lockStripes]
}
