package jobs

import (
	"context"
	"errors"
	"fmt"
	"time"

	domainQuota "github.com/ApexGov/inspector/pkg/domain/quota"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const purgeTimeout = time.Minute

var ErrEmptySchedule = errors.New("purge schedule is empty")

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// QuotaPurge deletes quota state whose window ended more than grace ago.
// Removed entries are indistinguishable from absent ones.
type QuotaPurge struct {
	logger       *logrus.Logger
	repo         domainQuota.Repository
	grace        time.Duration
	timeProvider func() time.Time
	cron         *cron.Cron
}

func NewQuotaPurge(
	logger *logrus.Logger,
	repo domainQuota.Repository,
	schedule string,
	grace time.Duration,
) (*QuotaPurge, error) {
	if schedule == "" {
		return nil, ErrEmptySchedule
	}
	j := &QuotaPurge{
		logger:       logger,
		repo:         repo,
		grace:        grace,
		timeProvider: time.Now,
		cron:         cron.New(cron.WithParser(parser)),
	}
	if _, err := j.cron.AddFunc(schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), purgeTimeout)
		defer cancel()
		_, _ = j.RunOnce(ctx)
	}); err != nil {
		return nil, fmt.Errorf("invalid purge schedule %q: %w", schedule, err)
	}
	return j, nil
}

func (j *QuotaPurge) RunOnce(ctx context.Context) (int64, error) {
	before := j.timeProvider().Add(-j.grace)
	removed, err := j.repo.DeleteExpired(ctx, before)
	if err != nil {
		j.logger.WithError(err).Error("quota purge failed")
		return 0, err
	}
	j.logger.WithFields(logrus.Fields{
		"removed": removed,
		"before":  before,
	}).Info("quota purge completed")
	return removed, nil
}

func (j *QuotaPurge) Start() {
	j.cron.Start()
}

// Stop waits for a running purge to finish.
func (j *QuotaPurge) Stop() {
	<-j.cron.Stop().Done()
}
