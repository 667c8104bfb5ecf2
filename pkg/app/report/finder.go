package report

import (
	"context"
	"errors"

	domainReport "github.com/ApexGov/inspector/pkg/domain/report"
	"github.com/ApexGov/inspector/pkg/infra/cache"
	"github.com/sirupsen/logrus"
)

//go:generate mockery --name=Finder --dir=. --output=./mocks --filename=report_finder_mock.go --case=underscore --with-expecter
type Finder interface {
	Find(ctx context.Context, number string) (*domainReport.Report, error)
}

type finder struct {
	logger *logrus.Logger
	repo   domainReport.Repository
	local  *cache.TTLMap
	shared cache.Client
}

// NewFinder reads through a process-local TTL map, then redis when shared is
// not nil, then the repository.
func NewFinder(logger *logrus.Logger, repo domainReport.Repository, local *cache.TTLMap, shared cache.Client) Finder {
	return &finder{logger: logger, repo: repo, local: local, shared: shared}
}

func (f *finder) Find(ctx context.Context, number string) (*domainReport.Report, error) {
	if f.local != nil {
		if v, ok := f.local.Get(number); ok {
			if r, ok := v.(*domainReport.Report); ok {
				return r, nil
			}
		}
	}

	if f.shared != nil {
		r, err := f.shared.GetReport(ctx, number)
		if err == nil {
			f.remember(r)
			return r, nil
		}
		if !errors.Is(err, cache.ErrCacheMiss) {
			f.logger.WithField("report_number", number).WithError(err).Warn("report cache read failed")
		}
	}

	r, err := f.repo.GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if f.shared != nil {
		if err := f.shared.SaveReport(ctx, r); err != nil {
			f.logger.WithField("report_number", number).WithError(err).Warn("report cache write failed")
		}
	}
	f.remember(r)
	return r, nil
}

func (f *finder) remember(r *domainReport.Report) {
	if f.local != nil {
		f.local.Set(r.ReportNumber, r)
	}
}
